// internal/api/v2/scans.go
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/cropdoc/internal/datastore"
	"github.com/tphakala/cropdoc/internal/diagnosis"
	"github.com/tphakala/cropdoc/internal/errors"
)

// ScanListResponse is a page of scan history.
type ScanListResponse struct {
	Scans  []datastore.Scan `json:"scans"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ScanResponse is a scan with its decoded report.
type ScanResponse struct {
	datastore.Scan
	Report *diagnosis.Report `json:"report,omitempty"`
}

// ListScans handles GET /api/v2/scans
func (c *Controller) ListScans(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}

	filter, err := parseScanFilter(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid query parameters", http.StatusBadRequest)
	}

	scans, total, err := c.DS.List(filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list scans", http.StatusInternalServerError)
	}
	if scans == nil {
		scans = []datastore.Scan{}
	}

	return ctx.JSON(http.StatusOK, ScanListResponse{
		Scans:  scans,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GetScan handles GET /api/v2/scans/:id
func (c *Controller) GetScan(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}

	scan, err := c.DS.Get(ctx.Param("id"))
	if err != nil {
		return c.storeError(ctx, err, "Failed to get scan")
	}

	resp := ScanResponse{Scan: scan}
	if scan.Report != "" {
		var report diagnosis.Report
		if err := json.Unmarshal([]byte(scan.Report), &report); err != nil {
			c.log.Warn("stored report is not valid JSON")
		} else {
			resp.Report = &report
		}
	}

	return ctx.JSON(http.StatusOK, resp)
}

// DeleteScan handles DELETE /api/v2/scans/:id
func (c *Controller) DeleteScan(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}

	if err := c.DS.Delete(ctx.Param("id")); err != nil {
		return c.storeError(ctx, err, "Failed to delete scan")
	}

	return ctx.NoContent(http.StatusNoContent)
}

// GetScanStats handles GET /api/v2/scans/stats
func (c *Controller) GetScanStats(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}

	stats, err := c.DS.Stats()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compute scan statistics", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, stats)
}

func (c *Controller) historyDisabled(ctx echo.Context) error {
	return c.HandleError(ctx, nil, "Scan history is disabled", http.StatusServiceUnavailable)
}

func (c *Controller) storeError(ctx echo.Context, err error, message string) error {
	if errors.Is(err, datastore.ErrScanNotFound) {
		return c.HandleError(ctx, err, "Scan not found", http.StatusNotFound)
	}
	return c.HandleError(ctx, err, message, http.StatusInternalServerError)
}

// parseScanFilter reads crop, status, since, limit and offset. since accepts
// RFC 3339 or a YYYY-MM-DD date.
func parseScanFilter(ctx echo.Context) (datastore.ScanFilter, error) {
	filter := datastore.ScanFilter{
		Crop:   strings.TrimSpace(ctx.QueryParam("crop")),
		Status: strings.ToUpper(strings.TrimSpace(ctx.QueryParam("status"))),
		Limit:  datastore.DefaultListLimit,
	}

	switch diagnosis.Status(filter.Status) {
	case "", diagnosis.StatusHealthy, diagnosis.StatusDiseased, diagnosis.StatusFailed:
	default:
		return filter, errors.Newf("status must be HEALTHY, DISEASED or FAILED").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}

	if v := ctx.QueryParam("since"); v != "" {
		since, err := parseSince(v)
		if err != nil {
			return filter, err
		}
		filter.Since = since
	}

	if v := ctx.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, errors.Newf("limit must be a positive integer").
				Component("api").
				Category(errors.CategoryValidation).
				Build()
		}
		filter.Limit = min(n, datastore.MaxListLimit)
	}

	if v := ctx.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.Newf("offset must be a non-negative integer").
				Component("api").
				Category(errors.CategoryValidation).
				Build()
		}
		filter.Offset = n
	}

	return filter, nil
}

func parseSince(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	if err != nil {
		return time.Time{}, errors.Newf("since must be RFC 3339 or YYYY-MM-DD, got %q", v).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return t, nil
}
