// internal/api/v2/diagnose.go
package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/errors"
)

// imageField is the multipart form field carrying the upload.
const imageField = "image"

// LabelRequest is the body of POST /api/v2/diagnose/label.
type LabelRequest struct {
	Label *string  `json:"label"`
	Score *float64 `json:"score"`
}

// FailedDiagnosisResponse is returned with 502 when the classifier failed.
// Result carries the FAILED report that was recorded.
type FailedDiagnosisResponse struct {
	Error  string          `json:"error"`
	Result analysis.Result `json:"result"`
}

// Diagnose handles POST /api/v2/diagnose
func (c *Controller) Diagnose(ctx echo.Context) error {
	fh, err := ctx.FormFile(imageField)
	if err != nil {
		return c.HandleError(ctx, err, "No image provided", http.StatusBadRequest)
	}

	data, err := c.readUpload(fh)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read uploaded image", http.StatusBadRequest)
	}

	res, err := c.Analyzer.Analyze(ctx.Request().Context(), analysis.Input{
		Image:  data,
		Name:   fh.Filename,
		Source: analysis.SourceAPI,
	})
	switch {
	case errors.IsCategory(err, errors.CategoryImageDecode):
		return c.HandleError(ctx, err, "Unsupported or corrupt image", http.StatusUnsupportedMediaType)
	case errors.Is(err, analysis.ErrClassification):
		return ctx.JSON(http.StatusBadGateway, FailedDiagnosisResponse{Error: err.Error(), Result: res})
	case err != nil:
		return c.HandleError(ctx, err, "Analysis failed", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, res)
}

// DiagnoseLabel handles POST /api/v2/diagnose/label. It runs only the
// normalization and knowledge lookup for an already classified label.
func (c *Controller) DiagnoseLabel(ctx echo.Context) error {
	var req LabelRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request format", http.StatusBadRequest)
	}
	if req.Label == nil || strings.TrimSpace(*req.Label) == "" {
		return c.HandleError(ctx, nil, "label is required", http.StatusBadRequest)
	}
	if req.Score == nil {
		return c.HandleError(ctx, nil, "score is required", http.StatusBadRequest)
	}

	return ctx.JSON(http.StatusOK, c.Analyzer.DiagnoseLabel(*req.Label, *req.Score))
}

// Predict handles POST /predict: the merged report on success and a bare
// {"error": "..."} object on failure.
func (c *Controller) Predict(ctx echo.Context) error {
	fh, err := ctx.FormFile(imageField)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "No image provided"})
	}
	if fh.Filename == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "No image selected"})
	}

	data, err := c.readUpload(fh)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	res, err := c.Analyzer.Analyze(ctx.Request().Context(), analysis.Input{
		Image:  data,
		Name:   fh.Filename,
		Source: analysis.SourceAPI,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, res.Report)
}

func (c *Controller) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > analysis.MaxImageSize {
		return nil, fmt.Errorf("image exceeds %d bytes", analysis.MaxImageSize)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, analysis.MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > analysis.MaxImageSize {
		return nil, fmt.Errorf("image exceeds %d bytes", analysis.MaxImageSize)
	}

	if c.metrics != nil {
		c.metrics.HTTP.RecordUploadSize(int64(len(data)))
	}
	return data, nil
}
