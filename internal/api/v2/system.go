// internal/api/v2/system.go
package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status           string  `json:"status"`
	Version          string  `json:"version"`
	BuildDate        string  `json:"build_date"`
	Backend          string  `json:"backend"`
	KnowledgeEntries int     `json:"knowledge_entries"`
	History          string  `json:"history"` // enabled, disabled or error
	Uptime           string  `json:"uptime"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Timestamp        string  `json:"timestamp"`
}

// ResourceInfo reports memory usage of the host and this process.
type ResourceInfo struct {
	MemoryTotal uint64  `json:"memory_total"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryUsage float64 `json:"memory_usage_percent"`
	ProcessMem  float64 `json:"process_memory_mb"`
	ProcessCPU  float64 `json:"process_cpu_percent"`
	Goroutines  int     `json:"goroutines"`
	NumCPU      int     `json:"num_cpu"`
	GoVersion   string  `json:"go_version"`
}

// HealthCheck handles GET /health and GET /api/v2/health. The status is
// "degraded" when scan history is enabled but the database does not answer.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)

	resp := HealthResponse{
		Status:           "healthy",
		Version:          c.Settings.Version,
		BuildDate:        c.Settings.BuildDate,
		Backend:          c.Analyzer.Backend(),
		KnowledgeEntries: c.Analyzer.Resolver().KnowledgeBase().Len(),
		History:          "disabled",
		Uptime:           uptime.Round(time.Second).String(),
		UptimeSeconds:    uptime.Seconds(),
		Timestamp:        time.Now().Format(time.RFC3339),
	}

	if c.DS != nil {
		resp.History = "enabled"
		if _, err := c.DS.Stats(); err != nil {
			c.log.Warn("health check database query failed")
			resp.Status = "degraded"
			resp.History = "error"
		}
	}

	return ctx.JSON(http.StatusOK, resp)
}

// GetResourceInfo handles GET /api/v2/system/resources
func (c *Controller) GetResourceInfo(ctx echo.Context) error {
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get memory information", http.StatusInternalServerError)
	}

	info := ResourceInfo{
		MemoryTotal: memInfo.Total,
		MemoryUsed:  memInfo.Used,
		MemoryUsage: memInfo.UsedPercent,
		Goroutines:  runtime.NumGoroutine(),
		NumCPU:      runtime.NumCPU(),
		GoVersion:   runtime.Version(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec // pid fits in int32
		if procMem, err := proc.MemoryInfo(); err == nil && procMem != nil {
			info.ProcessMem = float64(procMem.RSS) / 1024 / 1024
		}
		if procCPU, err := proc.CPUPercent(); err == nil {
			info.ProcessCPU = procCPU
		}
	}

	return ctx.JSON(http.StatusOK, info)
}
