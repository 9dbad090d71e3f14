// internal/api/v2/api.go
package api

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/datastore"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
	"github.com/tphakala/cropdoc/internal/observability"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Analyzer *analysis.Analyzer
	DS       datastore.Interface // nil when scan history is disabled
	Settings *conf.Settings

	metrics   *observability.Metrics
	startTime time.Time
	log       logger.Logger
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithDataStore enables the scan history endpoints.
func WithDataStore(ds datastore.Interface) Option {
	return func(c *Controller) {
		c.DS = ds
	}
}

// WithMetrics exposes the registry on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// GetLogger returns the api module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// New creates the controller and registers its routes on e.
func New(e *echo.Echo, analyzer *analysis.Analyzer, settings *conf.Settings, opts ...Option) (*Controller, error) {
	if analyzer == nil {
		return nil, errors.Newf("api controller requires an analyzer").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings == nil {
		settings = &conf.Settings{}
	}

	c := &Controller{
		Echo:      e,
		Analyzer:  analyzer,
		Settings:  settings,
		startTime: time.Now(),
		log:       GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/health", c.HealthCheck)
	// compatibility route for clients of the original single endpoint server
	c.Echo.POST("/predict", c.Predict)

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	c.Group = c.Echo.Group("/api/v2")

	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/system/resources", c.GetResourceInfo)

	c.Group.POST("/diagnose", c.Diagnose)
	c.Group.POST("/diagnose/label", c.DiagnoseLabel)

	c.Group.GET("/knowledge", c.ListKnowledge)
	c.Group.GET("/knowledge/:label", c.GetKnowledgeEntry)

	c.Group.GET("/scans", c.ListScans)
	c.Group.GET("/scans/stats", c.GetScanStats)
	c.Group.GET("/scans/:id", c.GetScan)
	c.Group.DELETE("/scans/:id", c.DeleteScan)
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs the error and writes a JSON ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}

	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Debug("API error", fields...)
	}

	return ctx.JSON(code, resp)
}
