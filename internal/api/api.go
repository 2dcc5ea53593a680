// Package api exposes the indicator catalog over HTTP.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/sigi-ilum/sigi-go/internal/conf"
	"github.com/sigi-ilum/sigi-go/internal/datastore"
	"github.com/sigi-ilum/sigi-go/internal/importer"
	"github.com/sigi-ilum/sigi-go/internal/logging"
	"github.com/sigi-ilum/sigi-go/internal/matcher"
	"github.com/sigi-ilum/sigi-go/internal/observability"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	DS       datastore.Interface
	Settings *conf.Settings
	Importer *importer.Service
	Matcher  *matcher.Service

	logger     *slog.Logger
	metrics    *observability.Metrics
	groupCache *cache.Cache // caches similarity-group responses between writes
	startTime  time.Time
}

// New creates the API controller and registers all routes on the echo instance.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	metrics *observability.Metrics) (*Controller, error) {
	if e == nil {
		return nil, fmt.Errorf("echo instance must not be nil")
	}
	if ds == nil {
		return nil, fmt.Errorf("datastore must not be nil")
	}

	c := &Controller{
		Echo:       e,
		DS:         ds,
		Settings:   settings,
		Importer:   importer.New(ds),
		Matcher:    matcher.New(ds),
		logger:     logging.ForService("api"),
		metrics:    metrics,
		groupCache: cache.New(5*time.Minute, 10*time.Minute),
		startTime:  time.Now(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("10M")) // import documents can be large, but bounded
	e.Use(c.LoggingMiddleware())

	c.initRoutes()
	return c, nil
}

// initRoutes registers every endpoint. Static segments are registered before
// the :id routes; echo resolves static routes with higher priority.
func (c *Controller) initRoutes() {
	e := c.Echo

	e.POST("/indicadores/importar", c.ImportIndicators)
	e.GET("/indicadores", c.ListIndicatorSets)
	e.GET("/indicadores/comparar", c.CompareIndicators)
	e.GET("/indicadores/semelhantes", c.SimilarIndicators)
	e.GET("/indicadores/por-municipio", c.IndicatorsByMunicipality)
	e.GET("/indicadores/exportar/:id", c.ExportIndicatorSet)
	e.GET("/indicadores/:id", c.GetIndicatorSet)
	e.PUT("/indicadores/:id", c.UpdateIndicatorSet)
	e.DELETE("/indicadores/:id", c.DeleteIndicatorSet)
	e.DELETE("/indicadores", c.DeleteAllIndicatorSets)
	e.PATCH("/indicadores/:id/formula", c.UpdateFormula)
	e.PUT("/indicadores/:id/tags", c.ReplaceTags)

	e.GET("/health", c.Health)
	if c.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// invalidateCaches drops cached query results after any write.
func (c *Controller) invalidateCaches() {
	c.groupCache.Flush()
	if c.metrics != nil {
		if count, err := c.DS.CountMunicipalities(); err == nil {
			c.metrics.SetMunicipalityCount(count)
		}
	}
}

// ErrorResponse is the JSON error body returned by every failing endpoint.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString(),
	}
}

// HandleError constructs and returns an appropriate error response.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	if c.logger != nil {
		var errorStr string
		if err != nil {
			errorStr = err.Error()
		} else {
			errorStr = message
		}
		c.logger.Error("API Error",
			"correlation_id", errorResp.CorrelationID,
			"message", message,
			"error", errorStr,
			"code", code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ctx.RealIP(),
		)
	}

	return ctx.JSON(code, errorResp)
}

// Health reports service liveness and basic store reachability.
func (c *Controller) Health(ctx echo.Context) error {
	status := http.StatusOK
	response := map[string]any{
		"status": "healthy",
		"uptime": time.Since(c.startTime).String(),
	}

	if count, err := c.DS.CountMunicipalities(); err != nil {
		status = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
		response["error"] = err.Error()
	} else {
		response["municipios"] = count
	}

	return ctx.JSON(status, response)
}
