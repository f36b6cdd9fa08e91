package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Sorinen/service-boutique/internal/metrics"
	"github.com/Sorinen/service-boutique/internal/sales"
)

// Dependencies is what the HTTP view is built from.
type Dependencies struct {
	Service  *sales.Service
	Notifier Notifier // nil when no live page needs local changes
	Hub      *Hub     // nil disables the SSE routes
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil disables /metrics
	Location *time.Location

	RateLimit rate.Limit
	RateBurst int
	Version   string
}

// InitRoutes registers the pages, the JSON API and the live streams on the
// given Gin engine.
func InitRoutes(e *gin.Engine, deps Dependencies) error {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	tmpl, err := parseTemplates(deps.Location)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	e.SetHTMLTemplate(tmpl)

	e.Use(requestID(), recovery(logger), accessLog(logger, deps.Metrics))

	limit, burst := deps.RateLimit, deps.RateBurst
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	writes := newRateLimiter(limit, burst).middleware(logger)

	salesHandler := NewSalesHandler(deps.Service, deps.Notifier, logger)
	salesHandler.version = deps.Version
	pages := &pagesHandler{
		salesService: deps.Service,
		tmpl:         tmpl,
		notifier:     deps.Notifier,
		logger:       logger,
	}

	e.GET("/", pages.handleDashboard)
	e.GET("/ventes", pages.handleHistory)
	e.POST("/ventes/new", writes, pages.handleCreateFromForm)

	apiGroup := e.Group("/api")
	apiGroup.POST("/sales", writes, salesHandler.handleCreateSale)
	apiGroup.GET("/sales", salesHandler.handleListSales)
	apiGroup.GET("/sales/:id", salesHandler.handleGetSale)
	apiGroup.GET("/stats", salesHandler.handleStats)
	apiGroup.GET("/export.csv", salesHandler.handleExportCSV)
	apiGroup.GET("/export.xlsx", salesHandler.handleExportXLSX)
	apiGroup.GET("/status", salesHandler.handleStatus)

	if deps.Hub != nil {
		live := &liveHandler{pages: pages, hub: deps.Hub, logger: logger}
		e.GET("/sse/dashboard", live.handleDashboardStream)
		e.GET("/sse/history", live.handleHistoryStream)
	}

	if deps.Gatherer != nil {
		e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	return nil
}
