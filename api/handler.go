package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sorinen/service-boutique/internal/sales"
)

// salesHandler holds the sales service and implements HTTP handlers for sales operations.
type salesHandler struct {
	salesService *sales.Service
	notifier     Notifier
	logger       *zap.Logger
	version      string
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(salesService *sales.Service, notifier Notifier, logger *zap.Logger) *salesHandler {
	return &salesHandler{
		salesService: salesService,
		notifier:     notifier,
		logger:       logger,
	}
}

// handleCreateSale handles the POST /api/sales endpoint.
func (h *salesHandler) handleCreateSale(ctx *gin.Context) {
	var req sales.SaleInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	sale, err := h.salesService.CreateSale(ctx.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, sales.ErrEmptyTitle),
			errors.Is(err, sales.ErrInvalidQuantity),
			errors.Is(err, sales.ErrInvalidPrice):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("failed to create sale", zap.Error(err), zap.String("title", req.Title))
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create sale"})
		}
		return
	}

	notify(h.notifier)
	ctx.JSON(http.StatusCreated, sale)
}

// handleListSales handles GET /api/sales?filter=.
func (h *salesHandler) handleListSales(ctx *gin.Context) {
	history := h.salesService.History(sales.ParseWindow(ctx.Query("filter")), h.salesService.Now())
	ctx.JSON(http.StatusOK, gin.H{
		"filter":        history.Window,
		"sales":         history.Sales,
		"count":         history.Count,
		"total_revenue": history.Total,
	})
}

func (h *salesHandler) handleGetSale(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
		return
	}

	sale, err := h.salesService.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, sales.ErrNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "sale not found"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

func (h *salesHandler) handleStats(ctx *gin.Context) {
	d := h.salesService.Dashboard(h.salesService.Now())
	ctx.JSON(http.StatusOK, gin.H{
		"summary": d.Summary,
		"chart":   d.Chart,
		"at":      d.At,
	})
}

func (h *salesHandler) handleExportCSV(ctx *gin.Context) {
	h.export(ctx, h.salesService.ExportCSV)
}

func (h *salesHandler) handleExportXLSX(ctx *gin.Context) {
	h.export(ctx, h.salesService.ExportXLSX)
}

func (h *salesHandler) export(ctx *gin.Context, render func(sales.Window, time.Time) (sales.Export, error)) {
	w := sales.ParseWindow(ctx.Query("filter"))
	file, err := render(w, h.salesService.Now())
	if err != nil {
		h.logger.Error("failed to export sales", zap.String("filter", string(w)), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export sales"})
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	ctx.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *salesHandler) handleStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"sales":     h.salesService.Ledger().Len(),
	})
}
