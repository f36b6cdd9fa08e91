package api

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Sorinen/service-boutique/internal/sales"
	"github.com/Sorinen/service-boutique/web"
)

// templateFuncs are the helpers the page templates format values with.
func templateFuncs(loc *time.Location) template.FuncMap {
	if loc == nil {
		loc = time.Local
	}
	return template.FuncMap{
		"euro":   sales.Euro,
		"amount": func(s sales.Sale) string { return sales.Euro(s.Amount()) },
		"price":  func(p float64) string { return sales.Euro(decimal.NewFromFloat(p)) },
		"datetime": func(t time.Time) string {
			return t.In(loc).Format("02/01/2006 15:04")
		},
		"plural": func(n int, one, many string) string {
			if n > 1 {
				return many
			}
			return one
		},
		"half": func(v float64) float64 { return v / 2 },
	}
}

func parseTemplates(loc *time.Location) (*template.Template, error) {
	return web.Parse(templateFuncs(loc))
}

type dashboardPage struct {
	Title     string
	Dashboard sales.Dashboard
	Chart     svgChart
	Payments  []string
	Error     string
}

type historyPage struct {
	Title   string
	History sales.History
	Windows []sales.Window
}

// pagesHandler serves the two HTML views.
type pagesHandler struct {
	salesService *sales.Service
	tmpl         *template.Template
	notifier     Notifier
	logger       *zap.Logger
}

func (h *pagesHandler) dashboardData(errMsg string) dashboardPage {
	d := h.salesService.Dashboard(h.salesService.Now())
	return dashboardPage{
		Title:     "Tableau de bord",
		Dashboard: d,
		Chart:     newSVGChart(d.Chart),
		Payments:  sales.PaymentMethods,
		Error:     errMsg,
	}
}

func (h *pagesHandler) historyData(filter string) historyPage {
	return historyPage{
		Title:   "Historique",
		History: h.salesService.History(sales.ParseWindow(filter), h.salesService.Now()),
		Windows: sales.Windows,
	}
}

func (h *pagesHandler) handleDashboard(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "dashboard.html", h.dashboardData(ctx.Query("error")))
}

func (h *pagesHandler) handleHistory(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "history.html", h.historyData(ctx.Query("filter")))
}

// handleCreateFromForm records a sale posted by the dashboard form, then
// redirects back to the dashboard.
func (h *pagesHandler) handleCreateFromForm(ctx *gin.Context) {
	var in sales.SaleInput
	if err := ctx.ShouldBind(&in); err != nil {
		h.redirectWithError(ctx, "Formulaire invalide")
		return
	}

	if _, err := h.salesService.CreateSale(ctx.Request.Context(), in); err != nil {
		switch {
		case errors.Is(err, sales.ErrEmptyTitle):
			h.redirectWithError(ctx, "Le nom du produit est obligatoire")
		case errors.Is(err, sales.ErrInvalidQuantity):
			h.redirectWithError(ctx, "La quantité doit être supérieure à zéro")
		case errors.Is(err, sales.ErrInvalidPrice):
			h.redirectWithError(ctx, "Le prix doit être supérieur à zéro")
		default:
			h.logger.Error("failed to create sale from form", zap.Error(err))
			h.redirectWithError(ctx, "Erreur d'enregistrement")
		}
		return
	}

	notify(h.notifier)
	ctx.Redirect(http.StatusSeeOther, "/")
}

func (h *pagesHandler) redirectWithError(ctx *gin.Context, msg string) {
	ctx.Redirect(http.StatusSeeOther, "/?error="+url.QueryEscape(msg))
}

// render executes one named template into a string.
func (h *pagesHandler) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// dashboardFragments renders the parts of the dashboard that change with the
// ledger.
func (h *pagesHandler) dashboardFragments() ([]string, int, error) {
	page := h.dashboardData("")
	var out []string
	for _, part := range []struct {
		name string
		data any
	}{
		{"stats", page.Dashboard.Summary},
		{"chart", page.Chart},
		{"recent", page.Dashboard.Recent},
	} {
		html, err := h.render(part.name, part.data)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, html)
	}
	return out, page.Dashboard.Summary.Count, nil
}

func (h *pagesHandler) historyFragments(filter string) ([]string, int, error) {
	page := h.historyData(filter)
	html, err := h.render("history_table", page.History)
	if err != nil {
		return nil, 0, err
	}
	return []string{html}, page.History.Count, nil
}
