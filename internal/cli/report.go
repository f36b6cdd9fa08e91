package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/Sorinen/service-boutique/internal/sales"
)

// printMarkdown renders md for the terminal. When rendering fails the raw
// markdown is printed instead.
func printMarkdown(w io.Writer, md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprint(w, md)
}

func plural(n int, one, many string) string {
	if n > 1 {
		return many
	}
	return one
}

// escapeCell keeps a product name from breaking a markdown table.
func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

func salesTable(b *strings.Builder, list []sales.Sale, loc *time.Location) {
	b.WriteString("| Date | Produit | Qté | Prix | Paiement | Total |\n")
	b.WriteString("|---|---|---:|---:|---|---:|\n")
	for _, s := range list {
		fmt.Fprintf(b, "| %s | %s | %d | %s | %s | %s |\n",
			s.Date.In(loc).Format("02/01/2006 15:04"),
			escapeCell(s.Title),
			s.Qty,
			sales.Euro(sales.Sale{Qty: 1, Price: s.Price}.Amount()),
			s.Payment,
			sales.Euro(s.Amount()),
		)
	}
}

// historyMarkdown lists the sales of a window in display order.
func historyMarkdown(h sales.History, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Historique des ventes · %s\n\n", h.Window.Label())
	fmt.Fprintf(&b, "**%s** (%d %s)\n\n", sales.Euro(h.Total), h.Count, plural(h.Count, "vente", "ventes"))
	if h.Count == 0 {
		b.WriteString("Aucune vente pour cette période.\n")
		return b.String()
	}
	salesTable(&b, h.Sales, loc)
	return b.String()
}

// statsMarkdown is the terminal version of the dashboard.
func statsMarkdown(d sales.Dashboard, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("# Tableau de bord\n\n")
	b.WriteString("| Aujourd'hui | Cette semaine | Ce mois | Cette année | Total |\n")
	b.WriteString("|---:|---:|---:|---:|---:|\n")
	s := d.Summary
	fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n\n",
		sales.Euro(s.Day), sales.Euro(s.Week), sales.Euro(s.Month), sales.Euro(s.Year), sales.Euro(s.Total))
	fmt.Fprintf(&b, "%d %s au %s.\n\n", s.Count,
		plural(s.Count, "vente enregistrée", "ventes enregistrées"), d.At.In(loc).Format("02/01/2006 15:04"))

	b.WriteString("## Revenu par jour du mois, tous mois confondus\n\n")
	if len(d.Chart.Points) == 0 {
		b.WriteString("Aucune vente enregistrée.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Échelle : 0 à %d € par pas de %d €.\n\n", d.Chart.Scale.Max, d.Chart.Scale.Step)
	b.WriteString("| Jour | Montant |\n|---:|---:|\n")
	for _, p := range d.Chart.Points {
		fmt.Fprintf(&b, "| %d | %s |\n", p.Day, sales.Euro(p.Value))
	}
	return b.String()
}
