package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/Sorinen/service-boutique/internal/sales"
)

type addCmd struct {
	app     *App
	title   string
	qty     int
	price   float64
	payment string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a sale" }
func (*addCmd) Usage() string {
	return `boutique add -title <product> [-qty n] -price <unit price> [-payment Carte|Espèces]

  Records one sale in the shared ledger. Running views pick it up on their own.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.title, "title", "", "Product name")
	f.IntVar(&c.qty, "qty", 1, "Quantity sold")
	f.Float64Var(&c.price, "price", 0, "Unit price in euros")
	f.StringVar(&c.payment, "payment", sales.PaymentCard, "Payment method")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	v, err := openView(ctx, c.app.ConfigPath, nil)
	if err != nil {
		fmt.Fprintf(c.app.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer v.Close()

	sale, err := v.service.CreateSale(ctx, sales.SaleInput{
		Title:   c.title,
		Qty:     c.qty,
		Price:   c.price,
		Payment: c.payment,
	})
	if err != nil {
		fmt.Fprintf(c.app.Stderr, "Error: %v\n", err)
		return exitStatus(err)
	}
	fmt.Fprintf(c.app.Stdout, "Vente %d enregistrée : %d × %s = %s (%s)\n",
		sale.ID, sale.Qty, sale.Title, sales.Euro(sale.Amount()), sale.Payment)
	return subcommands.ExitSuccess
}

type listCmd struct {
	app    *App
	filter string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "display the sales of a period" }
func (*listCmd) Usage() string {
	return `boutique list [-filter all|day|week|month|year]

  Displays the sales of the period, most recent first, with their total.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.filter, "filter", string(sales.WindowAll), "Period to display")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	v, err := openView(ctx, c.app.ConfigPath, nil)
	if err != nil {
		fmt.Fprintf(c.app.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer v.Close()

	h := v.service.History(sales.ParseWindow(c.filter), v.service.Now())
	printMarkdown(c.app.Stdout, historyMarkdown(h, v.loc))
	return subcommands.ExitSuccess
}

type statsCmd struct {
	app *App
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "display the dashboard figures" }
func (*statsCmd) Usage() string {
	return `boutique stats

  Displays the revenue of today, this week, this month, this year and overall,
  and the revenue per day of the month, all months combined.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	v, err := openView(ctx, c.app.ConfigPath, nil)
	if err != nil {
		fmt.Fprintf(c.app.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer v.Close()

	printMarkdown(c.app.Stdout, statsMarkdown(v.service.Dashboard(v.service.Now()), v.loc))
	return subcommands.ExitSuccess
}

type exportCmd struct {
	app    *App
	filter string
	format string
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the sales of a period to a CSV or Excel file" }
func (*exportCmd) Usage() string {
	return `boutique export [-filter all|day|week|month|year] [-format csv|xlsx] [-o file]

  Writes the sales of the period to ventes_<filter>.<format>, or to the given file.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.filter, "filter", string(sales.WindowAll), "Period to export")
	f.StringVar(&c.format, "format", "csv", "File format (csv, xlsx)")
	f.StringVar(&c.output, "o", "", "Output file (defaults to ventes_<filter>.<format>)")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	format := strings.ToLower(c.format)
	if format != "csv" && format != "xlsx" {
		fmt.Fprintf(c.app.Stderr, "Error: unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}

	v, err := openView(ctx, c.app.ConfigPath, nil)
	if err != nil {
		fmt.Fprintf(c.app.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer v.Close()

	w := sales.ParseWindow(c.filter)
	render := v.service.ExportCSV
	if format == "xlsx" {
		render = v.service.ExportXLSX
	}
	file, err := render(w, v.service.Now())
	if err != nil {
		fmt.Fprintf(c.app.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	path := c.output
	if path == "" {
		path = file.Name
	}
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		fmt.Fprintf(c.app.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(c.app.Stdout, "%s écrit (%s)\n", path, w.Label())
	return subcommands.ExitSuccess
}
