package export

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"divcal/models"
)

// TableOptions controls terminal rendering.
type TableOptions struct {
	Color bool
	// MaxNameWidth wraps long company names; zero uses 32.
	MaxNameWidth int
}

func newWriter(w io.Writer, opts TableOptions) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if opts.Color {
		tw.SetStyle(table.StyleColoredDark)
	} else {
		tw.SetStyle(table.StyleLight)
	}
	tw.Style().Options.SeparateRows = false
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	return tw
}

var rightAligned = table.ColumnConfig{Align: text.AlignRight, AlignHeader: text.AlignRight}

func rightAlign(names ...string) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, 0, len(names))
	for _, n := range names {
		cfg := rightAligned
		cfg.Name = n
		cfgs = append(cfgs, cfg)
	}
	return cfgs
}

// RenderCatalogTable prints the calendar with its headline summary.
func RenderCatalogTable(w io.Writer, profiles []models.DividendProfile, opts TableOptions) {
	maxWidth := opts.MaxNameWidth
	if maxWidth <= 0 {
		maxWidth = 32
	}

	tw := newWriter(w, opts)
	header := make(table.Row, len(CSVHeader))
	for i, h := range CSVHeader {
		header[i] = h
	}
	tw.AppendHeader(header)

	cfgs := rightAlign("Dividend", "Yield (%)")
	cfgs = append(cfgs, table.ColumnConfig{Name: "Company Name", WidthMax: maxWidth})
	tw.SetColumnConfigs(cfgs)

	for _, p := range profiles {
		yield := p.AnnualYieldPct.StringFixed(2)
		if opts.Color && p.AnnualYieldPct.GreaterThan(models.HighYieldThresholdPct) {
			yield = text.Colors{text.FgGreen}.Sprint(yield)
		}
		tw.AppendRow(table.Row{
			p.DisplayName,
			p.Symbol,
			formatDate(p.NextExDate),
			p.LastDividendAmount.StringFixed(4),
			p.Frequency.Label(),
			formatDate(p.NextPaymentDate),
			yield,
			p.Stars(),
		})
	}

	s := models.Summarize(profiles)
	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d companies", s.Count),
		"",
		"",
		"avg " + s.AverageDividend.StringFixed(3),
		"",
		"",
		"avg " + s.AverageYieldPct.StringFixed(2),
		fmt.Sprintf("%d above 5%%", s.HighYieldCount),
	})

	tw.Render()
}

// RenderProjectionTable prints a simulation result.
func RenderProjectionTable(w io.Writer, p *models.Projection, opts TableOptions) {
	fmt.Fprintf(w, "%s (%s), %s\n", p.DisplayName, p.Symbol, p.Frequency.Label())
	fmt.Fprintf(w, "Invested %s %s at an estimated %s per share: %s shares\n",
		p.InvestmentAmount.StringFixed(2),
		p.Currency,
		p.PricePerShare.StringFixed(2),
		p.Shares.StringFixed(0))
	if p.ExchangeRate.IsFallback() {
		fmt.Fprintf(w, "Warning: %s\n", p.ExchangeRate.Warning)
	}

	tw := newWriter(w, opts)
	tw.AppendHeader(table.Row{"Period", "Payments", "Earnings (" + p.Currency + ")", "Yield (%)"})
	tw.SetColumnConfigs(rightAlign("Payments", "Earnings ("+p.Currency+")", "Yield (%)"))

	for _, r := range p.Rows {
		tw.AppendRow(table.Row{
			r.HorizonLabel,
			r.PaymentCount,
			r.ProjectedEarnings.StringFixed(2),
			r.YieldOnCapitalPct.StringFixed(2),
		})
	}

	tw.Render()
}
