// Package templates renders the HTML dividend calendar.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"divcal/internal/app"
	"divcal/models"
)

// IndexData is everything the calendar page shows
type IndexData struct {
	Profiles   []models.DividendProfile
	Summary    models.CatalogSummary
	Query      string
	MinExDate  string
	Report     *models.BatchReport
	Glossary   []app.GlossaryEntry
	Disclaimer string
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Dividend Calendar</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
table{border-collapse:collapse;width:100%}
th,td{padding:.4rem .6rem;border-bottom:1px solid #ddd;text-align:left}
td.num{text-align:right}
.high{color:#15803d;font-weight:600}
.summary span{margin-right:2rem}
.warn{color:#b45309}
footer{margin-top:2rem;color:#666;font-size:.9em}
</style>
</head>
<body>
<h1>Dividend Calendar</h1>
`

// Index renders the full calendar page
func Index(data IndexData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, `<form hx-get="/" hx-target="#catalog" hx-trigger="input changed delay:300ms, change">
<input type="search" name="q" placeholder="Search company or symbol" value="%s">
<label>Min ex-dividend date <input type="date" name="min_ex_date" value="%s"></label>
</form>
`, templ.EscapeString(data.Query), templ.EscapeString(data.MinExDate)); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<div id="catalog">`); err != nil {
			return err
		}
		if err := CatalogTable(data.Profiles, data.Summary).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</div>\n"); err != nil {
			return err
		}

		if data.Report != nil {
			if err := reportSection(data.Report).Render(ctx, w); err != nil {
				return err
			}
		}
		if err := glossarySection(data.Glossary).Render(ctx, w); err != nil {
			return err
		}

		_, err := fmt.Fprintf(w, "<footer><p>%s</p><p>Information only, not investment advice.</p></footer>\n</body>\n</html>\n",
			templ.EscapeString(data.Disclaimer))
		return err
	})
}

// CatalogTable renders the summary line and the profile table
func CatalogTable(profiles []models.DividendProfile, summary models.CatalogSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<p class="summary"><span>Companies: %d</span><span>Average yield: %s%%</span><span>Average dividend: %s</span><span>Yield above 5%%: %d</span></p>
`, summary.Count, summary.AverageYieldPct.StringFixed(2), summary.AverageDividend.StringFixed(3), summary.HighYieldCount); err != nil {
			return err
		}

		if len(profiles) == 0 {
			_, err := io.WriteString(w, "<p>No companies match the filters.</p>\n")
			return err
		}

		if _, err := io.WriteString(w, `<table>
<thead><tr><th>Company</th><th>Symbol</th><th>Ex-Dividend Date</th><th>Dividend</th><th>Frequency</th><th>Payment Date</th><th>Yield (%)</th><th>Reliability</th></tr></thead>
<tbody>
`); err != nil {
			return err
		}
		for _, p := range profiles {
			yieldClass := ` class="num"`
			if p.AnnualYieldPct.GreaterThan(models.HighYieldThresholdPct) {
				yieldClass = ` class="num high"`
			}
			if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%s</td><td class=\"num\">%s %s</td><td>%s</td><td>%s</td><td%s>%s</td><td>%s</td></tr>\n",
				templ.EscapeString(p.DisplayName),
				templ.EscapeString(p.Symbol),
				formatDate(p),
				p.LastDividendAmount.StringFixed(4),
				templ.EscapeString(p.Currency),
				templ.EscapeString(p.Frequency.Label()),
				p.NextPaymentDate.Format(models.DateLayout),
				yieldClass,
				p.AnnualYieldPct.StringFixed(2),
				p.Stars(),
			); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody>\n</table>\n")
		return err
	})
}

// ErrorState renders an inline error message
func ErrorState(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<p class=\"warn\">%s</p>\n", templ.EscapeString(message))
		return err
	})
}

func reportSection(report *models.BatchReport) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<p>Last build: %d profiled, %d skipped, %d failed in %d ms.</p>\n",
			report.Count(models.OutcomeSuccess),
			report.Count(models.OutcomeSkipped),
			report.Count(models.OutcomeFailed),
			report.DurationMs); err != nil {
			return err
		}
		failures := report.Failures()
		if len(failures) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, "<ul class=\"warn\">\n"); err != nil {
			return err
		}
		for _, f := range failures {
			if _, err := fmt.Fprintf(w, "<li>%s: %s</li>\n", templ.EscapeString(f.Symbol), templ.EscapeString(f.Reason)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>\n")
		return err
	})
}

func glossarySection(entries []app.GlossaryEntry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(entries) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, "<details><summary>Glossary</summary>\n<dl>\n"); err != nil {
			return err
		}
		for _, e := range entries {
			if _, err := fmt.Fprintf(w, "<dt>%s</dt><dd>%s</dd>\n", templ.EscapeString(e.Term), templ.EscapeString(e.Definition)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</dl>\n</details>\n")
		return err
	})
}

func formatDate(p models.DividendProfile) string {
	if p.NextExDate.IsZero() {
		return ""
	}
	return p.NextExDate.Format(models.DateLayout)
}
