// Package export renders catalogs and projections as CSV files and
// terminal tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"divcal/models"
)

// CSVHeader is the column order of the catalog download.
var CSVHeader = []string{
	"Company Name",
	"Symbol",
	"Ex-Dividend Date",
	"Dividend",
	"Frequency",
	"Payment Date",
	"Yield (%)",
	"Reliability",
}

// FileName returns the download name for a catalog exported at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("dividend_calendar_%s.csv", now.Format("20060102"))
}

// WriteCSV writes profiles as CSV in catalog order.
func WriteCSV(w io.Writer, profiles []models.DividendProfile) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range profiles {
		if err := cw.Write(csvRecord(p)); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", p.Symbol, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func csvRecord(p models.DividendProfile) []string {
	return []string{
		p.DisplayName,
		p.Symbol,
		formatDate(p.NextExDate),
		p.LastDividendAmount.StringFixed(4),
		p.Frequency.Label(),
		formatDate(p.NextPaymentDate),
		p.AnnualYieldPct.StringFixed(2),
		strconv.Itoa(p.ReliabilityStars),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}
