package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HighYieldThresholdPct is the yield above which a profile counts as high yield.
var HighYieldThresholdPct = decimal.NewFromInt(5)

// Catalog is the set of profiles built in one fetch cycle, keyed by symbol.
// Iteration follows insertion order.
type Catalog struct {
	BuiltAt  time.Time         `json:"built_at"`
	Profiles []DividendProfile `json:"profiles"`
	index    map[string]int
}

// NewCatalog creates an empty catalog.
func NewCatalog(builtAt time.Time) *Catalog {
	return &Catalog{
		BuiltAt:  builtAt,
		Profiles: []DividendProfile{},
		index:    make(map[string]int),
	}
}

// Add inserts a profile, replacing any existing profile for the same symbol.
func (c *Catalog) Add(p DividendProfile) {
	if c.index == nil {
		c.reindex()
	}
	key := strings.ToUpper(p.Symbol)
	if i, ok := c.index[key]; ok {
		c.Profiles[i] = p
		return
	}
	c.index[key] = len(c.Profiles)
	c.Profiles = append(c.Profiles, p)
}

// Get returns the profile for a symbol, case-insensitively.
func (c *Catalog) Get(symbol string) (DividendProfile, bool) {
	if c.index == nil {
		c.reindex()
	}
	i, ok := c.index[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return DividendProfile{}, false
	}
	return c.Profiles[i], true
}

// Len returns the number of profiles.
func (c *Catalog) Len() int {
	return len(c.Profiles)
}

// Symbols returns the symbols in insertion order.
func (c *Catalog) Symbols() []string {
	out := make([]string, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		out = append(out, p.Symbol)
	}
	return out
}

func (c *Catalog) reindex() {
	c.index = make(map[string]int, len(c.Profiles))
	for i, p := range c.Profiles {
		c.index[strings.ToUpper(p.Symbol)] = i
	}
}

// CatalogFilter narrows a catalog for presentation.
type CatalogFilter struct {
	// Query matches the display name or symbol, case-insensitively.
	Query string
	// MinExDate drops profiles whose next ex-date is before it. Zero disables.
	MinExDate time.Time
}

// Filter returns the profiles matching f, preserving order.
func (c *Catalog) Filter(f CatalogFilter) []DividendProfile {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]DividendProfile, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		if q != "" &&
			!strings.Contains(strings.ToLower(p.DisplayName), q) &&
			!strings.Contains(strings.ToLower(p.Symbol), q) {
			continue
		}
		if !f.MinExDate.IsZero() && p.NextExDate.Before(truncateDay(f.MinExDate)) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// CatalogSummary holds the headline figures shown above the calendar.
type CatalogSummary struct {
	Count           int             `json:"count"`
	AverageYieldPct decimal.Decimal `json:"average_yield_pct"`
	AverageDividend decimal.Decimal `json:"average_dividend"`
	HighYieldCount  int             `json:"high_yield_count"`
}

// Summarize computes headline figures over a list of profiles.
func Summarize(profiles []DividendProfile) CatalogSummary {
	s := CatalogSummary{
		Count:           len(profiles),
		AverageYieldPct: decimal.Zero,
		AverageDividend: decimal.Zero,
	}
	if len(profiles) == 0 {
		return s
	}

	yieldSum := decimal.Zero
	divSum := decimal.Zero
	for _, p := range profiles {
		yieldSum = yieldSum.Add(p.AnnualYieldPct)
		divSum = divSum.Add(p.LastDividendAmount)
		if p.AnnualYieldPct.GreaterThan(HighYieldThresholdPct) {
			s.HighYieldCount++
		}
	}
	n := decimal.NewFromInt(int64(len(profiles)))
	s.AverageYieldPct = yieldSum.Div(n).Round(2)
	s.AverageDividend = divSum.Div(n).Round(3)
	return s
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
