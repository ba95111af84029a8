package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testProfile(symbol, name, yield, amount string, exDate time.Time) DividendProfile {
	return DividendProfile{
		Symbol:             symbol,
		DisplayName:        name,
		Frequency:          FrequencyQuarterly,
		NextExDate:         exDate,
		NextPaymentDate:    exDate.AddDate(0, 0, 21),
		LastDividendAmount: decimal.RequireFromString(amount),
		AnnualYieldPct:     decimal.RequireFromString(yield),
	}
}

func TestCatalog_AddGet(t *testing.T) {
	c := NewCatalog(time.Now())
	ex := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	c.Add(testProfile("KO", "Coca-Cola", "3.1", "0.485", ex))
	c.Add(testProfile("PG", "Procter & Gamble", "2.4", "1.0065", ex))

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	p, ok := c.Get("ko")
	if !ok {
		t.Fatal("Get(ko) should find KO")
	}
	if p.DisplayName != "Coca-Cola" {
		t.Errorf("DisplayName = %q, want Coca-Cola", p.DisplayName)
	}

	if _, ok := c.Get("MSFT"); ok {
		t.Error("Get(MSFT) should not find anything")
	}

	// Replacing keeps position
	c.Add(testProfile("KO", "The Coca-Cola Company", "3.2", "0.51", ex))
	if c.Len() != 2 {
		t.Errorf("Len() after replace = %d, want 2", c.Len())
	}
	syms := c.Symbols()
	if syms[0] != "KO" || syms[1] != "PG" {
		t.Errorf("Symbols() = %v, want [KO PG]", syms)
	}
	p, _ = c.Get("KO")
	if p.DisplayName != "The Coca-Cola Company" {
		t.Errorf("replaced DisplayName = %q", p.DisplayName)
	}
}

func TestCatalog_GetAfterDecode(t *testing.T) {
	// A catalog built from a literal (e.g. JSON decode) has no index yet.
	c := &Catalog{Profiles: []DividendProfile{{Symbol: "T"}}}
	if _, ok := c.Get("t"); !ok {
		t.Error("Get should rebuild the index lazily")
	}
}

func TestCatalog_Filter(t *testing.T) {
	c := NewCatalog(time.Now())
	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	c.Add(testProfile("KO", "Coca-Cola", "3.1", "0.485", jan))
	c.Add(testProfile("PEP", "PepsiCo", "3.5", "1.355", mar))
	c.Add(testProfile("T", "AT&T", "6.1", "0.2775", mar))

	tests := []struct {
		name   string
		filter CatalogFilter
		want   []string
	}{
		{"no filter", CatalogFilter{}, []string{"KO", "PEP", "T"}},
		{"name substring", CatalogFilter{Query: "cola"}, []string{"KO"}},
		{"symbol substring", CatalogFilter{Query: "pe"}, []string{"PEP"}},
		{"min ex date", CatalogFilter{MinExDate: time.Date(2026, 2, 1, 13, 0, 0, 0, time.UTC)}, []string{"PEP", "T"}},
		{"min ex date inclusive", CatalogFilter{MinExDate: time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC)}, []string{"KO", "PEP", "T"}},
		{"combined", CatalogFilter{Query: "at&t", MinExDate: jan}, []string{"T"}},
		{"no match", CatalogFilter{Query: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Filter(tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() returned %d profiles, want %d", len(got), len(tt.want))
			}
			for i, p := range got {
				if p.Symbol != tt.want[i] {
					t.Errorf("Filter()[%d] = %s, want %s", i, p.Symbol, tt.want[i])
				}
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	ex := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	profiles := []DividendProfile{
		testProfile("A", "A", "2", "0.5", ex),
		testProfile("B", "B", "6", "1.0", ex),
		testProfile("C", "C", "5", "0.25", ex),
	}

	s := Summarize(profiles)
	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	if !s.AverageYieldPct.Equal(decimal.RequireFromString("4.33")) {
		t.Errorf("AverageYieldPct = %s, want 4.33", s.AverageYieldPct)
	}
	if !s.AverageDividend.Equal(decimal.RequireFromString("0.583")) {
		t.Errorf("AverageDividend = %s, want 0.583", s.AverageDividend)
	}
	// 5% exactly is not above the threshold
	if s.HighYieldCount != 1 {
		t.Errorf("HighYieldCount = %d, want 1", s.HighYieldCount)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Count != 0 || !s.AverageYieldPct.IsZero() || s.HighYieldCount != 0 {
		t.Errorf("Summarize(nil) = %+v, want zero summary", s)
	}
}
