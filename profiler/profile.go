// Package profiler derives a dividend profile from a security's payment
// history and a fundamentals snapshot. Everything here is a pure function of
// its inputs.
package profiler

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"divcal/models"
)

// WindowSize is the number of most recent events used for frequency and
// last-amount inference.
const WindowSize = 10

var (
	hundred = decimal.NewFromInt(100)

	largeCap = decimal.NewFromInt(100_000_000_000)
	midCap   = decimal.NewFromInt(10_000_000_000)

	conservativePayout = decimal.RequireFromString("0.6")
	moderatePayout     = decimal.RequireFromString("0.8")
)

// ComputeYield annualizes a single payment against the share price and
// returns a percentage rounded to two places. A missing or non-positive
// price gives zero.
func ComputeYield(amount decimal.Decimal, freq models.Frequency, price *decimal.Decimal) decimal.Decimal {
	if price == nil || !price.IsPositive() {
		return decimal.Zero
	}
	multiplier := decimal.NewFromInt(int64(freq.PaymentsPerYear()))
	return amount.Mul(multiplier).Div(*price).Mul(hundred).Round(2)
}

// ScoreReliability adds history depth, company size and payout sustainability
// into a 0-5 star score. Missing fundamentals contribute nothing.
func ScoreReliability(history []models.DividendEvent, snapshot models.FundamentalsSnapshot) int {
	score := 0

	switch n := len(history); {
	case n >= 20:
		score += 3
	case n >= 10:
		score += 2
	case n >= 4:
		score += 1
	}

	if mc := snapshot.MarketCap; mc != nil {
		switch {
		case mc.GreaterThan(largeCap):
			score += 2
		case mc.GreaterThan(midCap):
			score += 1
		}
	}

	if pr := snapshot.PayoutRatio; pr != nil {
		switch {
		case pr.LessThan(conservativePayout):
			score += 2
		case pr.LessThan(moderatePayout):
			score += 1
		}
	}

	return min(score, models.MaxReliabilityStars)
}

// BuildProfile composes the profile for one symbol. It reports false when the
// history is empty; such symbols are left out of the catalog.
//
// Frequency and the last amount come from the most recent WindowSize events;
// reliability depth counts the full history.
func BuildProfile(symbol string, history []models.DividendEvent, snapshot models.FundamentalsSnapshot) (models.DividendProfile, bool) {
	if len(history) == 0 {
		return models.DividendProfile{}, false
	}

	sorted := SortHistory(history)
	window := sorted[max(0, len(sorted)-WindowSize):]
	last := window[len(window)-1]

	freq := ClassifyFrequency(window)
	exDate, payDate := EstimateNextDates(last.PaymentDate, freq)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	return models.DividendProfile{
		Symbol:             symbol,
		DisplayName:        snapshot.NameOr(symbol),
		Currency:           snapshot.CurrencyOr(models.DefaultCurrency),
		Frequency:          freq,
		NextExDate:         exDate,
		NextPaymentDate:    payDate,
		LastDividendAmount: last.Amount,
		AnnualYieldPct:     ComputeYield(last.Amount, freq, snapshot.EffectivePrice()),
		ReliabilityStars:   ScoreReliability(sorted, snapshot),
	}, true
}

// SortHistory returns a copy of history in ascending date order. Events on
// the same date keep their relative order.
func SortHistory(history []models.DividendEvent) []models.DividendEvent {
	sorted := slices.Clone(history)
	slices.SortStableFunc(sorted, func(a, b models.DividendEvent) int {
		return a.PaymentDate.Compare(b.PaymentDate)
	})
	return sorted
}
