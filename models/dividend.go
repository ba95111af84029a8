package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DividendEvent is a single historical dividend payment.
type DividendEvent struct {
	PaymentDate time.Time       `json:"payment_date"`
	Amount      decimal.Decimal `json:"amount"`
}

// FundamentalsSnapshot holds the point-in-time company attributes used for
// yield and reliability. Pointer fields are optional; nil means the provider
// did not supply the value.
type FundamentalsSnapshot struct {
	DisplayName   string           `json:"display_name"`
	Currency      string           `json:"currency,omitempty"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	PreviousClose *decimal.Decimal `json:"previous_close,omitempty"`
	MarketCap     *decimal.Decimal `json:"market_cap,omitempty"`
	PayoutRatio   *decimal.Decimal `json:"payout_ratio,omitempty"`
}

// NameOr returns the display name, falling back to the given symbol.
func (f FundamentalsSnapshot) NameOr(symbol string) string {
	if name := strings.TrimSpace(f.DisplayName); name != "" {
		return name
	}
	return symbol
}

// EffectivePrice returns the current price, or the previous close when the
// current price is missing. Nil when neither is known.
func (f FundamentalsSnapshot) EffectivePrice() *decimal.Decimal {
	if f.CurrentPrice != nil {
		return f.CurrentPrice
	}
	return f.PreviousClose
}

// CurrencyOr returns the snapshot currency or the given default.
func (f FundamentalsSnapshot) CurrencyOr(def string) string {
	if c := strings.TrimSpace(f.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return def
}

// DefaultCurrency is assumed when a provider does not report one.
const DefaultCurrency = "USD"

// Frequency is the inferred cadence of dividend payments.
type Frequency string

const (
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiAnnual Frequency = "semi_annual"
	FrequencyAnnual     Frequency = "annual"
	FrequencyIrregular  Frequency = "irregular"
	FrequencyUnknown    Frequency = "unknown"
)

// Label returns the human readable form used in tables and CSV output.
func (f Frequency) Label() string {
	switch f {
	case FrequencyQuarterly:
		return "Quarterly"
	case FrequencySemiAnnual:
		return "Semi-annual"
	case FrequencyAnnual:
		return "Annual"
	case FrequencyIrregular:
		return "Irregular"
	default:
		return "N/A"
	}
}

// PaymentsPerYear is the number of payments a year assumed for the cadence.
// Irregular and Unknown count as a single payment a year; the same value is
// used for yield annualization and for earnings projection.
func (f Frequency) PaymentsPerYear() int {
	switch f {
	case FrequencyQuarterly:
		return 4
	case FrequencySemiAnnual:
		return 2
	default:
		return 1
	}
}

// IsValid reports whether f is one of the known frequency classes.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyQuarterly, FrequencySemiAnnual, FrequencyAnnual, FrequencyIrregular, FrequencyUnknown:
		return true
	}
	return false
}

// String returns the wire name of f. The zero value reads as unknown.
func (f Frequency) String() string {
	if f == "" {
		return string(FrequencyUnknown)
	}
	return string(f)
}

// MarshalText implements encoding.TextMarshaler.
func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown classes.
func (f *Frequency) UnmarshalText(text []byte) error {
	v := Frequency(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.IsValid() {
		return fmt.Errorf("unknown dividend frequency %q", text)
	}
	*f = v
	return nil
}

// MaxReliabilityStars caps the reliability score.
const MaxReliabilityStars = 5

// DividendProfile is the derived, immutable dividend summary for one symbol.
// Amounts stay in the security's own currency.
type DividendProfile struct {
	Symbol             string          `json:"symbol"`
	DisplayName        string          `json:"display_name"`
	Currency           string          `json:"currency"`
	Frequency          Frequency       `json:"frequency"`
	NextExDate         time.Time       `json:"next_ex_date"`
	NextPaymentDate    time.Time       `json:"next_payment_date"`
	LastDividendAmount decimal.Decimal `json:"last_dividend_amount"`
	AnnualYieldPct     decimal.Decimal `json:"annual_yield_pct"`
	ReliabilityStars   int             `json:"reliability_stars"`
}

// Stars renders the reliability score as filled and empty stars.
func (p DividendProfile) Stars() string {
	n := p.ReliabilityStars
	if n < 0 {
		n = 0
	}
	if n > MaxReliabilityStars {
		n = MaxReliabilityStars
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", MaxReliabilityStars-n)
}

// DateLayout is the calendar date format used across outputs.
const DateLayout = "2006-01-02"
