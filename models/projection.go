package models

import (
	"github.com/shopspring/decimal"
)

// Horizon labels, in the fixed order the projector emits them.
const (
	HorizonSinglePayment = "Single Payment"
	HorizonSixMonths     = "6 Months"
	HorizonOneYear       = "1 Year"
	HorizonTwoYears      = "2 Years"
	HorizonFiveYears     = "5 Years"
)

// ProjectionRow is the projected dividend income over one horizon.
type ProjectionRow struct {
	HorizonLabel      string          `json:"horizon_label"`
	PaymentCount      int             `json:"payment_count"`
	ProjectedEarnings decimal.Decimal `json:"projected_earnings"`
	YieldOnCapitalPct decimal.Decimal `json:"yield_on_capital_pct"`
}

// RateSource tells where an exchange rate came from.
type RateSource string

const (
	RateSourceIdentity RateSource = "identity"
	RateSourceLive     RateSource = "ecb"
	RateSourceCache    RateSource = "cache"
	RateSourceFallback RateSource = "fallback"
)

// ExchangeRate is a conversion factor between two currencies with its provenance.
type ExchangeRate struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Value  decimal.Decimal `json:"value"`
	Source RateSource      `json:"source"`
	// Warning is set when the fallback rate was used.
	Warning string `json:"warning,omitempty"`
}

// IsFallback reports whether the static fallback rate was used.
func (r ExchangeRate) IsFallback() bool {
	return r.Source == RateSourceFallback
}

// Projection is the full result of a what-if simulation for one profile.
type Projection struct {
	Symbol           string          `json:"symbol"`
	DisplayName      string          `json:"display_name"`
	Frequency        Frequency       `json:"frequency"`
	InvestmentAmount decimal.Decimal `json:"investment_amount"`
	Currency         string          `json:"currency"`
	ExchangeRate     ExchangeRate    `json:"exchange_rate"`
	PricePerShare    decimal.Decimal `json:"price_per_share"`
	Shares           decimal.Decimal `json:"shares"`
	PaymentsPerYear  int             `json:"payments_per_year"`
	Rows             []ProjectionRow `json:"rows"`
}

// Row returns the projection row with the given horizon label.
func (p *Projection) Row(label string) (ProjectionRow, bool) {
	for _, r := range p.Rows {
		if r.HorizonLabel == label {
			return r, true
		}
	}
	return ProjectionRow{}, false
}
