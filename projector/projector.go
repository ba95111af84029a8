// Package projector turns a dividend profile and a simulated investment into
// an illustrative multi-horizon earnings table.
package projector

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"divcal/models"
)

// ErrInvalidInput is returned when a projection would divide by a
// non-positive amount.
var ErrInvalidInput = errors.New("invalid projection input")

var (
	hundred = decimal.NewFromInt(100)
	four    = decimal.NewFromInt(4)

	// FallbackPrice is used when the yield is zero and no price can be implied.
	FallbackPrice = decimal.NewFromInt(100)
)

// EstimatePricePerShare backs an implied share price out of the last payment
// and the annual yield, treating the payment as one quarter of the annual
// dividend whatever the classified frequency. Annual and semi-annual payers
// are therefore mispriced; this approximation is intentional.
func EstimatePricePerShare(lastAmount, annualYieldPct decimal.Decimal) decimal.Decimal {
	if !annualYieldPct.IsPositive() {
		return FallbackPrice
	}
	quarterlyYield := annualYieldPct.Div(hundred).Div(four)
	return lastAmount.Div(quarterlyYield)
}

type horizon struct {
	label    string
	payments func(perYear int) int
}

// horizons are emitted in this order. Payment counts never decrease down the
// list for any perYear >= 1.
var horizons = []horizon{
	{models.HorizonSinglePayment, func(int) int { return 1 }},
	{models.HorizonSixMonths, func(n int) int { return (n + 1) / 2 }},
	{models.HorizonOneYear, func(n int) int { return n }},
	{models.HorizonTwoYears, func(n int) int { return n * 2 }},
	{models.HorizonFiveYears, func(n int) int { return n * 5 }},
}

// Project simulates investing amount in the profile's security. rate converts
// from the security's currency to the investor's; amounts in the result are
// in the investor's currency.
func Project(profile models.DividendProfile, amount decimal.Decimal, rate models.ExchangeRate) (*models.Projection, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: investment amount must be positive, got %s", ErrInvalidInput, amount)
	}
	if !rate.Value.IsPositive() {
		return nil, fmt.Errorf("%w: exchange rate must be positive, got %s", ErrInvalidInput, rate.Value)
	}

	price := EstimatePricePerShare(profile.LastDividendAmount, profile.AnnualYieldPct).Mul(rate.Value)
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: estimated price for %s is not positive", ErrInvalidInput, profile.Symbol)
	}

	shares := amount.Div(price)
	perPayment := shares.Mul(profile.LastDividendAmount.Mul(rate.Value))
	perYear := profile.Frequency.PaymentsPerYear()

	rows := make([]models.ProjectionRow, 0, len(horizons))
	for _, h := range horizons {
		count := h.payments(perYear)
		earnings := perPayment.Mul(decimal.NewFromInt(int64(count)))
		rows = append(rows, models.ProjectionRow{
			HorizonLabel:      h.label,
			PaymentCount:      count,
			ProjectedEarnings: earnings,
			YieldOnCapitalPct: earnings.Div(amount).Mul(hundred),
		})
	}

	currency := rate.To
	if currency == "" {
		currency = profile.Currency
	}

	return &models.Projection{
		Symbol:           profile.Symbol,
		DisplayName:      profile.DisplayName,
		Frequency:        profile.Frequency,
		InvestmentAmount: amount,
		Currency:         currency,
		ExchangeRate:     rate,
		PricePerShare:    price,
		Shares:           shares,
		PaymentsPerYear:  perYear,
		Rows:             rows,
	}, nil
}
