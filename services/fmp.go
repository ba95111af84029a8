package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"divcal/models"
	"divcal/observability"
)

// DefaultFMPBaseURL is the production API root
const DefaultFMPBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPService handles communication with Financial Modeling Prep API
type FMPService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	retry      RetryConfig
}

// NewFMPService creates a new FMPService instance
func NewFMPService(apiKey string, timeout time.Duration) *FMPService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FMPService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    DefaultFMPBaseURL,
		retry:      DefaultRetryConfig,
	}
}

// WithBaseURL points the client at another API root. Empty keeps the current one.
func (s *FMPService) WithBaseURL(baseURL string) *FMPService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// fmpDividendResponse is the stock_dividend history payload
type fmpDividendResponse struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date        string          `json:"date"`
		Label       string          `json:"label"`
		AdjDividend decimal.Decimal `json:"adjDividend"`
		Dividend    decimal.Decimal `json:"dividend"`
		RecordDate  string          `json:"recordDate"`
		PaymentDate string          `json:"paymentDate"`
	} `json:"historical"`
}

// fmpProfileResponse represents the company profile fields used for fundamentals
type fmpProfileResponse struct {
	Symbol      string              `json:"symbol"`
	CompanyName string              `json:"companyName"`
	Price       decimal.NullDecimal `json:"price"`
	MktCap      decimal.NullDecimal `json:"mktCap"`
	LastDiv     decimal.NullDecimal `json:"lastDiv"`
	Currency    string              `json:"currency"`
	Exchange    string              `json:"exchangeShortName"`
}

// fmpRatiosResponse represents trailing ratios from the FMP API
type fmpRatiosResponse struct {
	Symbol         string              `json:"symbol"`
	PayoutRatioTTM decimal.NullDecimal `json:"payoutRatioTTM"`
}

// GetDividendHistory returns the symbol's dividend events in ascending date order.
// FMP's "date" is the ex-dividend date, which is what the profiler projects from.
func (s *FMPService) GetDividendHistory(ctx context.Context, symbol string) ([]models.DividendEvent, error) {
	return callExternal(ctx, BreakerFMP, "dividends", func() ([]models.DividendEvent, error) {
		var resp fmpDividendResponse

		err := WithRetry(ctx, s.retry, func() error {
			reqURL := fmt.Sprintf("%s/historical-price-full/stock_dividend/%s?apikey=%s",
				s.baseURL, url.PathEscape(symbol), url.QueryEscape(s.apiKey))
			return getJSON(ctx, s.httpClient, "dividends", reqURL, &resp)
		})
		if err != nil {
			return nil, err
		}

		events := make([]models.DividendEvent, 0, len(resp.Historical))
		for _, h := range resp.Historical {
			date, err := time.Parse(models.DateLayout, h.Date)
			if err != nil {
				observability.Debug("skipping dividend with bad date", "symbol", symbol, "date", h.Date)
				continue
			}
			amount := h.Dividend
			if amount.IsZero() {
				amount = h.AdjDividend
			}
			if amount.IsNegative() {
				continue
			}
			events = append(events, models.DividendEvent{PaymentDate: date, Amount: amount})
		}

		if len(events) == 0 {
			return nil, fmt.Errorf("dividends for %s: %w", symbol, ErrNoData)
		}

		// FMP lists newest first
		reverseEvents(events)
		return events, nil
	})
}

// GetFundamentals returns the company snapshot. The payout ratio comes from a
// second endpoint; when that call fails the ratio is left unknown.
func (s *FMPService) GetFundamentals(ctx context.Context, symbol string) (*models.FundamentalsSnapshot, error) {
	snapshot, err := callExternal(ctx, BreakerFMP, "profile", func() (*models.FundamentalsSnapshot, error) {
		var profiles []fmpProfileResponse

		err := WithRetry(ctx, s.retry, func() error {
			reqURL := fmt.Sprintf("%s/profile/%s?apikey=%s",
				s.baseURL, url.PathEscape(symbol), url.QueryEscape(s.apiKey))
			return getJSON(ctx, s.httpClient, "profile", reqURL, &profiles)
		})
		if err != nil {
			return nil, err
		}

		if len(profiles) == 0 {
			return nil, fmt.Errorf("profile for %s: %w", symbol, ErrNoData)
		}

		p := profiles[0]
		return &models.FundamentalsSnapshot{
			DisplayName:  strings.TrimSpace(p.CompanyName),
			Currency:     p.Currency,
			CurrentPrice: nullToPtr(p.Price),
			MarketCap:    nullToPtr(p.MktCap),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	payout, err := s.getPayoutRatio(ctx, symbol)
	if err != nil {
		observability.Debug("payout ratio unavailable", "symbol", symbol, "error", err)
	} else {
		snapshot.PayoutRatio = payout
	}

	return snapshot, nil
}

// getPayoutRatio fetches the trailing payout ratio for a symbol
func (s *FMPService) getPayoutRatio(ctx context.Context, symbol string) (*decimal.Decimal, error) {
	return callExternal(ctx, BreakerFMP, "ratios", func() (*decimal.Decimal, error) {
		var ratios []fmpRatiosResponse

		reqURL := fmt.Sprintf("%s/ratios-ttm/%s?apikey=%s",
			s.baseURL, url.PathEscape(symbol), url.QueryEscape(s.apiKey))
		if err := getJSON(ctx, s.httpClient, "ratios", reqURL, &ratios); err != nil {
			return nil, err
		}

		if len(ratios) == 0 || !ratios[0].PayoutRatioTTM.Valid {
			return nil, fmt.Errorf("ratios for %s: %w", symbol, ErrNoData)
		}
		return &ratios[0].PayoutRatioTTM.Decimal, nil
	})
}

func nullToPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func reverseEvents(events []models.DividendEvent) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}
