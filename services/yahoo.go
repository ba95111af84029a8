package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	yfgo "github.com/komsit37/yf-go"
	"github.com/shopspring/decimal"

	"divcal/models"
	"divcal/observability"
)

// historyLookback bounds the chart request; it covers the full record of
// most long-standing payers.
const historyLookback = 30 * 365 * 24 * time.Hour

// yahooChartResponse is the subset of the chart endpoint used here
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Events struct {
				Dividends map[string]struct {
					Amount decimal.Decimal `json:"amount"`
					Date   int64           `json:"date"`
				} `json:"dividends"`
			} `json:"events"`
			Meta struct {
				Currency           string              `json:"currency"`
				Symbol             string              `json:"symbol"`
				LongName           string              `json:"longName"`
				ShortName          string              `json:"shortName"`
				RegularMarketPrice decimal.NullDecimal `json:"regularMarketPrice"`
				ChartPreviousClose decimal.NullDecimal `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// yahooQuote is the part of a quote summary the fundamentals need
type yahooQuote struct {
	Name        string
	Price       *decimal.Decimal
	MarketCap   *decimal.Decimal
	PayoutRatio *decimal.Decimal
}

// YahooService reads dividend events from the Yahoo chart API and quote
// details through yf-go.
type YahooService struct {
	httpClient   *http.Client
	chartBaseURL string
	timeout      time.Duration
	retry        RetryConfig
	now          func() time.Time
	lookupQuote  func(ctx context.Context, symbol string) (yahooQuote, error)
}

// NewYahooService creates a new YahooService instance
func NewYahooService(timeout time.Duration) *YahooService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &YahooService{
		httpClient:   &http.Client{Timeout: timeout},
		chartBaseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		timeout:      timeout,
		retry:        DefaultRetryConfig,
		now:          time.Now,
	}
	client := yfgo.NewClient()
	s.lookupQuote = func(ctx context.Context, symbol string) (yahooQuote, error) {
		return s.quoteSummary(ctx, client, symbol)
	}
	return s
}

// GetDividendHistory returns the symbol's dividend events in ascending date order
func (s *YahooService) GetDividendHistory(ctx context.Context, symbol string) ([]models.DividendEvent, error) {
	return callExternal(ctx, BreakerYahoo, "dividends", func() ([]models.DividendEvent, error) {
		chart, err := s.fetchChart(ctx, symbol, "dividends")
		if err != nil {
			return nil, err
		}

		result := chart.Chart.Result[0]
		events := make([]models.DividendEvent, 0, len(result.Events.Dividends))
		for _, div := range result.Events.Dividends {
			if !div.Amount.IsPositive() {
				continue
			}
			events = append(events, models.DividendEvent{
				PaymentDate: time.Unix(div.Date, 0).UTC(),
				Amount:      div.Amount,
			})
		}

		if len(events) == 0 {
			return nil, fmt.Errorf("dividends for %s: %w", symbol, ErrNoData)
		}

		// Dividends arrive as a map keyed by timestamp
		slices.SortFunc(events, func(a, b models.DividendEvent) int {
			return a.PaymentDate.Compare(b.PaymentDate)
		})
		return events, nil
	})
}

// GetFundamentals combines the chart metadata with the yf-go price and
// summaryDetail modules. The quote summary is preferred for name and price;
// the chart metadata fills whatever it leaves out.
func (s *YahooService) GetFundamentals(ctx context.Context, symbol string) (*models.FundamentalsSnapshot, error) {
	return callExternal(ctx, BreakerYahoo, "fundamentals", func() (*models.FundamentalsSnapshot, error) {
		chart, err := s.fetchChart(ctx, symbol, "meta")
		if err != nil {
			return nil, err
		}

		meta := chart.Chart.Result[0].Meta
		snap := &models.FundamentalsSnapshot{
			Currency:      meta.Currency,
			CurrentPrice:  nullToPtr(meta.RegularMarketPrice),
			PreviousClose: nullToPtr(meta.ChartPreviousClose),
		}
		switch {
		case meta.LongName != "":
			snap.DisplayName = meta.LongName
		case meta.ShortName != "":
			snap.DisplayName = meta.ShortName
		}

		quote, err := s.lookupQuote(ctx, symbol)
		if err != nil {
			observability.Debug("quote summary unavailable", "symbol", symbol, "error", err)
			return snap, nil
		}
		if quote.Name != "" {
			snap.DisplayName = quote.Name
		}
		if quote.Price != nil {
			snap.CurrentPrice = quote.Price
		}
		snap.MarketCap = quote.MarketCap
		snap.PayoutRatio = quote.PayoutRatio
		return snap, nil
	})
}

// fetchChart requests the daily chart with dividend events for symbol
func (s *YahooService) fetchChart(ctx context.Context, symbol, operation string) (*yahooChartResponse, error) {
	var chart yahooChartResponse

	now := s.now()
	reqURL := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&events=div",
		s.chartBaseURL, url.PathEscape(symbol), now.Add(-historyLookback).Unix(), now.Unix())

	err := WithRetry(ctx, s.retry, func() error {
		return getJSON(ctx, s.httpClient, operation, reqURL, &chart)
	})
	if err != nil {
		return nil, err
	}

	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart for %s: %w", symbol, ErrNoData)
	}
	return &chart, nil
}

// quoteSummary reads the price and summaryDetail modules through yf-go
func (s *YahooService) quoteSummary(ctx context.Context, client *yfgo.Client, symbol string) (yahooQuote, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	modules := []yfgo.QuoteSummaryModule{yfgo.ModulePrice, yfgo.ModuleSummaryDetail}
	res, err := client.QuoteSummaryTyped(cctx, symbol, modules)
	if err != nil {
		return yahooQuote{}, err
	}
	if res.Price == nil {
		return yahooQuote{}, fmt.Errorf("no price for %s", symbol)
	}
	return quoteFromSummary(res), nil
}

// quoteFromSummary maps a typed quote summary onto the fields the
// fundamentals use. res.Price must be non-nil.
func quoteFromSummary(res yfgo.QuoteSummaryTyped) yahooQuote {
	q := yahooQuote{
		Price:     ynumDecimal(res.Price.RegularMarketPrice),
		MarketCap: ynumDecimal(res.Price.MarketCap),
	}
	if res.SummaryDetail != nil {
		q.PayoutRatio = ynumDecimal(res.SummaryDetail.PayoutRatio)
	}

	if res.Price.LongName != "" {
		q.Name = res.Price.LongName
	} else if res.Price.ShortName != "" {
		q.Name = res.Price.ShortName
	}
	return q
}

// ynumDecimal converts a Yahoo number, falling back to its formatted text
func ynumDecimal(n yfgo.YNum) *decimal.Decimal {
	if n.Raw != nil {
		d := decimal.NewFromFloat(*n.Raw)
		return &d
	}
	if n.Fmt == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(n.Fmt, ",", ""))
	if err != nil {
		return nil
	}
	return &d
}
