package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"divcal/models"
	"divcal/observability"
)

const (
	baseCurrency     = "EUR"
	rateLookbackDays = 7
	rateCacheTTL     = 12 * time.Hour
)

// fallbackRates are used when the live source cannot be reached.
// Any pair not listed falls back to 1.
var fallbackRates = map[string]decimal.Decimal{
	"USD/EUR": decimal.RequireFromString("0.85"),
}

// ecbResponse is the SDMX-JSON subset holding the observation values
type ecbResponse struct {
	DataSets []struct {
		Series map[string]struct {
			Observations map[string][]decimal.NullDecimal `json:"observations"`
		} `json:"series"`
	} `json:"dataSets"`
}

// ExchangeRateService converts currencies using ECB reference rates.
// ECB publishes every rate against EUR; other pairs are crossed through it.
type ExchangeRateService struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	retry      RetryConfig
	cache      *cache.Cache
	now        func() time.Time
}

// NewExchangeRateService creates a new ExchangeRateService instance
func NewExchangeRateService(baseURL string, timeout time.Duration) *ExchangeRateService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExchangeRateService{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		retry:      RetryConfig{MaxRetries: 1, InitialBackoff: 200 * time.Millisecond, MaxBackoff: time.Second},
		cache:      cache.New(rateCacheTTL, 2*rateCacheTTL),
		now:        time.Now,
	}
}

// GetRate returns how many units of to one unit of from buys. It never
// fails: an unreachable source yields the fallback rate with a warning.
func (s *ExchangeRateService) GetRate(ctx context.Context, from, to string) models.ExchangeRate {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	metrics := observability.GetMetrics()

	if from == to {
		metrics.RecordExchangeRateLookup(string(models.RateSourceIdentity))
		return models.ExchangeRate{From: from, To: to, Value: decimal.NewFromInt(1), Source: models.RateSourceIdentity}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fromRate, fromCached, err := s.perEuro(ctx, from)
	if err == nil {
		var toRate decimal.Decimal
		var toCached bool
		toRate, toCached, err = s.perEuro(ctx, to)
		if err == nil {
			source := models.RateSourceLive
			if fromCached && toCached {
				source = models.RateSourceCache
			}
			metrics.RecordExchangeRateLookup(string(source))
			return models.ExchangeRate{
				From:   from,
				To:     to,
				Value:  toRate.DivRound(fromRate, 6),
				Source: source,
			}
		}
	}

	observability.Warn("exchange rate unavailable, using fallback",
		"from", from,
		"to", to,
		"error", err)
	metrics.RecordExchangeRateLookup(string(models.RateSourceFallback))

	return models.ExchangeRate{
		From:    from,
		To:      to,
		Value:   FallbackRate(from, to),
		Source:  models.RateSourceFallback,
		Warning: fmt.Sprintf("live rate unavailable (%v); using fallback rate", err),
	}
}

// FallbackRate returns the static rate for a pair
func FallbackRate(from, to string) decimal.Decimal {
	if r, ok := fallbackRates[strings.ToUpper(from)+"/"+strings.ToUpper(to)]; ok {
		return r
	}
	return decimal.NewFromInt(1)
}

// perEuro returns the units of currency per 1 EUR and whether it came from cache
func (s *ExchangeRateService) perEuro(ctx context.Context, currency string) (decimal.Decimal, bool, error) {
	if currency == baseCurrency {
		return decimal.NewFromInt(1), true, nil
	}

	metrics := observability.GetMetrics()
	cacheKey := "ecb-" + currency
	if rate, found := s.cache.Get(cacheKey); found {
		metrics.RecordCacheHit("exchange_rate")
		return rate.(decimal.Decimal), true, nil
	}
	metrics.RecordCacheMiss("exchange_rate")

	rate, err := callExternal(ctx, BreakerECB, "rate", func() (decimal.Decimal, error) {
		var data ecbResponse

		today := s.now().UTC()
		reqURL := fmt.Sprintf("%s/D.%s.EUR.SP00.A?startPeriod=%s&endPeriod=%s&format=jsondata",
			s.baseURL,
			currency,
			today.AddDate(0, 0, -rateLookbackDays).Format(models.DateLayout),
			today.Format(models.DateLayout))

		err := WithRetry(ctx, s.retry, func() error {
			return getJSON(ctx, s.httpClient, "rate", reqURL, &data)
		})
		if err != nil {
			return decimal.Zero, err
		}
		return latestObservation(data)
	})
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%s rate: %w", currency, err)
	}

	s.cache.Set(cacheKey, rate, cache.DefaultExpiration)
	return rate, false, nil
}

// latestObservation picks the observation with the highest time index.
// Holidays come back as null values and are skipped.
func latestObservation(data ecbResponse) (decimal.Decimal, error) {
	if len(data.DataSets) == 0 {
		return decimal.Zero, fmt.Errorf("no dataSets in response: %w", ErrNoData)
	}

	best := -1
	var rate decimal.Decimal
	for _, series := range data.DataSets[0].Series {
		for key, values := range series.Observations {
			idx, err := strconv.Atoi(key)
			if err != nil || idx <= best || len(values) == 0 || !values[0].Valid {
				continue
			}
			if !values[0].Decimal.IsPositive() {
				continue
			}
			best = idx
			rate = values[0].Decimal
		}
	}

	if best < 0 {
		return decimal.Zero, fmt.Errorf("no observation values: %w", ErrNoData)
	}
	return rate, nil
}
