package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"divcal/models"
	"divcal/observability"
)

// Cache data types
const (
	CacheTypeHistory      = "dividend_history"
	CacheTypeFundamentals = "fundamentals"
)

// CachedProvider decorates a MarketDataProvider with a persistent cache.
// Cache failures are logged and never fail the lookup.
type CachedProvider struct {
	next  MarketDataProvider
	store CacheStore
	ttl   time.Duration
}

// NewCachedProvider creates a new CachedProvider instance
func NewCachedProvider(next MarketDataProvider, store CacheStore, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, store: store, ttl: ttl}
}

// GetDividendHistory returns cached history when fresh, otherwise fetches and stores it
func (p *CachedProvider) GetDividendHistory(ctx context.Context, symbol string) ([]models.DividendEvent, error) {
	key := cacheKey(symbol)

	var events []models.DividendEvent
	if p.load(ctx, key, CacheTypeHistory, &events) {
		return events, nil
	}

	events, err := p.next.GetDividendHistory(ctx, symbol)
	if err != nil {
		return nil, err
	}

	p.save(ctx, key, CacheTypeHistory, events)
	return events, nil
}

// GetFundamentals returns cached fundamentals when fresh, otherwise fetches and stores them
func (p *CachedProvider) GetFundamentals(ctx context.Context, symbol string) (*models.FundamentalsSnapshot, error) {
	key := cacheKey(symbol)

	var snap models.FundamentalsSnapshot
	if p.load(ctx, key, CacheTypeFundamentals, &snap) {
		return &snap, nil
	}

	fetched, err := p.next.GetFundamentals(ctx, symbol)
	if err != nil {
		return nil, err
	}

	p.save(ctx, key, CacheTypeFundamentals, fetched)
	return fetched, nil
}

func (p *CachedProvider) load(ctx context.Context, symbol, dataType string, out any) bool {
	metrics := observability.GetMetrics()

	data, err := p.store.GetCachedData(ctx, symbol, dataType)
	if err != nil {
		observability.Warn("cache read failed", "symbol", symbol, "data_type", dataType, "error", err)
		metrics.RecordCacheMiss(dataType)
		return false
	}
	if data == nil {
		metrics.RecordCacheMiss(dataType)
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		observability.Warn("cache entry unreadable", "symbol", symbol, "data_type", dataType, "error", err)
		metrics.RecordCacheMiss(dataType)
		return false
	}

	metrics.RecordCacheHit(dataType)
	return true
}

func (p *CachedProvider) save(ctx context.Context, symbol, dataType string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		observability.Warn("cache encode failed", "symbol", symbol, "data_type", dataType, "error", err)
		return
	}
	if err := p.store.SetCachedData(ctx, symbol, dataType, data, p.ttl); err != nil {
		observability.Warn("cache write failed", "symbol", symbol, "data_type", dataType, "error", err)
	}
}

func cacheKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
