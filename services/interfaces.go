package services

import (
	"context"
	"errors"
	"time"

	"divcal/models"
)

// ErrNoData is returned when a provider answers but has nothing for the symbol.
var ErrNoData = errors.New("no data")

// MarketDataProvider supplies per-symbol dividend history and fundamentals.
// Either call may fail for a single symbol without affecting others.
type MarketDataProvider interface {
	GetDividendHistory(ctx context.Context, symbol string) ([]models.DividendEvent, error)
	GetFundamentals(ctx context.Context, symbol string) (*models.FundamentalsSnapshot, error)
}

// ExchangeRateProvider converts between currencies. It never fails: when the
// live source is unavailable it returns a fallback rate flagged as such.
type ExchangeRateProvider interface {
	GetRate(ctx context.Context, from, to string) models.ExchangeRate
}

// CacheStore persists fetched market data for a limited time.
type CacheStore interface {
	GetCachedData(ctx context.Context, symbol, dataType string) ([]byte, error)
	SetCachedData(ctx context.Context, symbol, dataType string, data []byte, ttl time.Duration) error
}

// Compile-time interface verification
var _ MarketDataProvider = (*FMPService)(nil)
var _ MarketDataProvider = (*YahooService)(nil)
var _ MarketDataProvider = (*CachedProvider)(nil)
var _ ExchangeRateProvider = (*ExchangeRateService)(nil)
