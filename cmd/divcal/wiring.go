package main

import (
	"context"
	"fmt"
	"time"

	"divcal/calendar"
	"divcal/config"
	"divcal/internal/app"
	"divcal/observability"
	"divcal/repository"
	"divcal/services"
	"divcal/universe"
)

// bootstrap wires the application. The returned cleanup closes the database.
func bootstrap(ctx context.Context, cfg *config.Config) (*app.App, *repository.Repository, func(), error) {
	symbols, err := universe.Resolve(cfg.Calendar.SymbolsFile, cfg.Calendar.Symbols)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load symbol universe: %w", err)
	}

	var repo *repository.Repository
	if cfg.HasDatabase() {
		repo, err = repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			observability.Warn("failed to initialize database, running without market data cache", "error", err)
			repo = nil
		} else if err := repo.EnsureSchema(ctx); err != nil {
			observability.Warn("failed to apply schema, running without market data cache", "error", err)
			repo.Close()
			repo = nil
		}
	}

	provider := newProvider(cfg, repo)
	cal := calendar.New(provider, cfg.Calendar.MaxConcurrent, time.Duration(cfg.Calendar.CacheTTLSeconds)*time.Second)
	rates := services.NewExchangeRateService(cfg.Currency.ECBBaseURL, time.Duration(cfg.Currency.TimeoutSeconds)*time.Second)

	observability.Info("application initialized",
		"provider", cfg.Provider.Name,
		"symbols", len(symbols),
		"database", repo != nil,
		"target_currency", cfg.Currency.Target)

	var application *app.App
	if repo != nil {
		application = app.New(cfg, cal, rates, repo, symbols)
	} else {
		// avoid a typed-nil repository in the interface
		application = app.New(cfg, cal, rates, nil, symbols)
	}

	cleanup := func() { application.Shutdown(context.Background()) }
	return application, repo, cleanup, nil
}

// newProvider selects the market data source and, with a database, wraps it
// in the persistent cache
func newProvider(cfg *config.Config, repo *repository.Repository) services.MarketDataProvider {
	timeout := time.Duration(cfg.Provider.TimeoutSeconds) * time.Second

	var provider services.MarketDataProvider
	switch cfg.Provider.Name {
	case config.ProviderFMP:
		provider = services.NewFMPService(cfg.Provider.FMPAPIKey, timeout).WithBaseURL(cfg.Provider.FMPBaseURL)
	default:
		provider = services.NewYahooService(timeout)
	}

	if repo == nil {
		return provider
	}
	ttl := time.Duration(cfg.Database.CacheTTLMinutes) * time.Minute
	return services.NewCachedProvider(provider, repo, ttl)
}
