// Package calendar builds the dividend catalog for a symbol universe.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"divcal/models"
	"divcal/observability"
	"divcal/profiler"
	"divcal/services"
)

// DefaultMaxConcurrent bounds parallel symbol fetches when unset.
const DefaultMaxConcurrent = 4

// DefaultCacheTTL is how long a built catalog is reused.
const DefaultCacheTTL = time.Hour

// DefaultBuildTimeout bounds a build once no caller is waiting for it.
const DefaultBuildTimeout = 10 * time.Minute

// Calendar fetches market data per symbol and assembles the catalog.
// A failure on one symbol is recorded and never aborts the batch.
type Calendar struct {
	provider      services.MarketDataProvider
	maxConcurrent int
	cache         *cache.Cache
	builds        singleflight.Group
	buildTimeout  time.Duration
	now           func() time.Time

	mu         sync.RWMutex
	lastReport *models.BatchReport
}

type cachedBuild struct {
	catalog *models.Catalog
	report  *models.BatchReport
}

// symbolResult is the outcome of processing one symbol
type symbolResult struct {
	index   int
	profile models.DividendProfile
	outcome models.SymbolOutcome
}

// New creates a Calendar. Non-positive arguments fall back to defaults.
func New(provider services.MarketDataProvider, maxConcurrent int, cacheTTL time.Duration) *Calendar {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Calendar{
		provider:      provider,
		maxConcurrent: maxConcurrent,
		cache:         cache.New(cacheTTL, 2*cacheTTL),
		buildTimeout:  DefaultBuildTimeout,
		now:           time.Now,
	}
}

// GetDividendData returns the catalog for symbols, reusing a cached build of
// the same universe while it is fresh.
func (c *Calendar) GetDividendData(ctx context.Context, symbols []string) (*models.Catalog, *models.BatchReport) {
	key := universeKey(symbols)
	metrics := observability.GetMetrics()

	if v, found := c.cache.Get(key); found {
		metrics.RecordCacheHit("catalog")
		build := v.(cachedBuild)
		report := *build.report
		report.FromCache = true
		return build.catalog, &report
	}
	metrics.RecordCacheMiss("catalog")

	return c.Refresh(ctx, symbols)
}

// Refresh rebuilds the catalog from the provider, bypassing the cache.
// Concurrent builds of the same universe share one provider pass. The build
// does not stop when ctx is done: a caller that gives up gets a report with
// every symbol failed, while the build finishes and fills the cache.
func (c *Calendar) Refresh(ctx context.Context, symbols []string) (*models.Catalog, *models.BatchReport) {
	symbols = normalize(symbols)
	key := strings.Join(symbols, ",")

	ch := c.builds.DoChan(key, func() (interface{}, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.buildTimeout)
		defer cancel()
		return c.build(buildCtx, key, symbols), nil
	})

	select {
	case res := <-ch:
		b := res.Val.(cachedBuild)
		return b.catalog, b.report
	case <-ctx.Done():
		observability.Warn("caller left before the catalog build finished",
			"symbols", len(symbols),
			"error", ctx.Err())
		return c.abandoned(symbols, ctx.Err())
	}
}

// build runs one provider pass and caches the result unless ctx expired
// during it, in which case later callers rebuild.
func (c *Calendar) build(ctx context.Context, key string, symbols []string) cachedBuild {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	report := models.NewBatchReport(len(symbols))
	logger := observability.WithBatch(report.ID.String())

	logger.Info("building dividend catalog",
		"symbols", len(symbols),
		"max_concurrent", c.maxConcurrent)

	results := c.fetchInParallel(ctx, symbols)

	catalog := models.NewCatalog(c.now())
	for _, r := range results {
		report.Record(r.outcome)
		metrics.RecordProfileOutcome(string(r.outcome.Status))
		if r.outcome.Status != models.OutcomeSuccess {
			continue
		}
		catalog.Add(r.profile)
		metrics.RecordProfile(r.profile.ReliabilityStars, r.profile.AnnualYieldPct.InexactFloat64())
	}

	report.Complete(timer.Duration().Milliseconds())
	timer.ObserveCatalogBuild("provider", catalog.Len())

	logger.Info("dividend catalog built",
		"profiles", catalog.Len(),
		"skipped", report.Count(models.OutcomeSkipped),
		"failed", report.Count(models.OutcomeFailed),
		"duration_ms", report.DurationMs)

	if err := ctx.Err(); err != nil {
		logger.Warn("catalog build ran out of time, not caching", "error", err)
	} else {
		c.cache.Set(key, cachedBuild{catalog: catalog, report: report}, cache.DefaultExpiration)
	}

	c.mu.Lock()
	c.lastReport = report
	c.mu.Unlock()

	return cachedBuild{catalog: catalog, report: report}
}

// abandoned is the result handed to a caller whose context ended first
func (c *Calendar) abandoned(symbols []string, err error) (*models.Catalog, *models.BatchReport) {
	report := models.NewBatchReport(len(symbols))
	for _, sym := range symbols {
		report.Record(failed(sym, err))
	}
	report.Complete(0)
	return models.NewCatalog(c.now()), report
}

// LastReport returns the report of the most recent build, or nil
func (c *Calendar) LastReport() *models.BatchReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastReport
}

// Invalidate drops every cached catalog
func (c *Calendar) Invalidate() {
	c.cache.Flush()
}

// fetchInParallel profiles symbols concurrently with a semaphore limit.
// Results keep the input order.
func (c *Calendar) fetchInParallel(ctx context.Context, symbols []string) []symbolResult {
	results := make(chan symbolResult, len(symbols))
	sem := make(chan struct{}, c.maxConcurrent)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		wg.Add(1)
		go func(idx int, sym string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- symbolResult{index: idx, outcome: failed(sym, ctx.Err())}
				return
			}

			profile, outcome := c.profileSymbol(ctx, sym)
			results <- symbolResult{index: idx, profile: profile, outcome: outcome}
		}(i, symbol)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]symbolResult, len(symbols))
	for r := range results {
		ordered[r.index] = r
	}
	return ordered
}

// profileSymbol fetches one symbol and builds its profile
func (c *Calendar) profileSymbol(ctx context.Context, symbol string) (models.DividendProfile, models.SymbolOutcome) {
	history, err := c.provider.GetDividendHistory(ctx, symbol)
	if err != nil {
		if errors.Is(err, services.ErrNoData) {
			return models.DividendProfile{}, skipped(symbol, "no dividend history")
		}
		observability.Warn("dividend history fetch failed", "symbol", symbol, "error", err)
		return models.DividendProfile{}, failed(symbol, err)
	}

	var snapshot models.FundamentalsSnapshot
	fundamentals, err := c.provider.GetFundamentals(ctx, symbol)
	switch {
	case err == nil && fundamentals != nil:
		snapshot = *fundamentals
	case err == nil || errors.Is(err, services.ErrNoData):
		// Profile still builds; yield and size scoring see unknowns.
		observability.Debug("no fundamentals", "symbol", symbol)
	default:
		observability.Warn("fundamentals fetch failed", "symbol", symbol, "error", err)
		return models.DividendProfile{}, failed(symbol, err)
	}

	profile, ok := profiler.BuildProfile(symbol, history, snapshot)
	if !ok {
		return models.DividendProfile{}, skipped(symbol, "no dividend history")
	}

	return profile, models.SymbolOutcome{Symbol: profile.Symbol, Status: models.OutcomeSuccess}
}

func skipped(symbol, reason string) models.SymbolOutcome {
	return models.SymbolOutcome{Symbol: symbol, Status: models.OutcomeSkipped, Reason: reason}
}

func failed(symbol string, err error) models.SymbolOutcome {
	return models.SymbolOutcome{Symbol: symbol, Status: models.OutcomeFailed, Reason: fmt.Sprint(err)}
}

// normalize upper-cases symbols and drops blanks and duplicates, keeping order
func normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func universeKey(symbols []string) string {
	return strings.Join(normalize(symbols), ",")
}
