package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"divcal/config"
	"divcal/export"
	"divcal/models"
	"divcal/observability"
	"divcal/projector"
	"divcal/repository"
	"divcal/services"
)

// ErrNotFound is returned when a symbol is not in the current catalog
var ErrNotFound = errors.New("not found")

// RepositoryInterface defines the repository operations needed by App
type RepositoryInterface interface {
	Close()
	Health(ctx context.Context) error
	SaveBatchReport(ctx context.Context, report *models.BatchReport) error
	GetLatestBatchReport(ctx context.Context) (*models.BatchReport, error)
	GetBatchReportHistory(ctx context.Context, limit int) ([]models.BatchReport, error)
}

// CatalogBuilder builds the dividend catalog for a symbol universe
type CatalogBuilder interface {
	GetDividendData(ctx context.Context, symbols []string) (*models.Catalog, *models.BatchReport)
	Refresh(ctx context.Context, symbols []string) (*models.Catalog, *models.BatchReport)
}

// SimulateRequest is a what-if investment in one catalog symbol
type SimulateRequest struct {
	Symbol string  `json:"symbol" validate:"required,max=10"`
	Amount decimal.Decimal `json:"amount" validate:"required,gte=100,lte=1000000"`
	// Currency defaults to the configured target currency
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

// App struct holds application dependencies using interfaces for testability
type App struct {
	cfg      *config.Config
	calendar CatalogBuilder
	rates    services.ExchangeRateProvider
	repo     RepositoryInterface
	symbols  []string
	now      func() time.Time

	mu         sync.RWMutex
	lastReport *models.BatchReport
}

// New creates a new App. repo may be nil when no database is configured.
func New(cfg *config.Config, calendar CatalogBuilder, rates services.ExchangeRateProvider, repo RepositoryInterface, symbols []string) *App {
	return &App{
		cfg:      cfg,
		calendar: calendar,
		rates:    rates,
		repo:     repo,
		symbols:  symbols,
		now:      time.Now,
	}
}

// Shutdown releases the repository
func (a *App) Shutdown(ctx context.Context) {
	if a.repo != nil {
		a.repo.Close()
	}
}

// Repo returns the repository interface for API handlers
func (a *App) Repo() RepositoryInterface {
	return a.repo
}

// Symbols returns a copy of the configured universe
func (a *App) Symbols() []string {
	out := make([]string, len(a.symbols))
	copy(out, a.symbols)
	return out
}

// Catalog returns the dividend catalog, rebuilding it when refresh is set
func (a *App) Catalog(ctx context.Context, refresh bool) (*models.Catalog, *models.BatchReport) {
	var (
		catalog *models.Catalog
		report  *models.BatchReport
	)
	if refresh {
		catalog, report = a.calendar.Refresh(ctx, a.symbols)
	} else {
		catalog, report = a.calendar.GetDividendData(ctx, a.symbols)
	}

	// A caller that gave up gets a placeholder report; the real build
	// finishes in the background and is picked up by the next call.
	if ctx.Err() != nil {
		return catalog, report
	}

	if !report.FromCache {
		a.saveReport(ctx, report)
	}

	a.mu.Lock()
	a.lastReport = report
	a.mu.Unlock()

	return catalog, report
}

// Profiles returns the catalog profiles matching filter together with their summary
func (a *App) Profiles(ctx context.Context, filter models.CatalogFilter) ([]models.DividendProfile, models.CatalogSummary) {
	catalog, _ := a.Catalog(ctx, false)
	profiles := catalog.Filter(filter)
	return profiles, models.Summarize(profiles)
}

// Profile returns the catalog profile for symbol
func (a *App) Profile(ctx context.Context, symbol string) (models.DividendProfile, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return models.DividendProfile{}, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}

	catalog, _ := a.Catalog(ctx, false)
	profile, ok := catalog.Get(symbol)
	if !ok {
		return models.DividendProfile{}, fmt.Errorf("%w: no dividend profile for %s", ErrNotFound, symbol)
	}
	return profile, nil
}

// Simulate projects dividend earnings for investing req.Amount in req.Symbol.
// Amounts in the projection are in the requested currency.
func (a *App) Simulate(ctx context.Context, req SimulateRequest) (*models.Projection, error) {
	metrics := observability.GetMetrics()

	if err := validateStruct(ctx, req); err != nil {
		metrics.RecordSimulation("invalid")
		return nil, err
	}

	profile, err := a.Profile(ctx, req.Symbol)
	if err != nil {
		metrics.RecordSimulation("not_found")
		return nil, err
	}

	target := strings.ToUpper(req.Currency)
	if target == "" {
		target = a.cfg.Currency.Target
	}

	rate := a.rates.GetRate(ctx, profile.Currency, target)
	if rate.IsFallback() {
		observability.Warn("using fallback exchange rate",
			"from", rate.From,
			"to", rate.To,
			"rate", rate.Value.String(),
			"warning", rate.Warning)
	}

	projection, err := projector.Project(profile, req.Amount, rate)
	if err != nil {
		metrics.RecordSimulation("invalid")
		return nil, err
	}

	metrics.RecordSimulation("success")
	observability.WithSymbol(profile.Symbol).Debug("simulation projected",
		"amount", req.Amount.String(),
		"currency", target,
		"shares", projection.Shares.StringFixed(4))

	return projection, nil
}

// ExportCSV writes the filtered catalog as CSV and returns the suggested file name
func (a *App) ExportCSV(ctx context.Context, w io.Writer, filter models.CatalogFilter) (string, error) {
	profiles, _ := a.Profiles(ctx, filter)
	if err := export.WriteCSV(w, profiles); err != nil {
		return "", fmt.Errorf("failed to export catalog: %w", err)
	}
	return export.FileName(a.now()), nil
}

// Report returns the most recent batch report. It falls back to the last
// persisted report, and returns nil when no catalog was ever built.
func (a *App) Report(ctx context.Context) (*models.BatchReport, error) {
	a.mu.RLock()
	report := a.lastReport
	a.mu.RUnlock()
	if report != nil {
		return report, nil
	}

	if a.repo == nil {
		return nil, nil
	}
	return a.repo.GetLatestBatchReport(ctx)
}

// ReportHistory returns persisted batch reports, newest first
func (a *App) ReportHistory(ctx context.Context, limit int) ([]models.BatchReport, error) {
	if a.repo == nil {
		return nil, repository.ErrNoDatabase
	}
	return a.repo.GetBatchReportHistory(ctx, limit)
}

func (a *App) saveReport(ctx context.Context, report *models.BatchReport) {
	if a.repo == nil {
		return
	}
	if err := a.repo.SaveBatchReport(ctx, report); err != nil {
		observability.Warn("failed to save batch report", "batch_id", report.ID.String(), "error", err)
	}
}
