package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"divcal/models"
)

// getTestDB returns a repository connected to the test database.
// If DATABASE_URL is not set, the test is skipped.
func getTestDB(t *testing.T) *Repository {
	t.Helper()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo, err := NewRepository(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return repo
}

// cleanupCache removes all test cache entries
func cleanupCache(t *testing.T, repo *Repository) {
	t.Helper()
	repo.pool.Exec(context.Background(), "DELETE FROM market_data_cache WHERE symbol LIKE 'TEST%'")
}

// cleanupReports removes the given batch reports
func cleanupReports(t *testing.T, repo *Repository, ids ...uuid.UUID) {
	t.Helper()
	for _, id := range ids {
		repo.pool.Exec(context.Background(), "DELETE FROM batch_reports WHERE id = $1", id)
	}
}

func TestRepository_NoDatabase(t *testing.T) {
	repo := &Repository{}
	ctx := context.Background()

	if _, err := repo.GetCachedData(ctx, "KO", "x"); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("GetCachedData error = %v, want ErrNoDatabase", err)
	}
	if err := repo.SetCachedData(ctx, "KO", "x", []byte("{}"), time.Minute); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("SetCachedData error = %v, want ErrNoDatabase", err)
	}
	if err := repo.SaveBatchReport(ctx, models.NewBatchReport(0)); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("SaveBatchReport error = %v, want ErrNoDatabase", err)
	}
	if err := repo.Health(ctx); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("Health error = %v, want ErrNoDatabase", err)
	}
	repo.Close()
}

func TestSchemaEmbedded(t *testing.T) {
	if schemaSQL == "" {
		t.Fatal("schema should be embedded")
	}
	for _, table := range []string{"market_data_cache", "batch_reports"} {
		if !strings.Contains(schemaSQL, table) {
			t.Errorf("schema missing table %s", table)
		}
	}
}

// =============================================================================
// Cache Tests
// =============================================================================

func TestRepository_Cache_RoundTrip(t *testing.T) {
	repo := getTestDB(t)
	defer repo.Close()
	defer cleanupCache(t, repo)

	ctx := context.Background()
	payload := []byte(`[{"payment_date":"2024-03-14T00:00:00Z","amount":"0.485"}]`)

	if err := repo.SetCachedData(ctx, "TESTKO", "dividend_history", payload, time.Hour); err != nil {
		t.Fatalf("SetCachedData failed: %v", err)
	}

	got, err := repo.GetCachedData(ctx, "TESTKO", "dividend_history")
	if err != nil {
		t.Fatalf("GetCachedData failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached data")
	}

	// Overwrite keeps one row
	if err := repo.SetCachedData(ctx, "TESTKO", "dividend_history", []byte(`[]`), time.Hour); err != nil {
		t.Fatalf("SetCachedData overwrite failed: %v", err)
	}
	got, _ = repo.GetCachedData(ctx, "TESTKO", "dividend_history")
	if string(got) != "[]" {
		t.Errorf("overwritten data = %s, want []", got)
	}

	if err := repo.InvalidateCache(ctx, "TESTKO", "dividend_history"); err != nil {
		t.Fatalf("InvalidateCache failed: %v", err)
	}
	got, err = repo.GetCachedData(ctx, "TESTKO", "dividend_history")
	if err != nil || got != nil {
		t.Errorf("after invalidate got %s, %v; want nil, nil", got, err)
	}
}

func TestRepository_Cache_Expired(t *testing.T) {
	repo := getTestDB(t)
	defer repo.Close()
	defer cleanupCache(t, repo)

	ctx := context.Background()
	if err := repo.SetCachedData(ctx, "TESTEXP", "fundamentals", []byte(`{}`), -time.Minute); err != nil {
		t.Fatalf("SetCachedData failed: %v", err)
	}

	got, err := repo.GetCachedData(ctx, "TESTEXP", "fundamentals")
	if err != nil || got != nil {
		t.Errorf("expired entry returned %s, %v; want nil, nil", got, err)
	}

	n, err := repo.CleanExpiredCache(ctx)
	if err != nil {
		t.Fatalf("CleanExpiredCache failed: %v", err)
	}
	if n < 1 {
		t.Errorf("CleanExpiredCache removed %d rows, want >= 1", n)
	}
}

func TestRepository_InvalidateAllCacheForSymbol(t *testing.T) {
	repo := getTestDB(t)
	defer repo.Close()
	defer cleanupCache(t, repo)

	ctx := context.Background()
	repo.SetCachedData(ctx, "TESTALL", "dividend_history", []byte(`[]`), time.Hour)
	repo.SetCachedData(ctx, "TESTALL", "fundamentals", []byte(`{}`), time.Hour)

	if err := repo.InvalidateAllCacheForSymbol(ctx, "TESTALL"); err != nil {
		t.Fatalf("InvalidateAllCacheForSymbol failed: %v", err)
	}
	for _, dt := range []string{"dividend_history", "fundamentals"} {
		if got, _ := repo.GetCachedData(ctx, "TESTALL", dt); got != nil {
			t.Errorf("%s still cached", dt)
		}
	}
}

// =============================================================================
// Batch Report Tests
// =============================================================================

func TestRepository_BatchReports(t *testing.T) {
	repo := getTestDB(t)
	defer repo.Close()

	ctx := context.Background()

	older := models.NewBatchReport(2)
	older.StartedAt = time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)
	older.Record(models.SymbolOutcome{Symbol: "KO", Status: models.OutcomeSuccess})
	older.Complete(1200)

	newer := models.NewBatchReport(2)
	newer.StartedAt = time.Now().UTC().Truncate(time.Microsecond)
	newer.Record(models.SymbolOutcome{Symbol: "KO", Status: models.OutcomeSuccess})
	newer.Record(models.SymbolOutcome{Symbol: "BAD", Status: models.OutcomeFailed, Reason: "timeout"})
	newer.Complete(900)

	defer cleanupReports(t, repo, older.ID, newer.ID)

	for _, r := range []*models.BatchReport{older, newer} {
		if err := repo.SaveBatchReport(ctx, r); err != nil {
			t.Fatalf("SaveBatchReport failed: %v", err)
		}
	}

	got, err := repo.GetBatchReport(ctx, newer.ID)
	if err != nil {
		t.Fatalf("GetBatchReport failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected report")
	}
	if got.DurationMs != 900 || len(got.Outcomes) != 2 || got.Outcomes[1].Reason != "timeout" {
		t.Errorf("GetBatchReport = %+v", got)
	}

	latest, err := repo.GetLatestBatchReport(ctx)
	if err != nil {
		t.Fatalf("GetLatestBatchReport failed: %v", err)
	}
	if latest == nil || latest.StartedAt.Before(newer.StartedAt) {
		t.Errorf("latest = %+v, want a report at or after %v", latest, newer.StartedAt)
	}

	history, err := repo.GetBatchReportHistory(ctx, 2)
	if err != nil {
		t.Fatalf("GetBatchReportHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("len(history) = %d, want 2", len(history))
	}

	missing, err := repo.GetBatchReport(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("missing report = %+v, %v; want nil, nil", missing, err)
	}
}
