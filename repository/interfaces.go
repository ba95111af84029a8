package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"divcal/models"
)

// RepositoryInterface defines all repository operations
type RepositoryInterface interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	// Batch reports
	SaveBatchReport(ctx context.Context, report *models.BatchReport) error
	GetBatchReport(ctx context.Context, id uuid.UUID) (*models.BatchReport, error)
	GetLatestBatchReport(ctx context.Context) (*models.BatchReport, error)
	GetBatchReportHistory(ctx context.Context, limit int) ([]models.BatchReport, error)

	// Cache
	GetCachedData(ctx context.Context, symbol, dataType string) ([]byte, error)
	SetCachedData(ctx context.Context, symbol, dataType string, data []byte, ttl time.Duration) error
	InvalidateCache(ctx context.Context, symbol, dataType string) error
	InvalidateAllCacheForSymbol(ctx context.Context, symbol string) error
	CleanExpiredCache(ctx context.Context) (int64, error)
}

// Compile-time interface verification
var _ RepositoryInterface = (*Repository)(nil)
