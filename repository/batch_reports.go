package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"divcal/models"
	"divcal/observability"
)

const batchTable = "batch_reports"

// SaveBatchReport inserts or replaces a catalog build report
func (r *Repository) SaveBatchReport(ctx context.Context, report *models.BatchReport) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("upsert", batchTable)

	outcomesJSON, err := json.Marshal(report.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal outcomes: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO batch_reports (id, started_at, duration_ms, succeeded, skipped, failed, outcomes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET duration_ms = EXCLUDED.duration_ms, succeeded = EXCLUDED.succeeded,
			skipped = EXCLUDED.skipped, failed = EXCLUDED.failed, outcomes = EXCLUDED.outcomes
	`, report.ID, report.StartedAt, report.DurationMs,
		report.Count(models.OutcomeSuccess),
		report.Count(models.OutcomeSkipped),
		report.Count(models.OutcomeFailed),
		outcomesJSON)

	if err != nil {
		metrics.RecordDBError("upsert", batchTable)
		return fmt.Errorf("failed to save batch report: %w", err)
	}

	return nil
}

// GetBatchReport returns a report by ID, or nil when it does not exist
func (r *Repository) GetBatchReport(ctx context.Context, id uuid.UUID) (*models.BatchReport, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", batchTable)

	report, err := scanBatchReport(r.db.QueryRow(ctx, `
		SELECT id, started_at, duration_ms, outcomes
		FROM batch_reports
		WHERE id = $1
	`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", batchTable)
		return nil, fmt.Errorf("failed to get batch report: %w", err)
	}
	return report, nil
}

// GetLatestBatchReport returns the most recent report, or nil when none exist
func (r *Repository) GetLatestBatchReport(ctx context.Context) (*models.BatchReport, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", batchTable)

	report, err := scanBatchReport(r.db.QueryRow(ctx, `
		SELECT id, started_at, duration_ms, outcomes
		FROM batch_reports
		ORDER BY started_at DESC
		LIMIT 1
	`))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", batchTable)
		return nil, fmt.Errorf("failed to get latest batch report: %w", err)
	}
	return report, nil
}

// GetBatchReportHistory returns recent reports, newest first
func (r *Repository) GetBatchReportHistory(ctx context.Context, limit int) ([]models.BatchReport, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", batchTable)

	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, started_at, duration_ms, outcomes
		FROM batch_reports
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		metrics.RecordDBError("select", batchTable)
		return nil, fmt.Errorf("failed to get batch report history: %w", err)
	}
	defer rows.Close()

	var reports []models.BatchReport
	for rows.Next() {
		report, err := scanBatchReport(rows)
		if err != nil {
			metrics.RecordDBError("select", batchTable)
			return nil, fmt.Errorf("failed to scan batch report: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch reports: %w", err)
	}

	return reports, nil
}

func scanBatchReport(row pgx.Row) (*models.BatchReport, error) {
	var report models.BatchReport
	var outcomesJSON []byte

	if err := row.Scan(&report.ID, &report.StartedAt, &report.DurationMs, &outcomesJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(outcomesJSON, &report.Outcomes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outcomes: %w", err)
	}
	return &report, nil
}
