package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ormeda/labdesk/internal/apperr"
	"github.com/ormeda/labdesk/internal/application/port"
)

// CounterRepository implements port.CounterRepository with a durable per-kind,
// per-day counter row. Sequences survive restarts; they are never derived from
// row counts, so deletes cannot cause number reuse.
type CounterRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(db *sql.DB, logger *zap.Logger) port.CounterRepository {
	return &CounterRepository{
		db:     db,
		logger: logger,
	}
}

// Next atomically increments and returns the counter for (kind, dateKey)
func (r *CounterRepository) Next(ctx context.Context, kind, dateKey string) (int64, error) {
	query := `
		INSERT INTO document_counters (kind, date_key, value)
		VALUES (?, ?, 1)
		ON CONFLICT(kind, date_key) DO UPDATE SET value = value + 1
		RETURNING value
	`

	var value int64
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, kind, dateKey).Scan(&value)
	if err != nil {
		r.logger.Error("Failed to advance document counter",
			zap.String("kind", kind),
			zap.String("date_key", dateKey),
			zap.Error(err))
		return 0, fmt.Errorf("failed to advance document counter: %w", conflictOnBusy(err))
	}
	return value, nil
}

// conflictOnBusy surfaces driver busy/locked errors as ErrConcurrencyConflict
// so the numbering service can retry instead of failing the allocation.
func conflictOnBusy(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%v: %w", err, apperr.ErrConcurrencyConflict)
	}
	return err
}

// getExecutor returns appropriate executor based on context
func (r *CounterRepository) getExecutor(ctx context.Context) executor {
	return txExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.CounterRepository = (*CounterRepository)(nil)
