package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ormeda/labdesk/internal/application/service"
	"github.com/ormeda/labdesk/internal/domain/entity"
	"github.com/ormeda/labdesk/internal/domain/period"
)

// StatsRefresher periodically recomputes the dashboard roll-up so dashboard
// reads never pay the aggregation cost. The snapshot is replaced atomically;
// a failed refresh keeps the previous snapshot in place.
type StatsRefresher struct {
	stats    service.StatsService
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	snapshot *entity.DashboardSnapshot

	wg   sync.WaitGroup
	done chan struct{}
}

// NewStatsRefresher creates a new stats refresher
func NewStatsRefresher(stats service.StatsService, interval time.Duration, logger *zap.Logger) *StatsRefresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StatsRefresher{
		stats:    stats,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Name returns the worker name
func (w *StatsRefresher) Name() string { return "stats-refresher" }

// Start computes an initial snapshot and launches the refresh loop
func (w *StatsRefresher) Start(ctx context.Context) error {
	w.refresh(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop waits for the refresh loop to exit
func (w *StatsRefresher) Stop() error {
	close(w.done)
	w.wg.Wait()
	return nil
}

// Snapshot returns the most recent dashboard snapshot, if one exists yet.
func (w *StatsRefresher) Snapshot() (*entity.DashboardSnapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot, w.snapshot != nil
}

func (w *StatsRefresher) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *StatsRefresher) refresh(ctx context.Context) {
	now := w.now()

	today, err := w.rangeStats(ctx, period.FilterToday, now)
	if err != nil {
		w.logger.Error("Failed to refresh today stats", zap.Error(err))
		return
	}
	month, err := w.rangeStats(ctx, period.FilterThisMonth, now)
	if err != nil {
		w.logger.Error("Failed to refresh month stats", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.snapshot = &entity.DashboardSnapshot{
		Today:       today,
		ThisMonth:   month,
		RefreshedAt: now,
	}
	w.mu.Unlock()
}

func (w *StatsRefresher) rangeStats(ctx context.Context, f period.Filter, now time.Time) (*entity.PeriodStats, error) {
	r, err := period.Resolve(f, now)
	if err != nil {
		return nil, err
	}
	return w.stats.Stats(ctx, r)
}
