package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/events"
	"github.com/yourorg/storefront/internal/observability/metrics"
	"github.com/yourorg/storefront/pkg/cache"
)

// StatsWorker periodically reconciles the catalog and order gauges against
// the database so dashboards stay honest even when counters drift (process
// restarts, writes from other instances).
type StatsWorker struct {
	productRepo domain.ProductRepository
	orderRepo   domain.OrderRepository
	broadcaster *events.Broadcaster
	memCache    *cache.Cache
	logger      *slog.Logger
	interval    time.Duration
}

// NewStatsWorker creates a stats worker. broadcaster and memCache may be nil.
func NewStatsWorker(
	productRepo domain.ProductRepository,
	orderRepo domain.OrderRepository,
	broadcaster *events.Broadcaster,
	memCache *cache.Cache,
	logger *slog.Logger,
	interval time.Duration,
) *StatsWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatsWorker{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		broadcaster: broadcaster,
		memCache:    memCache,
		logger:      logger,
		interval:    interval,
	}
}

// Start runs the reconciliation loop until the context is cancelled
func (w *StatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stats worker started", slog.Duration("interval", w.interval))
	w.reconcile()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case <-ticker.C:
			w.reconcile()
		}
	}
}

func (w *StatsWorker) reconcile() {
	if count, err := w.productRepo.Count(); err != nil {
		w.logger.Warn("failed to count products", slog.String("error", err.Error()))
	} else {
		metrics.SetCatalogSize(count)
	}

	if count, err := w.orderRepo.CountPending(); err != nil {
		w.logger.Warn("failed to count pending orders", slog.String("error", err.Error()))
	} else {
		metrics.SetPendingOrders(count)
	}

	if w.broadcaster != nil {
		metrics.SetFeedSubscribers(w.broadcaster.Subscribers())
	}

	if w.memCache != nil {
		if removed := w.memCache.Sweep(); removed > 0 {
			w.logger.Debug("swept expired cache entries", slog.Int("removed", removed))
		}
	}
}
