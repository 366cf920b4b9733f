package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/pelican/internal/logger"
	"github.com/MrSnakeDoc/pelican/internal/monitor"
	redisstore "github.com/MrSnakeDoc/pelican/internal/store/redis"
)

// HistorySyncer restores the monitor's status history from Redis on startup
type HistorySyncer struct {
	store   *redisstore.Store
	monitor *monitor.Monitor
	logger  logger.Logger
}

// NewHistorySyncer creates a new history syncer
func NewHistorySyncer(
	store *redisstore.Store,
	mon *monitor.Monitor,
	log logger.Logger,
) *HistorySyncer {
	return &HistorySyncer{
		store:   store,
		monitor: mon,
		logger:  log,
	}
}

// Sync loads status records from Redis into the monitor
func (hs *HistorySyncer) Sync(ctx context.Context) error {
	hs.logger.Info("restoring status history from redis")

	history, err := hs.store.GetStatusHistory(ctx)
	if err != nil {
		return err
	}

	if len(history) == 0 {
		hs.logger.Info("no status history found in redis")
		return nil
	}

	restored := hs.monitor.Restore(history)

	hs.logger.Info("restored status history from redis",
		logger.Int("stored", len(history)),
		logger.Int("restored", restored))

	return nil
}
