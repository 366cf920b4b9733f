package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/pelican/internal/logger"
	"github.com/MrSnakeDoc/pelican/internal/monitor"
	"github.com/MrSnakeDoc/pelican/internal/registry"
	redisstore "github.com/MrSnakeDoc/pelican/internal/store/redis"
)

// DefaultGCInterval is how often orphaned status history is collected
const DefaultGCInterval = time.Hour

// GarbageCollector drops status history of services that are no longer configured.
// Removals normally clean up through the registry hook; this catches entries
// restored from Redis for services deleted while pelican was down.
type GarbageCollector struct {
	store    *redisstore.Store
	monitor  *monitor.Monitor
	registry *registry.Registry
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	done     chan struct{}
}

// NewGarbageCollector creates a new garbage collector. store may be nil.
func NewGarbageCollector(
	store *redisstore.Store,
	mon *monitor.Monitor,
	reg *registry.Registry,
	log logger.Logger,
	interval time.Duration,
) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		store:    store,
		monitor:  mon,
		registry: reg,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer close(gc.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gc.Collect(ctx)
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the garbage collector and waits for it to exit. Call it at most once, after Start.
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
	<-gc.done
}

// Collect removes history entries whose service is no longer in the registry.
// It returns the number of names dropped.
func (gc *GarbageCollector) Collect(ctx context.Context) int {
	configured := gc.registry.Names()
	keep := make(map[string]bool, len(configured))
	for _, name := range configured {
		keep[name] = true
	}

	dropped := make(map[string]bool)
	for _, name := range gc.monitor.Retain(configured) {
		dropped[name] = true
	}

	if gc.store != nil {
		stored, err := gc.store.GetStatusHistory(ctx)
		if err != nil {
			gc.logger.Warn("failed to read status history from redis", logger.Error(err))
		}
		for name := range stored {
			if !keep[name] {
				dropped[name] = true
			}
		}
		for name := range dropped {
			if err := gc.store.DeleteStatusRecord(ctx, name); err != nil {
				gc.logger.Warn("failed to delete status record from redis",
					logger.String("service", name),
					logger.Error(err))
			}
		}
	}

	if len(dropped) > 0 {
		gc.logger.Info("garbage collected orphaned status history",
			logger.Int("count", len(dropped)))
	} else {
		gc.logger.Debug("no status history to garbage collect")
	}
	return len(dropped)
}
