package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/MrSnakeDoc/pelican/internal/domain"
	"github.com/MrSnakeDoc/pelican/internal/logger"
	"github.com/MrSnakeDoc/pelican/internal/monitor"
	"github.com/MrSnakeDoc/pelican/internal/registry"
	redisstore "github.com/MrSnakeDoc/pelican/internal/store/redis"
)

const (
	// DefaultPollMin is the shortest wait between two polls
	DefaultPollMin = 7 * time.Minute
	// DefaultPollMax is the longest wait between two polls
	DefaultPollMax = 15 * time.Minute
)

var (
	// ErrAlreadyStarted is returned when Start is called twice
	ErrAlreadyStarted = errors.New("scheduler already started")
	// ErrInvalidWindow is returned for a poll window with min <= 0 or max < min
	ErrInvalidWindow = errors.New("invalid poll window")
)

// PollWindow bounds the random delay between two polls.
type PollWindow struct {
	Min time.Duration
	Max time.Duration
}

// Validate checks that the window can produce a delay.
func (w PollWindow) Validate() error {
	if w.Min < time.Millisecond {
		return fmt.Errorf("%w: min must be >= 1ms, got %v", ErrInvalidWindow, w.Min)
	}
	if w.Max < w.Min {
		return fmt.Errorf("%w: max %v < min %v", ErrInvalidWindow, w.Max, w.Min)
	}
	return nil
}

// MonitorScheduler polls every registered service at jittered intervals.
//
// The next delay is drawn only once a poll has finished, so polls never
// overlap even when a batch runs longer than the window.
type MonitorScheduler struct {
	monitor  *monitor.Monitor
	registry *registry.Registry
	store    *redisstore.Store
	logger   logger.Logger
	window   PollWindow

	rngMu sync.Mutex
	rng   *rand.Rand

	manualTrigger chan struct{}

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewMonitorScheduler creates a new poll scheduler. store may be nil.
func NewMonitorScheduler(
	mon *monitor.Monitor,
	reg *registry.Registry,
	store *redisstore.Store,
	log logger.Logger,
	window PollWindow,
	rng *rand.Rand,
) (*MonitorScheduler, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &MonitorScheduler{
		monitor:       mon,
		registry:      reg,
		store:         store,
		logger:        log,
		window:        window,
		rng:           rng,
		manualTrigger: make(chan struct{}, 1),
		done:          make(chan struct{}),
	}, nil
}

// NextDelay returns a uniformly random delay in [min, max], millisecond granularity.
func (ms *MonitorScheduler) NextDelay() time.Duration {
	lo := ms.window.Min.Milliseconds()
	hi := ms.window.Max.Milliseconds()

	ms.rngMu.Lock()
	n := ms.rng.Int64N(hi - lo + 1)
	ms.rngMu.Unlock()

	return time.Duration(lo+n) * time.Millisecond
}

// Trigger requests an immediate poll. It reports false when one is already pending.
func (ms *MonitorScheduler) Trigger() bool {
	select {
	case ms.manualTrigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start runs a first poll right away and then keeps polling until Stop or ctx is done.
func (ms *MonitorScheduler) Start(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.started {
		return ErrAlreadyStarted
	}
	ms.started = true

	runCtx, cancel := context.WithCancel(ctx)
	ms.cancel = cancel

	go ms.loop(runCtx)
	return nil
}

func (ms *MonitorScheduler) loop(ctx context.Context) {
	defer close(ms.done)

	ms.Poll(ctx)

	for {
		timer := time.NewTimer(ms.NextDelay())

	wait:
		for {
			select {
			case <-timer.C:
				break wait
			case <-ms.manualTrigger:
				ms.logger.Info("manual check triggered")
				ms.Poll(ctx)
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}

		ms.Poll(ctx)
	}
}

// Stop cancels the pending wait and blocks until the poll loop has exited.
// Safe to call more than once, and before Start.
func (ms *MonitorScheduler) Stop() {
	ms.stopOnce.Do(func() {
		ms.mu.Lock()
		started, cancel := ms.started, ms.cancel
		ms.started = true // a later Start must not spawn a loop
		ms.mu.Unlock()

		if !started {
			close(ms.done)
			return
		}
		cancel()
		<-ms.done
	})
}

// Poll checks every registered service once and persists the history (best effort).
func (ms *MonitorScheduler) Poll(ctx context.Context) {
	services := ms.registry.List()
	if len(services) == 0 {
		ms.logger.Debug("no services to check")
		return
	}

	start := time.Now()
	results, err := ms.monitor.CheckAll(ctx, services)
	if err != nil {
		if ctx.Err() == nil {
			ms.logger.Error("service check failed", logger.Error(err))
		}
		return
	}

	online := 0
	for _, r := range results {
		if r.Status != domain.StatusOffline {
			online++
		}
	}
	ms.logger.Info("services checked",
		logger.Int("total", len(results)),
		logger.Int("reachable", online),
		logger.Duration("took", time.Since(start)))

	if ms.store == nil {
		return
	}
	if err := ms.store.SaveStatusRecords(ctx, ms.monitor.History()); err != nil {
		ms.logger.Warn("failed to save status history to redis", logger.Error(err))
	}
}
