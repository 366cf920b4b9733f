package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/pelican/internal/domain"
	"github.com/MrSnakeDoc/pelican/internal/logger"
	"github.com/MrSnakeDoc/pelican/internal/metrics"
)

const (
	// DefaultTimeout is the per-request timeout of a service check.
	DefaultTimeout = 10 * time.Second
	// DefaultConcurrency bounds how many services are polled at once.
	DefaultConcurrency = 8
)

// Options configures a Monitor.
type Options struct {
	Probe       Probe            // defaults to an HTTPProbe built from Timeout and UserAgent
	Timeout     time.Duration    // per-request timeout (default: 10s)
	UserAgent   string           // User-Agent sent with each check
	Concurrency int              // max parallel requests per batch (default: 8)
	Now         func() time.Time // clock, defaults to time.Now
}

// Monitor polls services and keeps the per-name status history.
//
// The history map is owned by the Monitor; callers only see copies.
type Monitor struct {
	probe       Probe
	timeout     time.Duration
	concurrency int
	now         func() time.Time
	logger      logger.Logger

	mu      sync.RWMutex
	history map[string]*domain.StatusRecord
	last    []domain.CheckResult

	// removal generations, kept while a batch is in flight so it cannot re-add a removed name
	gen      uint64
	removed  map[string]uint64
	inflight int
}

// New creates a monitor with an empty history.
func New(opts Options, log logger.Logger) *Monitor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Probe == nil {
		opts.Probe = NewHTTPProbe(opts.Timeout, opts.UserAgent)
	}

	return &Monitor{
		probe:       opts.Probe,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		now:         opts.Now,
		logger:      log,
		history:     make(map[string]*domain.StatusRecord),
		removed:     make(map[string]uint64),
	}
}

// outcome is the raw result of one probe, before history is applied.
type outcome struct {
	code    int
	elapsed time.Duration
	err     error
}

// CheckAll polls every service once and returns their results in input order.
//
// A failing service never aborts the batch. All results share the same logical now.
// The only error is a cancelled ctx: the batch is then abandoned and history is left untouched,
// so shutting down never flips every service to offline.
// A service removed with RemoveService while the batch runs is left out of the results.
func (m *Monitor) CheckAll(ctx context.Context, services []domain.ServiceDescriptor) ([]domain.CheckResult, error) {
	now := m.now()
	start := time.Now()

	m.mu.Lock()
	startGen := m.gen
	m.inflight++
	m.mu.Unlock()

	outcomes := make([]outcome, len(services))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, svc := range services {
		g.Go(func() error {
			outcomes[i] = m.probeOne(ctx, svc)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		m.mu.Lock()
		m.finishBatchLocked()
		m.mu.Unlock()
		return nil, fmt.Errorf("check batch abandoned: %w", err)
	}

	results := make([]domain.CheckResult, 0, len(services))

	m.mu.Lock()
	for i, svc := range services {
		if g, ok := m.removed[svc.Name]; ok && g > startGen {
			m.logger.Debug("service removed during check, result dropped",
				logger.String("service", svc.Name))
			continue
		}
		res, changed := m.applyLocked(svc, outcomes[i], now)
		results = append(results, res)
		metrics.ObserveCheck(res, changed)
		if changed {
			m.logger.Info("service status changed",
				logger.String("service", svc.Name),
				logger.String("status", string(res.Status)))
		}
	}
	m.last = cloneResults(results)
	m.finishBatchLocked()
	m.mu.Unlock()

	metrics.ObserveBatch(time.Since(start))
	m.logger.Debug("service check batch completed",
		logger.Int("services", len(services)),
		logger.Duration("elapsed", time.Since(start)))

	return results, nil
}

// finishBatchLocked forgets removal generations once no batch is running. m.mu must be held.
func (m *Monitor) finishBatchLocked() {
	m.inflight--
	if m.inflight == 0 {
		clear(m.removed)
	}
}

func (m *Monitor) probeOne(ctx context.Context, svc domain.ServiceDescriptor) outcome {
	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	started := time.Now()
	code, err := m.probe.Get(reqCtx, svc.URL)
	elapsed := time.Since(started)

	if err != nil {
		m.logger.Debug("service check failed",
			logger.String("service", svc.Name),
			logger.String("url", svc.URL),
			logger.Error(err))
	} else {
		m.logger.Debug("service check completed",
			logger.String("service", svc.Name),
			logger.Int("status_code", code),
			logger.Duration("elapsed", elapsed))
	}

	return outcome{code: code, elapsed: elapsed, err: err}
}

// applyLocked folds one outcome into the history and builds the result. m.mu must be held.
func (m *Monitor) applyLocked(svc domain.ServiceDescriptor, o outcome, now time.Time) (domain.CheckResult, bool) {
	status := domain.StatusOffline
	if o.err == nil {
		status = domain.ClassifyStatusCode(o.code)
	}

	rec, ok := m.history[svc.Name]
	changed := false
	if !ok {
		rec = &domain.StatusRecord{Status: status, Since: now, LastCheck: now}
		m.history[svc.Name] = rec
	} else {
		changed = rec.Observe(status, now)
	}

	seconds := int64(now.Sub(rec.Since) / time.Second)

	res := domain.CheckResult{
		Name:   svc.Name,
		Status: status,
		URL:    svc.URL,
	}
	if o.err != nil {
		res.Error = o.err.Error()
		res.Downtime = &seconds
		return res, changed
	}

	ms := o.elapsed.Milliseconds()
	res.ResponseTime = &ms
	res.StatusCode = o.code
	res.Uptime = &seconds
	return res, changed
}

// RemoveService drops the history entry of a service that left the configuration.
func (m *Monitor) RemoveService(name string) {
	m.mu.Lock()
	delete(m.history, name)
	m.last = dropResult(m.last, name)
	if m.inflight > 0 {
		m.gen++
		m.removed[name] = m.gen
	}
	m.mu.Unlock()

	metrics.ForgetService(name)
	m.logger.Debug("status history dropped", logger.String("service", name))
}

// Retain drops every history entry whose name is not in names and returns the dropped names.
func (m *Monitor) Retain(names []string) []string {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}

	m.mu.RLock()
	var stale []string
	for name := range m.history {
		if _, ok := keep[name]; !ok {
			stale = append(stale, name)
		}
	}
	m.mu.RUnlock()

	for _, name := range stale {
		m.RemoveService(name)
	}
	return stale
}

// Record returns a copy of the history entry for name.
func (m *Monitor) Record(name string) (domain.StatusRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.history[name]
	if !ok {
		return domain.StatusRecord{}, false
	}
	return *rec, true
}

// History returns a snapshot copy of the whole history map.
func (m *Monitor) History() map[string]domain.StatusRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]domain.StatusRecord, len(m.history))
	for name, rec := range m.history {
		out[name] = *rec
	}
	return out
}

// Restore seeds the history from persisted records. Existing entries win.
func (m *Monitor) Restore(records map[string]domain.StatusRecord) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	restored := 0
	for name, rec := range records {
		if _, ok := m.history[name]; ok {
			continue
		}
		if rec.LastCheck.Before(rec.Since) {
			rec.LastCheck = rec.Since
		}
		r := rec
		m.history[name] = &r
		restored++
	}
	return restored
}

// LastResults returns the results of the most recent completed batch.
func (m *Monitor) LastResults() []domain.CheckResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneResults(m.last)
}

func cloneResults(in []domain.CheckResult) []domain.CheckResult {
	if in == nil {
		return nil
	}
	out := make([]domain.CheckResult, len(in))
	copy(out, in)
	return out
}

func dropResult(in []domain.CheckResult, name string) []domain.CheckResult {
	out := in[:0:0]
	for _, r := range in {
		if r.Name != name {
			out = append(out, r)
		}
	}
	return out
}
