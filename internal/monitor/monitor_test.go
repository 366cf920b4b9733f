package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/pelican/internal/domain"
	"github.com/MrSnakeDoc/pelican/internal/logger"
)

// scriptedProbe answers each URL from a per-URL queue of outcomes.
type scriptedProbe struct {
	mu      sync.Mutex
	answers map[string][]probeAnswer
	delay   time.Duration
}

type probeAnswer struct {
	code int
	err  error
}

func (p *scriptedProbe) push(url string, a probeAnswer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.answers == nil {
		p.answers = make(map[string][]probeAnswer)
	}
	p.answers[url] = append(p.answers[url], a)
}

func (p *scriptedProbe) Get(ctx context.Context, url string) (int, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.answers[url]
	if len(q) == 0 {
		return 0, errors.New("no scripted answer")
	}
	a := q[0]
	p.answers[url] = q[1:]
	return a.code, a.err
}

// fakeClock is advanced manually between polls.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestMonitor(p Probe, clock *fakeClock) *Monitor {
	return New(Options{Probe: p, Now: clock.Now}, logger.Nop())
}

func TestCheckAll_TransitionTimeline(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: t0}
	probe := &scriptedProbe{}
	mon := newTestMonitor(probe, clock)

	svc := domain.ServiceDescriptor{Name: "API-A", URL: "https://api-a.example.com"}
	refused := errors.New("dial tcp: connection refused")

	steps := []struct {
		at           time.Duration
		answer       probeAnswer
		wantStatus   domain.Status
		wantSince    time.Duration
		wantUptime   bool
		wantDowntime bool
	}{
		{0, probeAnswer{code: 200}, domain.StatusOnline, 0, true, false},
		{60 * time.Second, probeAnswer{code: 503}, domain.StatusDegraded, 60 * time.Second, true, false},
		{120 * time.Second, probeAnswer{code: 200}, domain.StatusOnline, 120 * time.Second, true, false},
		{180 * time.Second, probeAnswer{err: refused}, domain.StatusOffline, 180 * time.Second, false, true},
	}

	for _, step := range steps {
		clock.Set(t0.Add(step.at))
		probe.push(svc.URL, step.answer)

		results, err := mon.CheckAll(context.Background(), []domain.ServiceDescriptor{svc})
		if err != nil {
			t.Fatalf("CheckAll() at %v error: %v", step.at, err)
		}
		if len(results) != 1 {
			t.Fatalf("CheckAll() returned %d results, want 1", len(results))
		}
		res := results[0]

		if res.Status != step.wantStatus {
			t.Errorf("at %v: status = %v, want %v", step.at, res.Status, step.wantStatus)
		}

		rec, ok := mon.Record(svc.Name)
		if !ok {
			t.Fatalf("at %v: no history record", step.at)
		}
		if want := t0.Add(step.wantSince); !rec.Since.Equal(want) {
			t.Errorf("at %v: since = %v, want %v", step.at, rec.Since, want)
		}
		if want := t0.Add(step.at); !rec.LastCheck.Equal(want) {
			t.Errorf("at %v: lastCheck = %v, want %v", step.at, rec.LastCheck, want)
		}

		// Every step is a transition (or first poll): the relative counter restarts at 0
		if step.wantUptime && (res.Uptime == nil || *res.Uptime != 0) {
			t.Errorf("at %v: uptime = %v, want 0", step.at, res.Uptime)
		}
		if step.wantDowntime {
			if res.Downtime == nil || *res.Downtime != 0 {
				t.Errorf("at %v: downtime = %v, want 0", step.at, res.Downtime)
			}
			if res.ResponseTime != nil {
				t.Errorf("at %v: responseTime = %v, want nil on failure", step.at, *res.ResponseTime)
			}
			if res.Error == "" {
				t.Errorf("at %v: expected error message on offline result", step.at)
			}
		}
	}
}

func TestCheckAll_SameStatusKeepsSince(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: t0}
	probe := &scriptedProbe{}
	mon := newTestMonitor(probe, clock)

	svc := domain.ServiceDescriptor{Name: "web", URL: "https://web.example.com"}

	for i := 0; i < 4; i++ {
		at := t0.Add(time.Duration(i) * 90 * time.Second)
		clock.Set(at)
		probe.push(svc.URL, probeAnswer{code: 204})

		results, err := mon.CheckAll(context.Background(), []domain.ServiceDescriptor{svc})
		if err != nil {
			t.Fatalf("CheckAll() error: %v", err)
		}

		rec, _ := mon.Record(svc.Name)
		if !rec.Since.Equal(t0) {
			t.Errorf("poll %d: since = %v, want %v", i, rec.Since, t0)
		}
		if !rec.LastCheck.Equal(at) {
			t.Errorf("poll %d: lastCheck = %v, want %v", i, rec.LastCheck, at)
		}
		wantUptime := int64(i * 90)
		if results[0].Uptime == nil || *results[0].Uptime != wantUptime {
			t.Errorf("poll %d: uptime = %v, want %d", i, results[0].Uptime, wantUptime)
		}
	}
}

func TestCheckAll_DowntimeAccumulates(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: t0}
	probe := &scriptedProbe{}
	mon := newTestMonitor(probe, clock)

	svc := domain.ServiceDescriptor{Name: "down", URL: "https://down.example.com"}
	probe.push(svc.URL, probeAnswer{err: errors.New("timeout")})
	probe.push(svc.URL, probeAnswer{err: errors.New("timeout")})

	if _, err := mon.CheckAll(context.Background(), []domain.ServiceDescriptor{svc}); err != nil {
		t.Fatalf("CheckAll() error: %v", err)
	}
	clock.Set(t0.Add(8 * time.Minute))
	results, err := mon.CheckAll(context.Background(), []domain.ServiceDescriptor{svc})
	if err != nil {
		t.Fatalf("CheckAll() error: %v", err)
	}

	if results[0].Downtime == nil || *results[0].Downtime != 480 {
		t.Errorf("downtime = %v, want 480", results[0].Downtime)
	}
	if results[0].Uptime != nil {
		t.Errorf("uptime = %v, want nil for offline service", *results[0].Uptime)
	}
}

func TestCheckAll_FailureDoesNotAbortBatch(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	probe := &scriptedProbe{}
	mon := newTestMonitor(probe, clock)

	services := []domain.ServiceDescriptor{
		{Name: "a", URL: "https://a.example.com"},
		{Name: "b", URL: "https://b.example.com"},
		{Name: "c", URL: "https://c.example.com"},
	}
	probe.push("https://a.example.com", probeAnswer{code: 200})
	probe.push("https://b.example.com", probeAnswer{err: errors.New("no such host")})
	probe.push("https://c.example.com", probeAnswer{code: 302})

	results, err := mon.CheckAll(context.Background(), services)
	if err != nil {
		t.Fatalf("CheckAll() error: %v", err)
	}

	want := []domain.Status{domain.StatusOnline, domain.StatusOffline, domain.StatusDegraded}
	for i, res := range results {
		if res.Name != services[i].Name {
			t.Errorf("result %d name = %q, want %q (input order)", i, res.Name, services[i].Name)
		}
		if res.Status != want[i] {
			t.Errorf("result %d status = %v, want %v", i, res.Status, want[i])
		}
		if res.URL != services[i].URL {
			t.Errorf("result %d url = %q, want %q", i, res.URL, services[i].URL)
		}
	}
	if results[2].StatusCode != 302 {
		t.Errorf("statusCode = %d, want 302", results[2].StatusCode)
	}
}

func TestCheckAll_ConcurrentCostsMaxNotSum(t *testing.T) {
	probe := &scriptedProbe{delay: 150 * time.Millisecond}
	mon := New(Options{Probe: probe, Concurrency: 8}, logger.Nop())

	var services []domain.ServiceDescriptor
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		url := "https://" + name + ".example.com"
		services = append(services, domain.ServiceDescriptor{Name: name, URL: url})
		probe.push(url, probeAnswer{code: 200})
	}

	start := time.Now()
	if _, err := mon.CheckAll(context.Background(), services); err != nil {
		t.Fatalf("CheckAll() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 600*time.Millisecond {
		t.Errorf("CheckAll() took %v, services were not polled concurrently", elapsed)
	}
}

func TestCheckAll_CancelledContextLeavesHistory(t *testing.T) {
	probe := &scriptedProbe{delay: time.Second}
	mon := New(Options{Probe: probe}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mon.CheckAll(ctx, []domain.ServiceDescriptor{{Name: "a", URL: "https://a.example.com"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("CheckAll() error = %v, want context.Canceled", err)
	}
	if len(mon.History()) != 0 {
		t.Errorf("history = %v, want empty after abandoned batch", mon.History())
	}
}

func TestRemoveServiceAndRetain(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	probe := &scriptedProbe{}
	mon := newTestMonitor(probe, clock)

	services := []domain.ServiceDescriptor{
		{Name: "keep", URL: "https://keep.example.com"},
		{Name: "gone", URL: "https://gone.example.com"},
		{Name: "stale", URL: "https://stale.example.com"},
	}
	for _, s := range services {
		probe.push(s.URL, probeAnswer{code: 200})
	}
	if _, err := mon.CheckAll(context.Background(), services); err != nil {
		t.Fatalf("CheckAll() error: %v", err)
	}

	mon.RemoveService("gone")
	if _, ok := mon.Record("gone"); ok {
		t.Error("RemoveService() did not drop the history entry")
	}
	for _, r := range mon.LastResults() {
		if r.Name == "gone" {
			t.Error("LastResults() still contains removed service")
		}
	}

	dropped := mon.Retain([]string{"keep"})
	if len(dropped) != 1 || dropped[0] != "stale" {
		t.Errorf("Retain() dropped %v, want [stale]", dropped)
	}
	if _, ok := mon.Record("keep"); !ok {
		t.Error("Retain() dropped a configured service")
	}
}

func TestCheckAll_RemovedDuringBatchStaysRemoved(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	probe := &scriptedProbe{delay: 200 * time.Millisecond}
	mon := newTestMonitor(probe, clock)

	services := []domain.ServiceDescriptor{
		{Name: "A", URL: "https://a.example.com"},
		{Name: "B", URL: "https://b.example.com"},
	}
	for i := 0; i < 2; i++ {
		for _, s := range services {
			probe.push(s.URL, probeAnswer{code: 200})
		}
	}
	if _, err := mon.CheckAll(context.Background(), services); err != nil {
		t.Fatalf("first CheckAll() error: %v", err)
	}

	removed := make(chan struct{})
	go func() {
		defer close(removed)
		time.Sleep(50 * time.Millisecond)
		mon.RemoveService("A")
	}()

	results, err := mon.CheckAll(context.Background(), services)
	if err != nil {
		t.Fatalf("second CheckAll() error: %v", err)
	}
	<-removed

	if rec, ok := mon.Record("A"); ok {
		t.Errorf("history for removed service came back: %+v", rec)
	}
	if _, ok := mon.History()["A"]; ok {
		t.Error("History() contains removed service")
	}
	if len(results) != 1 || results[0].Name != "B" {
		t.Errorf("CheckAll() results = %+v, want only B", results)
	}
	last := mon.LastResults()
	if len(last) != 1 || last[0].Name != "B" {
		t.Errorf("LastResults() = %+v, want only B", last)
	}

	// A name added back after the batch is checked normally.
	probe.push("https://a.example.com", probeAnswer{code: 200})
	probe.push("https://b.example.com", probeAnswer{code: 200})
	if _, err := mon.CheckAll(context.Background(), services); err != nil {
		t.Fatalf("third CheckAll() error: %v", err)
	}
	if _, ok := mon.Record("A"); !ok {
		t.Error("re-added service was not tracked on the next batch")
	}
}

func TestRestore(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: t0.Add(10 * time.Minute)}
	probe := &scriptedProbe{}
	mon := newTestMonitor(probe, clock)

	n := mon.Restore(map[string]domain.StatusRecord{
		"api": {Status: domain.StatusOnline, Since: t0, LastCheck: t0.Add(5 * time.Minute)},
	})
	if n != 1 {
		t.Fatalf("Restore() = %d, want 1", n)
	}

	svc := domain.ServiceDescriptor{Name: "api", URL: "https://api.example.com"}
	probe.push(svc.URL, probeAnswer{code: 200})
	results, err := mon.CheckAll(context.Background(), []domain.ServiceDescriptor{svc})
	if err != nil {
		t.Fatalf("CheckAll() error: %v", err)
	}
	if results[0].Uptime == nil || *results[0].Uptime != 600 {
		t.Errorf("uptime after restore = %v, want 600", results[0].Uptime)
	}
}

func TestHTTPProbe(t *testing.T) {
	var (
		uaMu  sync.Mutex
		gotUA string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uaMu.Lock()
		gotUA = r.UserAgent()
		uaMu.Unlock()
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/redirect":
			http.Redirect(w, r, "/ok", http.StatusFound)
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer ts.Close()

	probe := NewHTTPProbe(200*time.Millisecond, "")

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantErr  bool
	}{
		{"ok", "/ok", http.StatusOK, false},
		{"redirect not followed", "/redirect", http.StatusFound, false},
		{"unavailable", "/down", http.StatusServiceUnavailable, false},
		{"timeout", "/slow", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := probe.Get(context.Background(), ts.URL+tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Get() = %d, want error", code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("Get() = %d, want %d", code, tt.wantCode)
			}
		})
	}

	uaMu.Lock()
	defer uaMu.Unlock()
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, DefaultUserAgent)
	}
}

func TestCheckAll_RealHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	mon := New(Options{Timeout: time.Second}, logger.Nop())
	results, err := mon.CheckAll(context.Background(), []domain.ServiceDescriptor{
		{Name: "healthy", URL: ts.URL + "/health"},
		{Name: "broken", URL: ts.URL + "/boom"},
		{Name: "refused", URL: "http://127.0.0.1:1"},
	})
	if err != nil {
		t.Fatalf("CheckAll() error: %v", err)
	}

	want := map[string]domain.Status{
		"healthy": domain.StatusOnline,
		"broken":  domain.StatusDegraded,
		"refused": domain.StatusOffline,
	}
	for _, res := range results {
		if res.Status != want[res.Name] {
			t.Errorf("%s: status = %v, want %v", res.Name, res.Status, want[res.Name])
		}
		if res.Status != domain.StatusOffline && res.ResponseTime == nil {
			t.Errorf("%s: responseTime is nil for a received response", res.Name)
		}
	}
}
