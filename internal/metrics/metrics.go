package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MrSnakeDoc/pelican/internal/domain"
)

var (
	// ServiceChecksTotal counts poll outcomes per service and status.
	ServiceChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pelican_service_checks_total",
		Help: "Total number of service checks by service and resulting status",
	}, []string{"service", "status"})

	// ServiceUp is 1 when the last poll classified the service online, 0 otherwise.
	ServiceUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pelican_service_up",
		Help: "Whether the service was online at the last check",
	}, []string{"service"})

	// ServiceResponseTime tracks response latency of successful checks.
	ServiceResponseTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pelican_service_response_seconds",
		Help:    "Response time of service checks that received a response",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service"})

	// ServiceTransitionsTotal counts status changes.
	ServiceTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pelican_service_transitions_total",
		Help: "Total number of status transitions by service and new status",
	}, []string{"service", "status"})

	// CheckBatchDuration tracks wall time of a full CheckAll batch.
	CheckBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pelican_check_batch_duration_seconds",
		Help:    "Duration of a complete service check batch",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30},
	})

	// PlaylistTracks is the size of the loaded playlist.
	PlaylistTracks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pelican_playlist_tracks",
		Help: "Number of tracks in the current playlist",
	})
)

// ObserveCheck records one service result.
func ObserveCheck(res domain.CheckResult, transitioned bool) {
	ServiceChecksTotal.WithLabelValues(res.Name, string(res.Status)).Inc()
	up := 0.0
	if res.Status == domain.StatusOnline {
		up = 1
	}
	ServiceUp.WithLabelValues(res.Name).Set(up)
	if res.ResponseTime != nil {
		ServiceResponseTime.WithLabelValues(res.Name).Observe(float64(*res.ResponseTime) / 1000)
	}
	if transitioned {
		ServiceTransitionsTotal.WithLabelValues(res.Name, string(res.Status)).Inc()
	}
}

// ObserveBatch records the duration of a CheckAll batch.
func ObserveBatch(d time.Duration) {
	CheckBatchDuration.Observe(d.Seconds())
}

// ForgetService drops the per-service series of a removed service.
func ForgetService(name string) {
	ServiceUp.DeleteLabelValues(name)
	ServiceResponseTime.DeleteLabelValues(name)
	for _, st := range []domain.Status{domain.StatusOnline, domain.StatusDegraded, domain.StatusOffline} {
		ServiceChecksTotal.DeleteLabelValues(name, string(st))
		ServiceTransitionsTotal.DeleteLabelValues(name, string(st))
	}
}
