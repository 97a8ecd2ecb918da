// Package metrics holds the Prometheus collectors for the verification flow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects flow-level observations. All methods are nil-safe so
// components can run without metrics wired (tests, one-off tools).
type Metrics struct {
	attemptsTotal    *prometheus.CounterVec
	stepDuration     *prometheus.HistogramVec
	gateWaitSeconds  prometheus.Histogram
	pollSeconds      prometheus.Histogram
	rewardCodesTotal prometheus.Counter
}

// New creates and registers all collectors against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_verification_attempts_total",
			Help: "Verification attempts by profile type and outcome",
		}, []string{"profile_type", "outcome"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veriflow_step_duration_seconds",
			Help:    "Latency of individual remote protocol steps",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		gateWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "veriflow_gate_wait_seconds",
			Help:    "Time flows spend waiting for a concurrency permit",
			Buckets: []float64{.01, .1, .5, 1, 5, 15, 60, 300},
		}),
		pollSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "veriflow_poll_duration_seconds",
			Help:    "Time spent polling for an asynchronous reward code",
			Buckets: []float64{1, 5, 10, 20, 30, 60},
		}),
		rewardCodesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "veriflow_reward_codes_total",
			Help: "Reward codes successfully retrieved",
		}),
	}
}

func (m *Metrics) IncAttempt(profileType, outcome string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(profileType, outcome).Inc()
}

func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (m *Metrics) ObserveGateWait(d time.Duration) {
	if m == nil {
		return
	}
	m.gateWaitSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObservePoll(d time.Duration) {
	if m == nil {
		return
	}
	m.pollSeconds.Observe(d.Seconds())
}

func (m *Metrics) IncRewardCode() {
	if m == nil {
		return
	}
	m.rewardCodesTotal.Inc()
}
