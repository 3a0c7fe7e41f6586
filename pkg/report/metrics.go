package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "relay"

// TurnCollectors holds the per-turn Prometheus metrics.
type TurnCollectors struct {
	Directives    *prometheus.CounterVec
	Duration      prometheus.Gauge
	LastSuccess   prometheus.Gauge
	LastTimestamp prometheus.Gauge
	Summary       prometheus.Gauge
}

// NewTurnCollectors registers the turn metrics with reg.
func NewTurnCollectors(reg prometheus.Registerer) *TurnCollectors {
	factory := promauto.With(reg)

	return &TurnCollectors{
		Directives: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "directives_total",
				Help:      "Directives handled in the turn by kind and status",
			},
			[]string{"kind", "status"},
		),
		Duration: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Wall time of the turn in seconds",
			},
		),
		LastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "turn_success",
				Help:      "1 if the turn had no failed directive, 0 otherwise",
			},
		),
		LastTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "turn_timestamp_seconds",
				Help:      "Unix time the turn finished",
			},
		),
		Summary: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "turn_summary_present",
				Help:      "1 if the response carried a summary line",
			},
		),
	}
}

// Observe records a finished turn.
func (c *TurnCollectors) Observe(s *TurnSummary) {
	for _, o := range s.Outcomes {
		c.Directives.WithLabelValues(string(o.Kind), string(o.Status)).Inc()
	}

	c.Duration.Set(s.Duration.Seconds())
	if !s.EndTime.IsZero() {
		c.LastTimestamp.Set(float64(s.EndTime.Unix()))
	}
	if s.Status == StatusSuccess {
		c.LastSuccess.Set(1)
	}
	if s.HasSummary {
		c.Summary.Set(1)
	}
}
