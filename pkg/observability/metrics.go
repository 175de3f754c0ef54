package observability

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	Steps          *prometheus.CounterVec
	StepDuration   prometheus.Histogram
	NodeVisits     *prometheus.CounterVec
	ActionCalls    *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	Transitions    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "switchboard_steps_total",
			Help: "Inbound events evaluated, by event kind and resulting status.",
		}, []string{"kind", "status"}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "switchboard_step_duration_seconds",
			Help:    "Wall time of one step, including action calls.",
			Buckets: prometheus.DefBuckets,
		}),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "switchboard_node_visits_total",
			Help: "Node evaluations, by node type.",
		}, []string{"node_type"}),
		ActionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "switchboard_action_calls_total",
			Help: "Action provider attempts, by action and result.",
		}, []string{"action", "result"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "switchboard_action_duration_seconds",
			Help:    "Duration of action provider attempts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "switchboard_session_transitions_total",
			Help: "Session status changes, by target status and reason.",
		}, []string{"to", "reason"}),
	}

	for _, c := range []prometheus.Collector{
		m.Steps, m.StepDuration, m.NodeVisits, m.ActionCalls, m.ActionDuration, m.Transitions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(string(e.Kind), string(e.Status)).Inc()
			m.StepDuration.Observe(e.Duration.Seconds())
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.NodeType)).Inc()
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.ActionCalls.WithLabelValues(e.Action, result).Inc()
			m.ActionDuration.WithLabelValues(e.Action).Observe(e.Duration.Seconds())
		},
		OnStatusChange: func(_ context.Context, e *domain.StatusEvent) {
			m.Transitions.WithLabelValues(string(e.To), string(e.Reason)).Inc()
		},
	}
}
