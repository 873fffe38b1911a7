package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records Prometheus metrics from tree and agent events.
//
// Exposed series:
//
//	canopy_node_ticks_total{kind,status}
//	canopy_node_tick_duration_seconds{kind}
//	canopy_node_halts_total{kind}
//	canopy_node_faults_total{kind,op}
//	canopy_agent_ticks_total{status}
//	canopy_agent_tick_duration_seconds
type Metrics struct {
	nodeTicks     *prometheus.CounterVec
	nodeDuration  *prometheus.HistogramVec
	nodeHalts     *prometheus.CounterVec
	nodeFaults    *prometheus.CounterVec
	agentTicks    *prometheus.CounterVec
	agentDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		nodeTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_node_ticks_total",
				Help: "Total number of completed node ticks by kind and status",
			},
			[]string{"kind", "status"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canopy_node_tick_duration_seconds",
				Help:    "Duration of node ticks, children included",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"kind"},
		),
		nodeHalts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_node_halts_total",
				Help: "Total number of node halts",
			},
			[]string{"kind"},
		),
		nodeFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_node_faults_total",
				Help: "Total number of recovered node faults",
			},
			[]string{"kind", "op"},
		),
		agentTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_agent_ticks_total",
				Help: "Total number of agent ticks by resulting status",
			},
			[]string{"status"},
		),
		agentDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "canopy_agent_tick_duration_seconds",
				Help:    "Duration of whole agent ticks",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	for _, c := range []prometheus.Collector{m.nodeTicks, m.nodeDuration, m.nodeHalts, m.nodeFaults, m.agentTicks, m.agentDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) Emit(_ context.Context, e domain.Event) {
	switch e.Type {
	case domain.EventTickStop:
		m.nodeTicks.WithLabelValues(e.NodeKind, e.Status.Kind().String()).Inc()
		m.nodeDuration.WithLabelValues(e.NodeKind).Observe(e.Duration.Seconds())
	case domain.EventTickException:
		m.nodeTicks.WithLabelValues(e.NodeKind, domain.KindError.String()).Inc()
		m.nodeFaults.WithLabelValues(e.NodeKind, "tick").Inc()
	case domain.EventHaltStop:
		m.nodeHalts.WithLabelValues(e.NodeKind).Inc()
	case domain.EventHaltException:
		m.nodeFaults.WithLabelValues(e.NodeKind, "halt").Inc()
	case domain.EventAgentTickStop:
		m.agentTicks.WithLabelValues(e.Status.Kind().String()).Inc()
		m.agentDuration.Observe(e.Duration.Seconds())
	}
}
