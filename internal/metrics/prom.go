// Package metrics exports console activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"birdsbuddy/internal/models"
)

const namespace = "birdsbuddy"

// PromObs implements service.Observer on Prometheus collectors.
type PromObs struct {
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	histos   map[string]prometheus.Observer
	ticks    prometheus.Counter
}

// NewPromObs creates the collectors and registers them on reg. A nil reg
// means prometheus.DefaultRegisterer.
func NewPromObs(reg prometheus.Registerer) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_logged_total",
		Help:      "Session log entries by severity.",
	}, []string{"severity"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_raised_total",
		Help:      "Operator notifications by severity.",
	}, []string{"severity"})
	snapshots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_applied_total",
		Help:      "Snapshots applied to the session by source.",
	}, []string{"source"})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Completed commands by kind, mode and result.",
	}, []string{"kind", "mode", "result"})
	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulator_ticks_total",
		Help:      "Simulator steps applied.",
	})
	connected := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "channel_connected",
		Help:      "1 while the remote channel reports a live link.",
	}, nil)
	pending := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "command_pending",
		Help:      "1 while an action is in flight.",
	}, []string{"kind"})
	writeLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "command_write_seconds",
		Help:      "Latency of remote command writes.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	reg.MustRegister(events, notifications, snapshots, commands, ticks, connected, pending, writeLatency)

	return &PromObs{
		counters: map[string]*prometheus.CounterVec{
			"events_logged_total":        events,
			"notifications_raised_total": notifications,
			"snapshots_applied_total":    snapshots,
			"commands_total":             commands,
		},
		gauges: map[string]*prometheus.GaugeVec{
			"channel_connected": connected,
			"command_pending":   pending,
		},
		histos: map[string]prometheus.Observer{
			"command_write_seconds": writeLatency,
		},
		ticks: ticks,
	}
}

func (p *PromObs) inc(name string, labels ...string) {
	if c, ok := p.counters[name]; ok {
		c.WithLabelValues(labels...).Inc()
	}
}

func (p *PromObs) set(name string, v float64, labels ...string) {
	if g, ok := p.gauges[name]; ok {
		g.WithLabelValues(labels...).Set(v)
	}
}

func (p *PromObs) EventLogged(severity models.Severity) {
	p.inc("events_logged_total", string(severity))
}

func (p *PromObs) NotificationRaised(severity models.NotificationSeverity) {
	p.inc("notifications_raised_total", string(severity))
}

func (p *PromObs) SnapshotApplied(source string) {
	p.inc("snapshots_applied_total", source)
}

func (p *PromObs) SimulatorTicked() {
	p.ticks.Inc()
}

func (p *PromObs) ConnectivityChanged(connected bool) {
	p.set("channel_connected", boolFloat(connected))
}

func (p *PromObs) PendingChanged(kind models.ActionKind, pending bool) {
	p.set("command_pending", boolFloat(pending), string(kind))
}

func (p *PromObs) CommandCompleted(rec models.CommandRecord, writeSeconds float64) {
	result := "ok"
	if rec.Err != "" {
		result = "error"
	}
	p.inc("commands_total", string(rec.Kind), string(rec.Mode), result)
	if rec.Mode == models.ModeReal {
		if h, ok := p.histos["command_write_seconds"]; ok {
			h.Observe(writeSeconds)
		}
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
