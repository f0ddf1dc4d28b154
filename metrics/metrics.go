// Package metrics exports history activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/meikuraledutech/flowchart/history"
)

// Observer implements history.Observer on Prometheus collectors.
type Observer struct {
	commands  *prometheus.CounterVec
	undoDepth prometheus.Gauge
	evicted   prometheus.Counter
}

var _ history.Observer = (*Observer)(nil)

// New creates the collectors and registers them on reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Observer {
	o := &Observer{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowchart_commands_total",
				Help: "History operations by kind (apply, undo, redo) and command name.",
			},
			[]string{"op", "command"},
		),
		undoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowchart_undo_depth",
			Help: "Number of commands on the undo stack.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowchart_history_evictions_total",
			Help: "Undo entries dropped because the history limit was reached.",
		}),
	}
	if reg != nil {
		reg.MustRegister(o.commands, o.undoDepth, o.evicted)
	}
	return o
}

func (o *Observer) OnApply(command string, undoDepth int) {
	o.commands.WithLabelValues("apply", command).Inc()
	o.undoDepth.Set(float64(undoDepth))
}

func (o *Observer) OnUndo(command string, undoDepth int) {
	o.commands.WithLabelValues("undo", command).Inc()
	o.undoDepth.Set(float64(undoDepth))
}

func (o *Observer) OnRedo(command string, undoDepth int) {
	o.commands.WithLabelValues("redo", command).Inc()
	o.undoDepth.Set(float64(undoDepth))
}

func (o *Observer) OnEvict(string) {
	o.evicted.Inc()
}

// OnReset zeroes the undo depth once a document replaces the history.
func (o *Observer) OnReset() {
	o.undoDepth.Set(0)
}
