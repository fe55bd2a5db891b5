package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "s4",
		Name:      "watch_cycles_total",
		Help:      "Sync cycles run by the watch loop.",
	})

	cycleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "s4",
		Name:      "watch_cycle_failures_total",
		Help:      "Sync cycles that ended in an error.",
	})

	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s4",
		Name:      "tasks_total",
		Help:      "Executed tasks by outcome.",
	}, []string{"outcome"})

	bytesTransferred = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "s4",
		Name:      "bytes_transferred_total",
		Help:      "Payload bytes moved to the destination.",
	})

	watchState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "s4",
		Name:      "watch_state",
		Help:      "Current loop state: 0 idle, 1 running.",
	})
)
