package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type reminderMetrics struct {
	scheduledTotal  *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	deadTotal       *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	pending         prometheus.Gauge
	locked          prometheus.Gauge
	leader          prometheus.Gauge
}

var getReminderMetrics = sync.OnceValue(func() *reminderMetrics {
	return &reminderMetrics{
		scheduledTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reminders",
			Name:      "scheduled_total",
			Help:      "Reminders scheduled, by kind.",
		}, []string{"kind"}),
		dispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reminders",
			Name:      "dispatch_total",
			Help:      "Reminder delivery attempts.",
		}, []string{"channel", "result"}),
		deadTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reminders",
			Name:      "dead_total",
			Help:      "Reminders given up on.",
		}, []string{"channel"}),
		dispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reminders",
			Name:      "dispatch_latency_seconds",
			Help:      "Latency of reminder delivery.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30},
		}, []string{"channel", "result"}),
		pending: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "reminders",
			Name:      "pending",
			Help:      "Reminders waiting for delivery.",
		}),
		locked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "reminders",
			Name:      "locked",
			Help:      "Pending reminders currently claimed by a dispatcher.",
		}),
		leader: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "reminders",
			Name:      "dispatcher_leader",
			Help:      "Whether this instance runs the dispatcher (1/0).",
		}),
	}
})
