package monitor

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the monitor's prometheus collectors.
type Metrics struct {
	Cycles           prometheus.Counter
	CycleErrors      prometheus.Counter
	Alerts           *prometheus.CounterVec
	LastCycle        prometheus.Gauge
	DeliveryFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "brick_tracker_cycles_total",
				Help: "Total number of comparison cycles run",
			},
		),
		CycleErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "brick_tracker_cycle_errors_total",
				Help: "Total number of comparison cycles that failed",
			},
		),
		Alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brick_tracker_alerts_total",
				Help: "Total number of newly delivered alerts by kind",
			},
			[]string{"kind"},
		),
		LastCycle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "brick_tracker_last_cycle_timestamp_seconds",
				Help: "Unix time of the last completed cycle",
			},
		),
		DeliveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brick_tracker_delivery_failures_total",
				Help: "Total number of batches a notification channel failed to deliver",
			},
			[]string{"channel"},
		),
	}
	reg.MustRegister(m.Cycles, m.CycleErrors, m.Alerts, m.LastCycle, m.DeliveryFailures)
	return m
}
