package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netrel_analyses_enqueued_total",
		Help: "Total number of analyses placed on the worker queue.",
	})

	AnalysesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netrel_analyses_dropped_total",
		Help: "Total number of analyses rejected due to a full queue.",
	})

	Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netrel_evaluations_total",
		Help: "Total number of analyses completed, labelled by kind and status.",
	}, []string{"kind", "status"})

	StatesEnumerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netrel_states_enumerated_total",
		Help: "Total number of joint node states enumerated by exact evaluations.",
	})

	EvaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netrel_evaluation_duration_ms",
		Help:    "Analysis latency in milliseconds, labelled by kind.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
	}, []string{"kind"})

	SystemReliability = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netrel_system_reliability",
		Help: "Most recent exact system reliability per loaded network.",
	}, []string{"network_id"})

	NetworksLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netrel_networks_loaded",
		Help: "Number of networks in the active catalog.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netrel_queue_utilization_ratio",
		Help: "Current analysis queue utilization (0–1).",
	})
)
