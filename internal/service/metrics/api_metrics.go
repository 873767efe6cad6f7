package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	BacktestUnits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "orb",
			Subsystem: "api",
			Name:      "backtest_units",
			Help:      "Units evaluated per backtest request",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"source"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orb",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(BacktestUnits, APIErrors)
	})
}
