package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dbflood_active_workers",
		Help: "Number of worker goroutines currently running",
	})
	PoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dbflood_pool_size",
		Help: "Current number of live connections owned by the pool",
	})
	TransactionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbflood_transactions_total",
			Help: "Total number of transaction outcomes processed",
		},
		[]string{"result"},
	)
)

func IncWorker() {
	ActiveWorkers.Inc()
}

func DecWorker() {
	ActiveWorkers.Dec()
}

func SetPoolSize(n int) {
	PoolSize.Set(float64(n))
}

func IncTransaction(result string) {
	TransactionCount.WithLabelValues(result).Inc()
}
