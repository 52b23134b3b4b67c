package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_gateway_operations_total",
		Help: "Remote persistence gateway operations by outcome",
	},
	[]string{"op", "collection", "result"},
)

func observe(op string, c Collection, err error) {
	result := "ok"
	if err != nil {
		result = Classify(err).String()
	}
	operationsTotal.WithLabelValues(op, string(c), result).Inc()
}
