package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(gatewayLatencyMs, gatewayCalls)
}

var (
	gatewayLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "puzle_gateway_latency_ms",
			Help:    "Completion call latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000, 60000},
		},
		[]string{"provider", "model", "success"},
	)

	gatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "puzle_gateway_calls_total",
			Help: "Completion calls by outcome (ok, error, timeout).",
		},
		[]string{"provider", "outcome"},
	)
)

func ObserveGateway(provider, model string, latencyMs int64, outcome string) {
	success := outcome == "ok"
	gatewayLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
	gatewayCalls.WithLabelValues(norm(provider), norm(outcome)).Inc()
}
