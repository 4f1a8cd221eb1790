// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsTotal counts packets fed into the dissector.
	PacketsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strix_packets_total",
			Help: "Total number of packets dissected",
		},
	)

	// BytesTotal counts raw bytes fed into the dissector.
	BytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strix_bytes_total",
			Help: "Total number of packet bytes dissected",
		},
	)

	// LayersTotal counts decoded layers by protocol name.
	LayersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_layers_total",
			Help: "Total number of decoded layers",
		},
		[]string{"proto"},
	)

	// DecodeErrorsTotal counts failed dissection attempts by error kind.
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_decode_errors_total",
			Help: "Total number of dissection failures",
		},
		[]string{"kind"},
	)
)
