// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourcePacketsTotal counts packets read by a source
	SourcePacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktgraph_source_packets_total",
			Help: "Total number of packets read from a source",
		},
		[]string{"source"},
	)

	// SourceSkippedTotal counts frames a source discarded before the graph
	SourceSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktgraph_source_skipped_total",
			Help: "Total number of frames skipped by a source",
		},
		[]string{"source", "reason"},
	)

	// ElementPacketsTotal counts packets emitted on each element output
	ElementPacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktgraph_element_packets_total",
			Help: "Total number of packets emitted per element output port",
		},
		[]string{"element", "port"},
	)

	// ElementConsumedTotal counts packets an element destroyed
	ElementConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktgraph_element_consumed_total",
			Help: "Total number of packets consumed by an element",
		},
		[]string{"element"},
	)

	// UnconnectedDropsTotal counts packets emitted on a port with no peer
	UnconnectedDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktgraph_unconnected_drops_total",
			Help: "Total number of packets killed because the output port was not connected",
		},
		[]string{"element", "port"},
	)

	// CheckIPHeaderDropsTotal counts packets that failed IPv4 header validation
	CheckIPHeaderDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pktgraph_checkipheader_drops_total",
			Help: "Total number of packets dropped by CheckIPHeader across all instances",
		},
	)

	// ConfigErrorsTotal counts failed element configurations
	ConfigErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktgraph_config_errors_total",
			Help: "Total number of element configuration errors",
		},
		[]string{"class"},
	)

	// DiagLinesDroppedTotal counts diagnostic lines lost to a full queue
	DiagLinesDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pktgraph_diag_lines_dropped_total",
			Help: "Total number of diagnostic log lines dropped because the queue was full",
		},
	)
)
