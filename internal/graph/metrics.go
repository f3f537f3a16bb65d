package graph

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/pktgraph/internal/metrics"
)

// Metrics contains per-element packet counters.
type Metrics struct {
	Received    atomic.Uint64
	Consumed    atomic.Uint64
	Unconnected atomic.Uint64
	Emitted     []atomic.Uint64 // one per output port

	consumed    prometheus.Counter
	emitted     []prometheus.Counter
	unconnected []prometheus.Counter
}

// NewMetrics creates counters for an element with the given number of outputs.
func NewMetrics(element string, outputs int) *Metrics {
	m := &Metrics{
		Emitted:     make([]atomic.Uint64, outputs),
		consumed:    metrics.ElementConsumedTotal.WithLabelValues(element),
		emitted:     make([]prometheus.Counter, outputs),
		unconnected: make([]prometheus.Counter, outputs),
	}
	for port := 0; port < outputs; port++ {
		p := strconv.Itoa(port)
		m.emitted[port] = metrics.ElementPacketsTotal.WithLabelValues(element, p)
		m.unconnected[port] = metrics.UnconnectedDropsTotal.WithLabelValues(element, p)
	}
	return m
}

func (m *Metrics) consume() {
	m.Consumed.Add(1)
	m.consumed.Inc()
}

func (m *Metrics) emit(port int) {
	m.Emitted[port].Add(1)
	m.emitted[port].Inc()
}

func (m *Metrics) drop(port int) {
	m.Unconnected.Add(1)
	m.unconnected[port].Inc()
}

// Reset resets all counters to zero. Prometheus counters are left alone.
func (m *Metrics) Reset() {
	m.Received.Store(0)
	m.Consumed.Store(0)
	m.Unconnected.Store(0)
	for i := range m.Emitted {
		m.Emitted[i].Store(0)
	}
}

// ElementStats is a snapshot of one element's counters.
type ElementStats struct {
	Name        string   `json:"name"`
	Class       string   `json:"class"`
	Received    uint64   `json:"received"`
	Consumed    uint64   `json:"consumed"`
	Unconnected uint64   `json:"unconnected"`
	Emitted     []uint64 `json:"emitted"`
}

func (m *Metrics) snapshot(name, class string) ElementStats {
	s := ElementStats{
		Name:        name,
		Class:       class,
		Received:    m.Received.Load(),
		Consumed:    m.Consumed.Load(),
		Unconnected: m.Unconnected.Load(),
		Emitted:     make([]uint64, len(m.Emitted)),
	}
	for i := range m.Emitted {
		s.Emitted[i] = m.Emitted[i].Load()
	}
	return s
}
