// Package source produces packets for a graph.
package source

import (
	"context"
	"fmt"

	"firestige.xyz/pktgraph/internal/config"
	"firestige.xyz/pktgraph/internal/core"
)

// Source pushes packets into out until it is exhausted or ctx is cancelled.
// It returns nil on exhaustion and never closes out.
type Source interface {
	Name() string
	Capture(ctx context.Context, out chan<- *core.Packet) error
}

// New builds the source selected by cfg.Type.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case "pcap":
		return NewPcapSource(cfg.Pcap)
	case "gen":
		return NewGenSource(cfg.Gen)
	default:
		return nil, fmt.Errorf("unsupported source type %q: %w", cfg.Type, core.ErrConfigInvalid)
	}
}

func send(ctx context.Context, out chan<- *core.Packet, p *core.Packet) error {
	select {
	case out <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
