package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"time"

	"golang.org/x/net/ipv4"

	"firestige.xyz/pktgraph/internal/checksum"
	"firestige.xyz/pktgraph/internal/config"
	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/metrics"
)

const udpHeaderLen = 8

// GenSource synthesizes IPv4/UDP packets, cycling through the configured
// source addresses. Every CorruptEvery-th packet gets a broken header checksum.
type GenSource struct {
	count        int
	sources      []netip.Addr
	dst          netip.Addr
	payload      []byte
	corruptEvery int
}

func NewGenSource(cfg config.GenSourceConfig) (*GenSource, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("gen source needs at least one source address: %w", core.ErrConfigInvalid)
	}
	if cfg.PayloadSize < 0 || cfg.PayloadSize > 65535-ipv4.HeaderLen-udpHeaderLen {
		return nil, fmt.Errorf("gen payload size %d out of range: %w", cfg.PayloadSize, core.ErrConfigInvalid)
	}
	g := &GenSource{
		count:        cfg.Count,
		payload:      make([]byte, cfg.PayloadSize),
		corruptEvery: cfg.CorruptEvery,
	}
	for _, s := range cfg.Sources {
		a, err := netip.ParseAddr(s)
		if err != nil || !a.Is4() {
			return nil, fmt.Errorf("gen source address %q is not IPv4: %w", s, core.ErrConfigInvalid)
		}
		g.sources = append(g.sources, a)
	}
	dst := cfg.Destination
	if dst == "" {
		dst = "10.0.0.254"
	}
	a, err := netip.ParseAddr(dst)
	if err != nil || !a.Is4() {
		return nil, fmt.Errorf("gen destination %q is not IPv4: %w", dst, core.ErrConfigInvalid)
	}
	g.dst = a
	for i := range g.payload {
		g.payload[i] = byte(i)
	}
	return g, nil
}

func (g *GenSource) Name() string { return "gen" }

// Capture emits count packets, or runs until ctx ends when count is 0.
func (g *GenSource) Capture(ctx context.Context, out chan<- *core.Packet) error {
	counter := metrics.SourcePacketsTotal.WithLabelValues(g.Name())
	for i := 0; g.count == 0 || i < g.count; i++ {
		data, err := BuildUDP4(g.sources[i%len(g.sources)], g.dst, uint16(i), g.payload)
		if err != nil {
			return err
		}
		if g.corruptEvery > 0 && (i+1)%g.corruptEvery == 0 {
			data[10] ^= 0xff
		}
		if err := send(ctx, out, core.NewPacketAt(data, time.Now())); err != nil {
			return err
		}
		counter.Inc()
	}
	return nil
}

// BuildUDP4 returns an IPv4 packet with a valid header checksum carrying a UDP
// datagram from port 1024 to port 9 (discard).
func BuildUDP4(src, dst netip.Addr, id uint16, payload []byte) ([]byte, error) {
	total := ipv4.HeaderLen + udpHeaderLen + len(payload)
	h := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: total,
		ID:       int(id),
		TTL:      64,
		Protocol: 17,
		Src:      net.IP(src.AsSlice()),
		Dst:      net.IP(dst.AsSlice()),
	}
	hdr, err := h.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal ipv4 header: %w", err)
	}
	// Marshal uses host order for these fields on some BSDs.
	binary.BigEndian.PutUint16(hdr[2:4], uint16(total))
	binary.BigEndian.PutUint16(hdr[6:8], 0)
	checksum.Put(hdr, 10, checksum.Fast)

	b := make([]byte, total)
	copy(b, hdr)
	udp := b[ipv4.HeaderLen:]
	binary.BigEndian.PutUint16(udp[0:2], 1024)
	binary.BigEndian.PutUint16(udp[2:4], 9)
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpHeaderLen+len(payload)))
	copy(udp[udpHeaderLen:], payload)
	return b, nil
}
