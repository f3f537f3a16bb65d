package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/pktgraph/internal/config"
	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/log"
	"firestige.xyz/pktgraph/internal/metrics"
)

// 802.1ad outer tag.
const etherTypeQinQ layers.EthernetType = 0x88a8

// PcapSource replays a pcap file. Link-layer headers are stripped so that
// packets reach the graph starting at the network header.
type PcapSource struct {
	path        string
	skipNonIPv4 bool
}

func NewPcapSource(cfg config.PcapSourceConfig) (*PcapSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("pcap source requires a path: %w", core.ErrConfigInvalid)
	}
	return &PcapSource{path: cfg.Path, skipNonIPv4: cfg.SkipNonIPv4}, nil
}

func (s *PcapSource) Name() string { return "pcap" }

func (s *PcapSource) Capture(ctx context.Context, out chan<- *core.Packet) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open pcap file %s: %w", s.path, err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read pcap header %s: %w", s.path, err)
	}
	linkType := r.LinkType()
	logger := log.GetLogger().WithField("source", s.Name()).WithField("file", s.path)
	logger.WithField("linktype", linkType.String()).Debug("pcap source opened")

	counter := metrics.SourcePacketsTotal.WithLabelValues(s.Name())
	for {
		data, ci, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read packet: %w", err)
		}

		payload, reason := s.strip(data, linkType)
		if reason != "" {
			metrics.SourceSkippedTotal.WithLabelValues(s.Name(), reason).Inc()
			if logger.IsTraceEnabled() {
				logger.WithField("reason", reason).Trace("frame skipped")
			}
			continue
		}
		if err := send(ctx, out, core.NewPacketAt(payload, ci.Timestamp)); err != nil {
			return err
		}
		counter.Inc()
	}
}

// strip returns the network-layer bytes of a frame, or a non-empty reason why
// the frame is skipped.
func (s *PcapSource) strip(data []byte, linkType layers.LinkType) ([]byte, string) {
	var (
		payload   []byte
		ethertype layers.EthernetType
	)
	switch linkType {
	case layers.LinkTypeRaw, layers.LinkTypeIPv4:
		return data, ""
	case layers.LinkTypeEthernet:
		var eth layers.Ethernet
		if err := eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
			return nil, "truncated"
		}
		payload, ethertype = eth.Payload, eth.EthernetType
	case layers.LinkTypeLinuxSLL:
		var sll layers.LinuxSLL
		if err := sll.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
			return nil, "truncated"
		}
		payload, ethertype = sll.Payload, sll.EthernetType
	default:
		return nil, "unsupported_linktype"
	}

	for ethertype == layers.EthernetTypeDot1Q || ethertype == etherTypeQinQ {
		var tag layers.Dot1Q
		if err := tag.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
			return nil, "truncated"
		}
		payload, ethertype = tag.Payload, tag.Type
	}
	if s.skipNonIPv4 && ethertype != layers.EthernetTypeIPv4 {
		return nil, "non_ipv4"
	}
	return payload, ""
}
