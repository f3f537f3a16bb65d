// Package checkipheader implements CheckIPHeader, which validates IPv4 headers.
//
// A packet passes when it is long enough to hold a header, carries version 4,
// has a sane header length, a correct header checksum, a total length that
// covers the header, and a source address that is not on the blocklist. The
// blocklist always contains 0.0.0.0 and 255.255.255.255 (RFC 1812 5.3.7);
// the optional argument adds the subnet broadcast addresses a router knows.
//
// Failing packets are counted and either destroyed or, when the element has
// two outputs, emitted unchanged on output 1.
package checkipheader

import (
	"encoding/binary"
	"net/netip"
	"strconv"
	"strings"
	"sync/atomic"

	"firestige.xyz/pktgraph/internal/checksum"
	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
	"firestige.xyz/pktgraph/internal/metrics"
)

const (
	Class = "CheckIPHeader"

	headerLen   = 20
	dropMessage = "IP checksum failed"
)

// defaultBadSources seed every blocklist.
var defaultBadSources = [...]uint32{0x00000000, 0xffffffff}

type CheckIPHeader struct {
	sink     diag.Sink
	env      *element.Env
	cksum    checksum.Func
	badSrc   []uint32
	noutputs int
	drops    atomic.Uint64
}

func New(env *element.Env) element.Element {
	c := &CheckIPHeader{
		env:      env,
		sink:     diag.Discard,
		cksum:    checksum.Fast,
		noutputs: 1,
	}
	if env != nil {
		if env.Sink != nil {
			c.sink = env.Sink
		}
		if env.Checksum != nil {
			c.cksum = env.Checksum
		}
	}
	return c
}

func (c *CheckIPHeader) Class() string { return Class }

func (c *CheckIPHeader) Processing() element.Processing { return element.AgnosticProcessing }

func (c *CheckIPHeader) Clone() element.Element { return New(c.env) }

func (c *CheckIPHeader) NotifyOutputs(n int) int {
	if n < 2 {
		c.noutputs = 1
	} else {
		c.noutputs = 2
	}
	return c.noutputs
}

// Configure takes an optional whitespace-separated list of IPv4 addresses.
func (c *CheckIPHeader) Configure(args []string, errh diag.ErrorHandler) error {
	if len(args) > 1 {
		return errh.Errorf("too many arguments to `CheckIPHeader([ADDRS])'")
	}

	ips := append(make([]uint32, 0, len(defaultBadSources)), defaultBadSources[:]...)
	if len(args) == 1 {
	next:
		for _, field := range strings.Fields(args[0]) {
			a, ok := parseIPv4(field)
			if !ok {
				return errh.Errorf("expects IPADDRESS, got %q", field)
			}
			for _, have := range ips {
				if have == a {
					continue next
				}
			}
			ips = append(ips, a)
		}
	}

	badSrc := make([]uint32, len(ips))
	copy(badSrc, ips)
	c.badSrc = badSrc
	return nil
}

func parseIPv4(s string) (uint32, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return 0, false
	}
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:]), true
}

// Process runs the checks cheapest first so that malformed input never pays
// for the checksum or the blocklist scan.
func (c *CheckIPHeader) Process(p *core.Packet) element.Action {
	data := p.Data()

	if len(data) < headerLen {
		return c.drop(p)
	}
	if data[0]>>4 != 4 {
		return c.drop(p)
	}
	hlen := int(data[0]&0x0f) << 2
	if hlen < headerLen {
		return c.drop(p)
	}
	if hlen > len(data) {
		return c.drop(p)
	}
	if c.cksum(data[:hlen]) != 0 {
		return c.drop(p)
	}
	if int(binary.BigEndian.Uint16(data[2:4])) < hlen {
		return c.drop(p)
	}
	src := binary.BigEndian.Uint32(data[12:16])
	for _, bad := range c.badSrc {
		if src == bad {
			return c.drop(p)
		}
	}

	p.SetNetworkHeader(0, hlen)
	return element.Forward
}

func (c *CheckIPHeader) drop(p *core.Packet) element.Action {
	metrics.CheckIPHeaderDropsTotal.Inc()
	if c.drops.Add(1) == 1 {
		diag.Notice(c.sink, dropMessage)
	}
	if c.noutputs == 2 {
		return element.Output(1)
	}
	p.Kill()
	return element.Consume
}

// Drops returns the number of packets that failed validation.
func (c *CheckIPHeader) Drops() uint64 { return c.drops.Load() }

// Blocklist returns the configured source blocklist, defaults first.
func (c *CheckIPHeader) Blocklist() []netip.Addr {
	out := make([]netip.Addr, len(c.badSrc))
	for i, a := range c.badSrc {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], a)
		out[i] = netip.AddrFrom4(b)
	}
	return out
}

func (c *CheckIPHeader) AddHandlers(h *element.Handlers) {
	h.AddRead("drops", func() string {
		return strconv.FormatUint(c.drops.Load(), 10) + "\n"
	})
}
