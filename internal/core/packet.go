// Package core defines the packet and the errors shared by every graph element.
package core

import (
	"sync/atomic"
	"time"
)

var nextPacketID atomic.Uint64

// Annotations is out-of-band metadata that travels with a packet.
type Annotations struct {
	// Color is the paint annotation. A packet carries one color at a time.
	Color uint8
	// Timestamp is the capture time, zero for synthesized packets.
	Timestamp time.Time

	netOff int // network header offset + 1, 0 = unset
	netLen int
}

// Packet is the unit of ownership transfer between elements. Exactly one
// element owns a packet at a time; the owner either hands it on by returning
// an output port or destroys it with Kill.
type Packet struct {
	Anno Annotations

	id   uint64
	data []byte
	dead bool
}

// NewPacket wraps data without copying it.
func NewPacket(data []byte) *Packet {
	return &Packet{
		id:   nextPacketID.Add(1),
		data: data,
	}
}

// NewPacketAt wraps data and stamps the capture time.
func NewPacketAt(data []byte, ts time.Time) *Packet {
	p := NewPacket(data)
	p.Anno.Timestamp = ts
	return p
}

// ID is a process-unique identity token for the buffer.
func (p *Packet) ID() uint64 { return p.id }

// Data returns the payload. Elements that only annotate must not write to it.
func (p *Packet) Data() []byte { return p.data }

// Len returns the payload length.
func (p *Packet) Len() int { return len(p.data) }

// SetNetworkHeader records that data[off:off+n] is a validated network header.
func (p *Packet) SetNetworkHeader(off, n int) {
	if off < 0 || n < 0 || off+n > len(p.data) {
		return
	}
	p.Anno.netOff = off + 1
	p.Anno.netLen = n
}

// NetworkHeader returns the header recorded by SetNetworkHeader, or nil.
// The returned slice aliases the payload and is read-only for every consumer.
func (p *Packet) NetworkHeader() []byte {
	if p.Anno.netOff == 0 {
		return nil
	}
	off := p.Anno.netOff - 1
	return p.data[off : off+p.Anno.netLen : off+p.Anno.netLen]
}

// NetworkHeaderOffset returns the recorded header offset and whether one is set.
func (p *Packet) NetworkHeaderOffset() (int, bool) {
	return p.Anno.netOff - 1, p.Anno.netOff != 0
}

// Kill destroys the packet. The payload reference is released.
func (p *Packet) Kill() {
	p.dead = true
	p.data = nil
	p.Anno.netOff = 0
	p.Anno.netLen = 0
}

// Dead reports whether Kill has been called.
func (p *Packet) Dead() bool { return p.dead }
