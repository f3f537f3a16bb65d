// Package checksum computes the RFC 1071 internet checksum.
//
// Two interchangeable implementations are provided: Portable, a plain
// byte-pair accumulator, and Fast, backed by gVisor's unrolled
// implementation. Both return the ones-complement of the ones-complement sum,
// so a buffer that already carries a correct checksum yields 0.
package checksum

import (
	"fmt"

	gvchecksum "gvisor.dev/gvisor/pkg/tcpip/checksum"
)

// Func computes the internet checksum of b.
type Func func(b []byte) uint16

// Mode selects a Func by name.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModePortable Mode = "portable"
)

// ParseMode validates a mode name. The empty string selects ModeFast.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeFast:
		return ModeFast, nil
	case ModePortable:
		return ModePortable, nil
	default:
		return "", fmt.Errorf("unknown checksum mode %q (must be fast or portable)", s)
	}
}

// Func returns the implementation for m. Unknown modes fall back to Fast.
func (m Mode) Func() Func {
	if m == ModePortable {
		return Portable
	}
	return Fast
}

// Portable sums big-endian 16-bit words, padding an odd trailing byte with zero.
func Portable(b []byte) uint16 {
	var sum uint64
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint64(b[i])<<8 | uint64(b[i+1])
	}
	if n&1 == 1 {
		sum += uint64(b[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}

// Fast delegates to gVisor's checksum.
func Fast(b []byte) uint16 {
	return ^gvchecksum.Checksum(b, 0)
}

// Put writes the checksum of hdr into hdr[off:off+2]. The field is zeroed first.
func Put(hdr []byte, off int, fn Func) {
	hdr[off], hdr[off+1] = 0, 0
	gvchecksum.Put(hdr[off:], fn(hdr))
}
