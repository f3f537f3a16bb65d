// Package hexprint implements Print, which logs a hex preview of each packet.
package hexprint

import (
	"fmt"
	"strconv"
	"strings"

	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
)

const (
	Class = "Print"

	defaultMaxBytes = 24
	// maxBytesLimit caps the scratch buffer a single element may hold.
	maxBytesLimit = 1 << 20
)

const hexDigits = "0123456789abcdef"

type Print struct {
	env      *element.Env
	sink     diag.Sink
	label    string
	maxBytes int
	buf      []byte
}

func New(env *element.Env) element.Element {
	e := &Print{env: env, sink: diag.Discard}
	if env != nil && env.Sink != nil {
		e.sink = env.Sink
	}
	return e
}

func (e *Print) Class() string                  { return Class }
func (e *Print) Processing() element.Processing { return element.AgnosticProcessing }
func (e *Print) Clone() element.Element         { return New(e.env) }
func (e *Print) NotifyOutputs(int) int          { return 1 }

// Configure takes LABEL and an optional MAXBYTES.
func (e *Print) Configure(args []string, errh diag.ErrorHandler) error {
	if len(args) < 1 || len(args) > 2 {
		return errh.Errorf("expected `Print(LABEL [, MAXBYTES])', got %d arguments", len(args))
	}
	label := args[0]
	maxBytes := defaultMaxBytes
	if len(args) == 2 {
		v, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil || v < 0 {
			return errh.Errorf("MAXBYTES must be a non-negative integer, got %q", args[1])
		}
		if v > maxBytesLimit {
			return fmt.Errorf("%w: %w", errh.Errorf("MAXBYTES %d exceeds the limit of %d", v, maxBytesLimit), core.ErrResourceExhausted)
		}
		maxBytes = v
	}

	// Two digits per byte, a separator after each group of four, and one
	// spare byte.
	buf := make([]byte, 0, 3*maxBytes+1)
	e.label, e.maxBytes, e.buf = label, maxBytes, buf
	return nil
}

func (e *Print) Process(p *core.Packet) element.Action {
	data := p.Data()
	n := min(len(data), e.maxBytes)

	buf := e.buf[:0]
	for i, b := range data[:n] {
		buf = append(buf, hexDigits[b>>4], hexDigits[b&0x0f])
		if i%4 == 3 {
			buf = append(buf, ' ')
		}
	}
	e.buf = buf

	e.sink.Chatter(fmt.Sprintf("Print %s %x |%4d : %s", e.label, p.ID(), p.Len(), buf))
	return element.Forward
}

// Label returns the configured label.
func (e *Print) Label() string { return e.label }

// MaxBytes returns how many leading bytes are rendered.
func (e *Print) MaxBytes() int { return e.maxBytes }
