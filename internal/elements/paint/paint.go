// Package paint implements Paint, which sets a packet's color annotation.
package paint

import (
	"strconv"
	"strings"
	"sync/atomic"

	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
)

const Class = "Paint"

type Paint struct {
	env   *element.Env
	color atomic.Uint32 // read by the color handler while traffic flows
}

func New(env *element.Env) element.Element { return &Paint{env: env} }

func (e *Paint) Class() string                  { return Class }
func (e *Paint) Processing() element.Processing { return element.AgnosticProcessing }
func (e *Paint) Clone() element.Element         { return New(e.env) }
func (e *Paint) NotifyOutputs(int) int          { return 1 }

// Configure takes exactly one COLOR in [0,255].
func (e *Paint) Configure(args []string, errh diag.ErrorHandler) error {
	if len(args) != 1 {
		return errh.Errorf("expected `Paint(COLOR)', got %d arguments", len(args))
	}
	v, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || v < 0 || v > 255 {
		return errh.Errorf("COLOR must be an integer between 0 and 255, got %q", args[0])
	}
	e.color.Store(uint32(v))
	return nil
}

func (e *Paint) Process(p *core.Packet) element.Action {
	p.Anno.Color = uint8(e.color.Load())
	return element.Forward
}

// Color returns the configured color.
func (e *Paint) Color() uint8 { return uint8(e.color.Load()) }

func (e *Paint) AddHandlers(h *element.Handlers) {
	h.AddRead("color", func() string {
		return strconv.Itoa(int(e.color.Load())) + "\n"
	})
}
