// Package discard implements Discard, which destroys every packet it receives.
package discard

import (
	"strconv"
	"sync/atomic"

	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
)

const Class = "Discard"

type Discard struct {
	env   *element.Env
	count atomic.Uint64
}

func New(env *element.Env) element.Element { return &Discard{env: env} }

func (e *Discard) Class() string                  { return Class }
func (e *Discard) Processing() element.Processing { return element.AgnosticProcessing }
func (e *Discard) Clone() element.Element         { return New(e.env) }
func (e *Discard) NotifyOutputs(int) int          { return 0 }

func (e *Discard) Configure(args []string, errh diag.ErrorHandler) error {
	if len(args) != 0 {
		return errh.Errorf("Discard takes no arguments")
	}
	return nil
}

func (e *Discard) Process(p *core.Packet) element.Action {
	e.count.Add(1)
	p.Kill()
	return element.Consume
}

func (e *Discard) Count() uint64 { return e.count.Load() }

func (e *Discard) AddHandlers(h *element.Handlers) {
	h.AddRead("count", func() string {
		return strconv.FormatUint(e.count.Load(), 10) + "\n"
	})
}
