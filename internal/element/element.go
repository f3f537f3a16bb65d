// Package element defines the contract every graph element implements.
//
// An element owns the packet it is given for the duration of Process and
// returns an Action saying where the packet goes next: out of one of its
// output ports, or nowhere (Consume), in which case the element has already
// destroyed it. Configuration happens before traffic and is serialized
// against it by the host graph.
package element

import (
	"fmt"

	"firestige.xyz/pktgraph/internal/checksum"
	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/log"
)

// Element is one node of a packet graph.
type Element interface {
	// Class names the element kind, e.g. "CheckIPHeader".
	Class() string
	// Processing declares the flow discipline of the input and output ports.
	Processing() Processing
	// Configure validates args and commits them. On error the previous
	// configuration, if any, stays in effect.
	Configure(args []string, errh diag.ErrorHandler) error
	// Clone returns a fresh, unconfigured element of the same class.
	Clone() Element
	// NotifyOutputs is called once the topology is known with the number of
	// outputs the graph would like; the return value is what the element
	// actually provides.
	NotifyOutputs(n int) int
	// Process handles one packet. It must not block.
	Process(p *core.Packet) Action
}

// HandlerProvider is implemented by elements that expose runtime handlers.
type HandlerProvider interface {
	AddHandlers(h *Handlers)
}

// Constructor builds an unconfigured element.
type Constructor func(env *Env) Element

// Env is the set of graph-owned handles an element receives at construction.
type Env struct {
	Sink     diag.Sink
	Checksum checksum.Func
	Logger   log.Logger
}

// NewEnv builds an Env around sink using the checksum implementation for mode.
func NewEnv(sink diag.Sink, mode checksum.Mode) *Env {
	return &Env{
		Sink:     sink,
		Checksum: mode.Func(),
		Logger:   log.GetLogger(),
	}
}

// Discipline is the flow-control style of a port.
type Discipline uint8

const (
	// Agnostic ports take whatever discipline their neighbour has.
	Agnostic Discipline = iota
	Push
	Pull
)

func (d Discipline) String() string {
	switch d {
	case Push:
		return "push"
	case Pull:
		return "pull"
	default:
		return "agnostic"
	}
}

// Processing is the pair of input and output disciplines.
type Processing struct {
	In  Discipline
	Out Discipline
}

// AgnosticProcessing defers both ports to their neighbours.
var AgnosticProcessing = Processing{In: Agnostic, Out: Agnostic}

func (p Processing) String() string {
	return p.In.String() + "/" + p.Out.String()
}

// Action is the outcome of Process: an output port, or Consume.
type Action int

const (
	// Consume means the element destroyed the packet.
	Consume Action = -1
	// Forward emits on output 0.
	Forward Action = 0
)

// Output emits on the given port.
func Output(port int) Action { return Action(port) }

// Port returns the output port, or false for Consume.
func (a Action) Port() (int, bool) {
	if a < 0 {
		return 0, false
	}
	return int(a), true
}

func (a Action) String() string {
	if a < 0 {
		return "consume"
	}
	return fmt.Sprintf("output %d", int(a))
}
