// Package graph hosts a set of configured elements wired into a directed
// graph and pushes packets through it.
package graph

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"firestige.xyz/pktgraph/internal/config"
	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
	"firestige.xyz/pktgraph/internal/log"
)

const unconnected = -1

type node struct {
	name    string
	elem    element.Element
	args    atomic.Pointer[[]string] // read by handlers without g.mu
	outputs []int                    // downstream node index per port, or unconnected
	proc    element.Processing
	metrics *Metrics
}

// Graph owns its elements. Push and handler writes are serialized by one
// mutex so an element never sees reconfiguration during Process.
type Graph struct {
	mu       sync.Mutex
	nodes    []*node
	byName   map[string]int
	entry    int
	handlers *element.HandlerTable
	env      *element.Env
	logger   log.Logger
	closed   bool
}

// Build constructs, configures and wires every element of cfg. All
// configuration errors are reported before Build gives up.
func Build(cfg config.GraphConfig, reg *element.Registry, env *element.Env) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if env == nil {
		env = &element.Env{}
	}
	logger := env.Logger
	if logger == nil {
		logger = log.GetLogger()
	}

	g := &Graph{
		byName:   make(map[string]int, len(cfg.Elements)),
		handlers: element.NewHandlerTable(),
		env:      env,
		logger:   logger.WithField("component", "graph"),
	}

	var errs []error
	for _, ec := range cfg.Elements {
		e, err := reg.New(ec.Class, env)
		if err != nil {
			errs = append(errs, fmt.Errorf("element %s: %w", ec.Name, err))
			continue
		}
		args := ec.Arguments()
		if err := e.Configure(args, diag.NewContextHandler(logger, ec.Name, ec.Class)); err != nil {
			errs = append(errs, err)
		}
		n := &node{name: ec.Name, elem: e}
		n.args.Store(&args)
		g.byName[ec.Name] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}
	if len(errs) > 0 {
		g.closeElements()
		return nil, errors.Join(errs...)
	}

	if err := g.connect(cfg); err != nil {
		g.closeElements()
		return nil, err
	}
	g.entry = g.byName[cfg.Entry]
	if err := g.checkCycles(); err != nil {
		g.closeElements()
		return nil, err
	}
	if err := g.resolveProcessing(cfg); err != nil {
		g.closeElements()
		return nil, err
	}
	g.registerHandlers()

	g.logger.WithField("elements", len(g.nodes)).WithField("connections", len(cfg.Connections)).
		WithField("entry", cfg.Entry).Info("graph built")
	return g, nil
}

// connect negotiates output counts and fills in each node's output table.
func (g *Graph) connect(cfg config.GraphConfig) error {
	want := make([]int, len(g.nodes))
	for i := range want {
		want[i] = 1
	}
	for _, c := range cfg.Connections {
		from := g.byName[c.From]
		want[from] = max(want[from], c.Port+1)
	}

	for i, n := range g.nodes {
		got := n.elem.NotifyOutputs(want[i])
		n.outputs = make([]int, got)
		for port := range n.outputs {
			n.outputs[port] = unconnected
		}
		n.metrics = NewMetrics(n.name, got)
	}

	for _, c := range cfg.Connections {
		from := g.nodes[g.byName[c.From]]
		if c.Port >= len(from.outputs) {
			return fmt.Errorf("%s[%d] -> %s: %s has %d outputs: %w",
				c.From, c.Port, c.To, from.elem.Class(), len(from.outputs), core.ErrPortOutOfRange)
		}
		from.outputs[c.Port] = g.byName[c.To]
	}
	return nil
}

func (g *Graph) checkCycles() error {
	const (
		unseen = iota
		active
		done
	)
	state := make([]int, len(g.nodes))
	var visit func(i int) error
	visit = func(i int) error {
		state[i] = active
		for _, next := range g.nodes[i].outputs {
			if next == unconnected {
				continue
			}
			switch state[next] {
			case active:
				return fmt.Errorf("connection cycle through %s: %w", g.nodes[next].name, core.ErrConfigInvalid)
			case unseen:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		state[i] = done
		return nil
	}
	for i := range g.nodes {
		if state[i] == unseen {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveProcessing settles agnostic ports against their neighbours. An
// element agnostic on both sides keeps its input and output alike. Whatever
// stays agnostic becomes push.
func (g *Graph) resolveProcessing(cfg config.GraphConfig) error {
	in := make([]element.Discipline, len(g.nodes))
	out := make([]element.Discipline, len(g.nodes))
	linked := make([]bool, len(g.nodes))
	for i, n := range g.nodes {
		p := n.elem.Processing()
		in[i], out[i] = p.In, p.Out
		linked[i] = p.In == element.Agnostic && p.Out == element.Agnostic
	}

	for changed := true; changed; {
		changed = false
		for _, c := range cfg.Connections {
			f, t := g.byName[c.From], g.byName[c.To]
			if out[f] == element.Agnostic && in[t] != element.Agnostic {
				out[f], changed = in[t], true
			}
			if in[t] == element.Agnostic && out[f] != element.Agnostic {
				in[t], changed = out[f], true
			}
		}
		for i := range g.nodes {
			if !linked[i] || in[i] == out[i] {
				continue
			}
			if in[i] == element.Agnostic {
				in[i], changed = out[i], true
			} else if out[i] == element.Agnostic {
				out[i], changed = in[i], true
			}
		}
	}

	for i, n := range g.nodes {
		if in[i] == element.Agnostic {
			in[i] = element.Push
		}
		if out[i] == element.Agnostic {
			out[i] = element.Push
		}
		n.proc = element.Processing{In: in[i], Out: out[i]}
	}

	for i, n := range g.nodes {
		if linked[i] && in[i] != out[i] {
			return fmt.Errorf("%s joins a %s input to a %s output: %w", n.name, in[i], out[i], core.ErrDisciplineConflict)
		}
	}
	if in[g.entry] != element.Push {
		return fmt.Errorf("entry %s has a pull input: %w", g.nodes[g.entry].name, core.ErrDisciplineConflict)
	}
	for _, c := range cfg.Connections {
		f, t := g.byName[c.From], g.byName[c.To]
		if out[f] != in[t] {
			return fmt.Errorf("%s[%d] (%s) -> %s (%s): %w",
				c.From, c.Port, out[f], c.To, in[t], core.ErrDisciplineConflict)
		}
	}
	return nil
}

func (g *Graph) registerHandlers() {
	for _, n := range g.nodes {
		h := g.handlers.Scope(n.name)
		h.AddRead("class", func() string { return n.elem.Class() + "\n" })
		h.AddRead("config", func() string { return config.JoinArgs(*n.args.Load()) + "\n" })
		h.AddWrite("config", func(value string) error { return g.reconfigure(n, value) })
		h.AddRead("processing", func() string { return n.proc.String() + "\n" })
		if hp, ok := n.elem.(element.HandlerProvider); ok {
			hp.AddHandlers(h)
		}
	}
}

// reconfigure runs with g.mu held.
func (g *Graph) reconfigure(n *node, value string) error {
	args := config.SplitArgs(strings.TrimSpace(value))
	errh := diag.NewContextHandler(g.logger, n.name, n.elem.Class())
	if err := n.elem.Configure(args, errh); err != nil {
		return err
	}
	n.args.Store(&args)
	g.logger.WithField("element", n.name).WithField("config", config.JoinArgs(args)).Info("element reconfigured")
	return nil
}

// Push runs p through the graph starting at the entry element. The packet
// ends either consumed by an element or killed on an unconnected output.
func (g *Graph) Push(p *core.Packet) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return core.ErrGraphStopped
	}

	n := g.nodes[g.entry]
	for {
		n.metrics.Received.Add(1)
		port, ok := n.elem.Process(p).Port()
		if !ok {
			n.metrics.consume()
			return nil
		}
		if port >= len(n.outputs) {
			// The element emitted on a port it never negotiated.
			p.Kill()
			n.metrics.Unconnected.Add(1)
			return nil
		}
		n.metrics.emit(port)
		next := n.outputs[port]
		if next == unconnected {
			p.Kill()
			n.metrics.drop(port)
			return nil
		}
		n = g.nodes[next]
	}
}

// ReadHandler reads "<element>.<handler>" without pausing traffic.
func (g *Graph) ReadHandler(name string) (string, error) {
	return g.handlers.Read(name)
}

// WriteHandler writes "<element>.<handler>" between packets.
func (g *Graph) WriteHandler(name, value string) error {
	if !g.handlers.Writable(name) {
		return g.handlers.Write(name, value)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return core.ErrGraphStopped
	}
	return g.handlers.Write(name, value)
}

// Handlers lists every handler of every element.
func (g *Graph) Handlers() []element.HandlerInfo {
	return g.handlers.List()
}

// Element returns the element called name.
func (g *Graph) Element(name string) (element.Element, bool) {
	i, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.nodes[i].elem, true
}

// Processing returns the resolved disciplines of element name.
func (g *Graph) Processing(name string) (element.Processing, bool) {
	i, ok := g.byName[name]
	if !ok {
		return element.Processing{}, false
	}
	return g.nodes[i].proc, true
}

// Stats returns a snapshot of every element's counters in declaration order.
func (g *Graph) Stats() []ElementStats {
	out := make([]ElementStats, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.metrics.snapshot(n.name, n.elem.Class())
	}
	return out
}

// Close stops traffic and closes every element that holds resources.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	return g.closeElements()
}

func (g *Graph) closeElements() error {
	var errs []error
	for _, n := range g.nodes {
		if c, ok := n.elem.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", n.name, err))
			}
		}
	}
	return errors.Join(errs...)
}
