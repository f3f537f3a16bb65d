package graph

import (
	"firestige.xyz/pktgraph/internal/config"
	"firestige.xyz/pktgraph/internal/element"
)

// Builder provides a fluent interface for building graphs.
// This is an alternative to using config.GraphConfig directly.
type Builder struct {
	config config.GraphConfig
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Element declares an element with positional arguments.
func (b *Builder) Element(name, class string, args ...string) *Builder {
	b.config.Elements = append(b.config.Elements, config.ElementConfig{
		Name:  name,
		Class: class,
		Args:  append([]string{}, args...),
	})
	return b
}

// Connect wires output port of from to the input of to.
func (b *Builder) Connect(from string, port int, to string) *Builder {
	b.config.Connections = append(b.config.Connections, config.ConnectionConfig{
		From: from,
		Port: port,
		To:   to,
	})
	return b
}

// Chain connects output 0 of each element to the next one.
func (b *Builder) Chain(names ...string) *Builder {
	for i := 1; i < len(names); i++ {
		b.Connect(names[i-1], 0, names[i])
	}
	return b
}

// Entry sets the element packets are pushed into.
func (b *Builder) Entry(name string) *Builder {
	b.config.Entry = name
	return b
}

// Config returns the accumulated configuration.
func (b *Builder) Config() config.GraphConfig {
	return b.config
}

// Build creates the graph.
func (b *Builder) Build(reg *element.Registry, env *element.Env) (*Graph, error) {
	return Build(b.config, reg, env)
}
