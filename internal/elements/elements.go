// Package elements registers the built-in element classes.
package elements

import (
	"firestige.xyz/pktgraph/internal/element"
	"firestige.xyz/pktgraph/internal/elements/checkipheader"
	"firestige.xyz/pktgraph/internal/elements/discard"
	"firestige.xyz/pktgraph/internal/elements/hexprint"
	"firestige.xyz/pktgraph/internal/elements/paint"
	"firestige.xyz/pktgraph/internal/elements/todump"
)

var builtins = map[string]element.Constructor{
	checkipheader.Class: checkipheader.New,
	paint.Class:         paint.New,
	hexprint.Class:      hexprint.New,
	discard.Class:       discard.New,
	todump.Class:        todump.New,
}

// RegisterAll adds every built-in class to r.
func RegisterAll(r *element.Registry) error {
	for class, ctor := range builtins {
		if err := r.Register(class, ctor); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in classes.
func NewRegistry() *element.Registry {
	r := element.NewRegistry()
	if err := RegisterAll(r); err != nil {
		panic(err)
	}
	return r
}
