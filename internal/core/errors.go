// Package core defines sentinel errors.
package core

import "errors"

var (
	// Configuration errors
	ErrConfigInvalid     = errors.New("pktgraph: invalid configuration")
	ErrResourceExhausted = errors.New("pktgraph: resource exhausted")

	// Graph construction errors
	ErrUnknownClass       = errors.New("pktgraph: unknown element class")
	ErrDuplicateClass     = errors.New("pktgraph: element class already registered")
	ErrDuplicateElement   = errors.New("pktgraph: duplicate element name")
	ErrUnknownElement     = errors.New("pktgraph: unknown element")
	ErrPortOutOfRange     = errors.New("pktgraph: port out of range")
	ErrDisciplineConflict = errors.New("pktgraph: push/pull conflict")

	// Handler errors
	ErrHandlerNotFound    = errors.New("pktgraph: handler not found")
	ErrHandlerNotReadable = errors.New("pktgraph: handler not readable")
	ErrHandlerNotWritable = errors.New("pktgraph: handler not writable")

	// Runtime errors
	ErrGraphStopped = errors.New("pktgraph: graph stopped")
)
