package element

import (
	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
)

// MockElement forwards every packet and records its configuration.
type MockElement struct {
	env  *Env
	args []string
}

func NewMockElement(env *Env) Element { return &MockElement{env: env} }

func (m *MockElement) Class() string          { return "Mock" }
func (m *MockElement) Processing() Processing { return AgnosticProcessing }
func (m *MockElement) Clone() Element         { return NewMockElement(m.env) }
func (m *MockElement) NotifyOutputs(int) int  { return 1 }

func (m *MockElement) Configure(args []string, errh diag.ErrorHandler) error {
	if len(args) > 1 {
		return errh.Errorf("too many arguments")
	}
	m.args = args
	return nil
}

func (m *MockElement) Process(p *core.Packet) Action { return Forward }
