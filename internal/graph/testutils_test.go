package graph

import (
	"strconv"

	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
	"firestige.xyz/pktgraph/internal/elements"
)

// MockRouter emits every packet on the configured port.
type MockRouter struct {
	port    int
	outputs int
	proc    element.Processing
}

func newMockRouter(proc element.Processing) element.Constructor {
	return func(*element.Env) element.Element { return &MockRouter{outputs: 1, proc: proc} }
}

func (m *MockRouter) Class() string                  { return "MockRouter" }
func (m *MockRouter) Processing() element.Processing { return m.proc }
func (m *MockRouter) Clone() element.Element         { return &MockRouter{outputs: 1, proc: m.proc} }

func (m *MockRouter) NotifyOutputs(n int) int {
	m.outputs = n
	return n
}

func (m *MockRouter) Configure(args []string, errh diag.ErrorHandler) error {
	if len(args) == 0 {
		m.port = 0
		return nil
	}
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return errh.Errorf("bad port %q", args[0])
	}
	m.port = port
	return nil
}

func (m *MockRouter) Process(*core.Packet) element.Action { return element.Output(m.port) }

// MockCloser consumes packets and records Close.
type MockCloser struct {
	closed int
}

func (m *MockCloser) Class() string                  { return "MockCloser" }
func (m *MockCloser) Processing() element.Processing { return element.AgnosticProcessing }
func (m *MockCloser) Clone() element.Element         { return &MockCloser{} }
func (m *MockCloser) NotifyOutputs(int) int          { return 0 }

func (m *MockCloser) Configure(args []string, errh diag.ErrorHandler) error { return nil }

func (m *MockCloser) Process(p *core.Packet) element.Action {
	p.Kill()
	return element.Consume
}

func (m *MockCloser) Close() error {
	m.closed++
	return nil
}

func testRegistry() *element.Registry {
	r := elements.NewRegistry()
	_ = r.Register("MockRouter", newMockRouter(element.AgnosticProcessing))
	_ = r.Register("PushOut", newMockRouter(element.Processing{In: element.Push, Out: element.Push}))
	_ = r.Register("PullIn", newMockRouter(element.Processing{In: element.Pull, Out: element.Pull}))
	_ = r.Register("MockCloser", func(*element.Env) element.Element { return &MockCloser{} })
	return r
}
