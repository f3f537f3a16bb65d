package element

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"firestige.xyz/pktgraph/internal/core"
)

// ReadFunc renders a handler's current value.
type ReadFunc func() string

// WriteFunc applies a value to a handler.
type WriteFunc func(value string) error

// Handler is a named runtime endpoint. Either function may be nil.
type Handler struct {
	Name  string
	Read  ReadFunc
	Write WriteFunc
}

// HandlerInfo describes a handler for listings.
type HandlerInfo struct {
	Name     string `json:"name"`
	Readable bool   `json:"readable"`
	Writable bool   `json:"writable"`
}

// HandlerTable holds the handlers of every element in a graph, keyed by
// "<element>.<handler>".
type HandlerTable struct {
	mu       sync.RWMutex
	handlers map[string]*Handler
}

func NewHandlerTable() *HandlerTable {
	return &HandlerTable{handlers: make(map[string]*Handler)}
}

// Scope returns the view an element uses to register its handlers.
func (t *HandlerTable) Scope(element string) *Handlers {
	return &Handlers{table: t, element: element}
}

func (t *HandlerTable) get(name string) (*Handler, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, core.ErrHandlerNotFound)
	}
	return h, nil
}

// Read calls a read handler.
func (t *HandlerTable) Read(name string) (string, error) {
	h, err := t.get(name)
	if err != nil {
		return "", err
	}
	if h.Read == nil {
		return "", fmt.Errorf("%s: %w", name, core.ErrHandlerNotReadable)
	}
	return h.Read(), nil
}

// Write calls a write handler. The caller serializes writes against traffic.
func (t *HandlerTable) Write(name, value string) error {
	h, err := t.get(name)
	if err != nil {
		return err
	}
	if h.Write == nil {
		return fmt.Errorf("%s: %w", name, core.ErrHandlerNotWritable)
	}
	return h.Write(value)
}

// Writable reports whether name exists and accepts writes.
func (t *HandlerTable) Writable(name string) bool {
	h, err := t.get(name)
	return err == nil && h.Write != nil
}

// List returns every handler sorted by name.
func (t *HandlerTable) List() []HandlerInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]HandlerInfo, 0, len(t.handlers))
	for name, h := range t.handlers {
		out = append(out, HandlerInfo{Name: name, Readable: h.Read != nil, Writable: h.Write != nil})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Handlers is an element-scoped view of a HandlerTable.
type Handlers struct {
	table   *HandlerTable
	element string
}

// AddRead registers or extends name with a read function.
func (h *Handlers) AddRead(name string, fn ReadFunc) {
	h.add(name, func(e *Handler) { e.Read = fn })
}

// AddWrite registers or extends name with a write function.
func (h *Handlers) AddWrite(name string, fn WriteFunc) {
	h.add(name, func(e *Handler) { e.Write = fn })
}

func (h *Handlers) add(name string, set func(*Handler)) {
	full := h.element + "." + strings.TrimSpace(name)
	h.table.mu.Lock()
	defer h.table.mu.Unlock()
	e, ok := h.table.handlers[full]
	if !ok {
		e = &Handler{Name: full}
		h.table.handlers[full] = e
	}
	set(e)
}
