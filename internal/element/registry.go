package element

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/pktgraph/internal/core"
)

// Registry maps class names to constructors.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]Constructor)}
}

func (r *Registry) Register(class string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if class == "" || ctor == nil {
		return fmt.Errorf("register %q: class name and constructor are required", class)
	}
	if _, exists := r.classes[class]; exists {
		return fmt.Errorf("%s: %w", class, core.ErrDuplicateClass)
	}
	r.classes[class] = ctor
	return nil
}

// New constructs an unconfigured element of the given class.
func (r *Registry) New(class string, env *Env) (Element, error) {
	r.mu.RLock()
	ctor, ok := r.classes[class]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", class, core.ErrUnknownClass)
	}
	return ctor(env), nil
}

// Classes returns the registered class names in sorted order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
