package pricing

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrPlanNotFound is wrapped by lookups of unknown plan names.
var ErrPlanNotFound = errors.New("not found")

// Registry manages rate plans by name.
type Registry struct {
	mu    sync.RWMutex
	plans map[string]*Plan
	def   string
}

// NewRegistry creates an empty plan registry.
func NewRegistry() *Registry {
	return &Registry{
		plans: make(map[string]*Plan),
	}
}

// Register adds a plan. The first plan registered becomes the default.
func (r *Registry) Register(p *Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plans[p.Name]; exists {
		return fmt.Errorf("plan %q already registered", p.Name)
	}
	r.plans[p.Name] = p
	if r.def == "" {
		r.def = p.Name
	}
	return nil
}

// SetDefault selects the plan returned by Default and by Get("").
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plans[name]; !ok {
		return fmt.Errorf("plan %q %w", name, ErrPlanNotFound)
	}
	r.def = name
	return nil
}

// Get returns a plan by name. An empty name means the default plan.
func (r *Registry) Get(name string) (*Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.def
	}
	p, ok := r.plans[name]
	if !ok {
		return nil, fmt.Errorf("plan %q %w", name, ErrPlanNotFound)
	}
	return p, nil
}

// Default returns the default plan.
func (r *Registry) Default() (*Plan, error) {
	return r.Get("")
}

// List returns all registered plan names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plans))
	for name := range r.plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered plans ordered by name.
func (r *Registry) All() []*Plan {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	plans := make([]*Plan, 0, len(names))
	for _, name := range names {
		if p, ok := r.plans[name]; ok {
			plans = append(plans, p)
		}
	}
	return plans
}
