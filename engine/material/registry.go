package material

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNilMaterial is returned when a build function produces no material.
var ErrNilMaterial = errors.New("material: build returned nil")

// Registry deduplicates materials by name. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	materials map[string]*Material
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{materials: make(map[string]*Material)}
}

// Find returns the material registered under name.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - *Material: the material, or nil
//   - bool: true if it was found
func (r *Registry) Find(name string) (*Material, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.materials[name]
	return m, ok
}

// GetOrCreate returns the material registered under name, calling build to create and
// register it if there is none. build runs under the write lock, so a name is built at
// most once even under concurrent callers.
//
// Parameters:
//   - name: the material name
//   - build: constructs the material on a miss
//
// Returns:
//   - *Material: the registered material
//   - bool: true if build ran
//   - error: the error from build, in which case nothing is registered
func (r *Registry) GetOrCreate(name string, build func() (*Material, error)) (*Material, bool, error) {
	if m, ok := r.Find(name); ok {
		return m, false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.materials[name]; ok {
		return m, false, nil
	}
	m, err := build()
	if err != nil {
		return nil, false, fmt.Errorf("material %s: %w", name, err)
	}
	if m == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrNilMaterial, name)
	}
	r.materials[name] = m
	return m, true, nil
}

// Len returns the number of registered materials.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.materials)
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.materials))
	for name := range r.materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Release releases the GPU textures of every material and empties the registry.
func (r *Registry) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, m := range r.materials {
		m.Release()
		delete(r.materials, name)
	}
}
