// Package registry implements the in-memory model catalog (C1). Descriptors
// are registered once at startup; after the dispatch surface opens for
// requests the registry is read-only.
package registry

import (
	"sort"
	"sync"

	"github.com/mcplane/mcpd/internal/apperr"
)

// Capability names a class of operation a model supports.
type Capability string

const (
	CapabilityChat             Capability = "chat"
	CapabilityCompletion       Capability = "completion"
	CapabilityEmbeddings       Capability = "embeddings"
	CapabilityImageGeneration  Capability = "image_generation"
	CapabilityGit              Capability = "git"
	CapabilityFilesystem       Capability = "filesystem"
	CapabilityPrometheus       Capability = "prometheus"
)

// Descriptor is an immutable-after-registration model record.
type Descriptor struct {
	ID             string
	Name           string
	Description    string
	Capabilities   map[Capability]bool
	ContextLength  int
	Pricing        map[string]float64
	Metadata       map[string]any
}

// HasCapability reports whether the descriptor advertises cap.
func (d *Descriptor) HasCapability(cap Capability) bool {
	return d.Capabilities[cap]
}

// Registry is the exclusive owner of registered descriptors.
type Registry struct {
	mu        sync.RWMutex
	models    map[string]*Descriptor
	order     []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		models: make(map[string]*Descriptor),
	}
}

// Register adds a descriptor to the catalog. Registration is intended to
// happen only at startup, before the dispatch surface begins serving
// requests; the mutex exists for safety, not because concurrent
// registration is a supported usage pattern.
func (r *Registry) Register(d *Descriptor) error {
	if d.ID == "" {
		return apperr.Validation("id", "model descriptor id must not be empty")
	}
	if len(d.Capabilities) == 0 {
		return apperr.Validation("capabilities", "model descriptor must advertise at least one capability")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[d.ID]; exists {
		return apperr.New(apperr.KindValidation, "duplicate model id: "+d.ID)
	}

	r.models[d.ID] = d
	r.order = append(r.order, d.ID)
	return nil
}

// Unregister removes a descriptor by id, returning false if it was absent.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[id]; !exists {
		return false
	}
	delete(r.models, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the descriptor for id, or nil if unregistered.
func (r *Registry) Get(id string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[id]
}

// List returns every registered descriptor. Order is stable within a
// process run (registration order) but otherwise unspecified.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id])
	}
	return out
}

// ListSorted returns every registered descriptor sorted by id. Useful for
// deterministic test assertions and listings.
func (r *Registry) ListSorted() []*Descriptor {
	out := r.List()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
