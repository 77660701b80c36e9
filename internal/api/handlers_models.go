package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mcplane/mcpd/internal/apperr"
	"github.com/mcplane/mcpd/internal/registry"
)

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	descriptors := s.registry.List()
	views := make([]ModelDescriptorView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, descriptorView(d))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d := s.registry.Get(id)
	if d == nil {
		writeError(w, apperr.NotFound("unknown model id '"+id+"'"))
		return
	}
	writeJSON(w, http.StatusOK, descriptorView(d))
}

func descriptorView(d *registry.Descriptor) ModelDescriptorView {
	caps := make([]string, 0, len(d.Capabilities))
	for c, enabled := range d.Capabilities {
		if enabled {
			caps = append(caps, string(c))
		}
	}
	return ModelDescriptorView{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		Capabilities:  caps,
		ContextLength: d.ContextLength,
		Pricing:       d.Pricing,
		Metadata:      d.Metadata,
	}
}

// requireCapability checks that the model advertises cap before dispatch;
// the dispatcher may refuse operations a model does not advertise (§2).
func (s *Server) requireCapability(w http.ResponseWriter, id string, cap registry.Capability) (*registry.Descriptor, bool) {
	d := s.registry.Get(id)
	if d == nil {
		writeError(w, apperr.NotFound("unknown model id '"+id+"'"))
		return nil, false
	}
	if !d.HasCapability(cap) {
		writeError(w, apperr.NotFound("model '"+id+"' does not support this operation"))
		return nil, false
	}
	return d, true
}
