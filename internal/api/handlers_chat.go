package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mcplane/mcpd/internal/apperr"
	"github.com/mcplane/mcpd/internal/registry"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.requireCapability(w, id, registry.CapabilityChat); !ok {
		return
	}

	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, apperr.Validation("messages", "at least one message is required"))
		return
	}

	if s.chatClient == nil {
		writeError(w, apperr.Upstream("no chat provider configured", nil))
		return
	}

	resp, err := s.chatClient.Chat(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.requireCapability(w, id, registry.CapabilityCompletion); !ok {
		return
	}

	var req CompletionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Prompt == "" {
		writeError(w, apperr.Validation("prompt", "prompt must not be empty"))
		return
	}

	if s.chatClient == nil {
		writeError(w, apperr.Upstream("no completion provider configured", nil))
		return
	}

	resp, err := s.chatClient.Completion(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
