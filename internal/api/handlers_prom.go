package api

import (
	"net/http"

	"github.com/mcplane/mcpd/internal/apperr"
	"github.com/mcplane/mcpd/internal/promproxy"
)

func (s *Server) requireProm(w http.ResponseWriter) (*promproxy.Proxy, bool) {
	if s.prometheus == nil {
		writeError(w, apperr.Upstream("no prometheus proxy configured", nil))
		return nil, false
	}
	return s.prometheus, true
}

func (s *Server) handlePromQuery(w http.ResponseWriter, r *http.Request) {
	prom, ok := s.requireProm(w)
	if !ok {
		return
	}
	var req PromQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Query == "" {
		writeError(w, apperr.Validation("query", "query is required"))
		return
	}
	writeJSON(w, http.StatusOK, prom.Query(r.Context(), req.Query, req.Time))
}

func (s *Server) handlePromQueryRange(w http.ResponseWriter, r *http.Request) {
	prom, ok := s.requireProm(w)
	if !ok {
		return
	}
	var req PromQueryRangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Query == "" || req.Start == "" || req.End == "" || req.Step == "" {
		writeError(w, apperr.Validation("query", "query, start, end, and step are required"))
		return
	}
	writeJSON(w, http.StatusOK, prom.QueryRange(r.Context(), req.Query, req.Start, req.End, req.Step))
}

func (s *Server) handlePromSeries(w http.ResponseWriter, r *http.Request) {
	prom, ok := s.requireProm(w)
	if !ok {
		return
	}
	var req PromSeriesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Match) == 0 {
		writeError(w, apperr.Validation("match", "at least one match selector is required"))
		return
	}
	writeJSON(w, http.StatusOK, prom.Series(r.Context(), req.Match, req.Start, req.End))
}

func (s *Server) handlePromLabelValues(w http.ResponseWriter, r *http.Request) {
	prom, ok := s.requireProm(w)
	if !ok {
		return
	}
	var req PromLabelValuesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Label == "" {
		writeError(w, apperr.Validation("label", "label is required"))
		return
	}
	writeJSON(w, http.StatusOK, prom.LabelValues(r.Context(), req.Label))
}

func (s *Server) handlePromLabels(w http.ResponseWriter, r *http.Request) {
	prom, ok := s.requireProm(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, prom.Labels(r.Context()))
}

func (s *Server) handlePromTargets(w http.ResponseWriter, r *http.Request) {
	prom, ok := s.requireProm(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, prom.Targets(r.Context()))
}

func (s *Server) handlePromRules(w http.ResponseWriter, r *http.Request) {
	prom, ok := s.requireProm(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, prom.Rules(r.Context()))
}

func (s *Server) handlePromAlerts(w http.ResponseWriter, r *http.Request) {
	prom, ok := s.requireProm(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, prom.Alerts(r.Context()))
}
