package api

import (
	"net/http"

	"github.com/mcplane/mcpd/internal/apperr"
	"github.com/mcplane/mcpd/internal/fsgateway"
)

type fsEntryView struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

type fsInfoView struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	Permissions string `json:"permissions"`
	CreatedAt   string `json:"created_at"`
	ModifiedAt  string `json:"modified_at"`
	AccessedAt  string `json:"accessed_at"`
}

func (s *Server) requireGateway(w http.ResponseWriter) (*fsgateway.Gateway, bool) {
	if s.gateway == nil {
		writeError(w, apperr.Upstream("no filesystem gateway configured", nil))
		return nil, false
	}
	return s.gateway, true
}

func (s *Server) handleFsList(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.requireGateway(w)
	if !ok {
		return
	}
	var req FsListRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" {
		writeError(w, apperr.Validation("path", "path is required"))
		return
	}

	entries, err := gw.List(req.Path)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]fsEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, fsEntryView{Name: e.Name, Path: e.Path, IsDir: e.IsDir, Size: e.Size})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}

func (s *Server) handleFsRead(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.requireGateway(w)
	if !ok {
		return
	}
	var req FsReadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" {
		writeError(w, apperr.Validation("path", "path is required"))
		return
	}

	content, err := gw.Read(req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": req.Path, "content": content})
}

func (s *Server) handleFsReadMany(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.requireGateway(w)
	if !ok {
		return
	}
	var req FsReadManyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, apperr.Validation("paths", "at least one path is required"))
		return
	}

	results := gw.ReadMany(req.Paths)
	out := make(map[string]map[string]string, len(results))
	for path, res := range results {
		if res.Err != "" {
			out[path] = map[string]string{"error": res.Err}
			continue
		}
		out[path] = map[string]string{"content": res.Content}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (s *Server) handleFsWrite(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.requireGateway(w)
	if !ok {
		return
	}
	var req FsWriteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" {
		writeError(w, apperr.Validation("path", "path is required"))
		return
	}

	result, err := gw.Write(req.Path, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": result.Path, "size": result.Size, "ok": result.OK})
}

func (s *Server) handleFsEdit(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.requireGateway(w)
	if !ok {
		return
	}
	var req FsEditRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" {
		writeError(w, apperr.Validation("path", "path is required"))
		return
	}
	if len(req.Edits) == 0 {
		writeError(w, apperr.Validation("edits", "at least one edit is required"))
		return
	}

	ops := make([]fsgateway.EditOperation, 0, len(req.Edits))
	for _, e := range req.Edits {
		ops = append(ops, fsgateway.EditOperation{OldText: e.OldText, NewText: e.NewText})
	}

	result, err := gw.Edit(req.Path, ops, req.DryRun)
	if err != nil {
		writeError(w, err)
		return
	}

	applied := make([]map[string]string, 0, len(result.Applied))
	for _, a := range result.Applied {
		applied = append(applied, map[string]string{"old_text": a.OldText, "new_text": a.NewText})
	}
	failed := make([]map[string]string, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, map[string]string{"old_text": f.OldText, "new_text": f.NewText, "reason": f.Reason})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":          result.Path,
		"original_size": result.OriginalSize,
		"new_size":      result.NewSize,
		"dry_run":       result.DryRun,
		"applied":       applied,
		"failed":        failed,
		"diff":          result.Diff,
	})
}

func (s *Server) handleFsMkdir(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.requireGateway(w)
	if !ok {
		return
	}
	var req FsMkdirRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" {
		writeError(w, apperr.Validation("path", "path is required"))
		return
	}

	if err := gw.Mkdir(req.Path); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": req.Path, "ok": true})
}

func (s *Server) handleFsMove(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.requireGateway(w)
	if !ok {
		return
	}
	var req FsMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Source == "" || req.Destination == "" {
		writeError(w, apperr.Validation("source", "source and destination are required"))
		return
	}

	if err := gw.Move(req.Source, req.Destination); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": req.Source, "destination": req.Destination, "ok": true})
}

func (s *Server) handleFsSearch(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.requireGateway(w)
	if !ok {
		return
	}
	var req FsSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Root == "" || req.Glob == "" {
		writeError(w, apperr.Validation("root", "root and glob are required"))
		return
	}

	matches, err := gw.Search(req.Root, req.Glob, req.Excludes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches, "match_count": len(matches)})
}

func (s *Server) handleFsInfo(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.requireGateway(w)
	if !ok {
		return
	}
	var req FsInfoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" {
		writeError(w, apperr.Validation("path", "path is required"))
		return
	}

	info, err := gw.Info(req.Path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fsInfoView{
		Path:        info.Path,
		Name:        info.Name,
		Size:        info.Size,
		Type:        info.Type,
		Permissions: info.Permissions,
		CreatedAt:   info.CreatedAt,
		ModifiedAt:  info.ModifiedAt,
		AccessedAt:  info.AccessedAt,
	})
}
