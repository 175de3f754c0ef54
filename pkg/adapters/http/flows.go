package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/switchboard/pkg/adapters/file"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/go-chi/chi/v5"
)

type publishResponse struct {
	ID       string         `json:"id"`
	Version  int            `json:"version"`
	Warnings []flow.Warning `json:"warnings,omitempty"`
}

type validateResponse struct {
	Valid     bool           `json:"valid"`
	Defects   []flow.Defect  `json:"defects,omitempty"`
	Warnings  []flow.Warning `json:"warnings,omitempty"`
	Variables []string       `json:"variables,omitempty"`
}

func (s *Server) readFlow(w http.ResponseWriter, r *http.Request) (domain.FlowDefinition, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodySize))
	if err != nil {
		return domain.FlowDefinition{}, err
	}
	def, err := file.Decode(body)
	if err != nil {
		return domain.FlowDefinition{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return def, nil
}

// ListFlows handles the GET /flows request.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Registry().List())
}

// PublishFlow handles the POST /flows request.
func (s *Server) PublishFlow(w http.ResponseWriter, r *http.Request) {
	def, err := s.readFlow(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.Engine.Validate(def)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, version, err := s.Engine.Publish(def)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if def.Active {
		if err := s.Engine.Activate(id); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	s.writeJSON(w, http.StatusCreated, publishResponse{ID: id, Version: version, Warnings: v.Warnings()})
}

// ValidateFlow handles the POST /flows/validate request.
func (s *Server) ValidateFlow(w http.ResponseWriter, r *http.Request) {
	def, err := s.readFlow(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.Engine.Validate(def)
	if defects := flow.Defects(err); defects != nil {
		s.writeJSON(w, http.StatusOK, validateResponse{Defects: defects})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, validateResponse{Valid: true, Warnings: v.Warnings(), Variables: v.Variables()})
}

// GetFlow handles the GET /flows/{id} request.
func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	version := 0
	if raw := r.URL.Query().Get("version"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("%w: invalid version %q", errBadRequest, raw))
			return
		}
		version = n
	}

	def, err := s.Engine.Registry().Definition(chi.URLParam(r, "id"), version)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "yaml") {
		data, err := file.Encode(def)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(data)
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

// DeleteFlow handles the DELETE /flows/{id} request.
func (s *Server) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Registry().Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateFlow handles the POST /flows/{id}/activate request.
func (s *Server) ActivateFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Activate(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeactivateFlow handles the POST /flows/{id}/deactivate request.
func (s *Server) DeactivateFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Deactivate(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
