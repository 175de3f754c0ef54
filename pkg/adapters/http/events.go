package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/providers"
	"github.com/aretw0/switchboard/pkg/runner"
	"github.com/go-chi/chi/v5"
)

// eventRequest is the wire form of an inbound event. Variables may hold
// any JSON value; non-strings are stringified.
type eventRequest struct {
	ConversationID string           `json:"conversation_id"`
	Kind           domain.EventKind `json:"kind"`
	Text           string           `json:"text,omitempty"`
	Outcome        string           `json:"outcome,omitempty"`
	Variables      map[string]any   `json:"variables,omitempty"`
	Step           uint64           `json:"step,omitempty"`
}

type eventResponse struct {
	Messages []domain.OutboundMessage `json:"messages"`
	Session  *domain.Session          `json:"session"`
}

type startRequest struct {
	ConversationID string         `json:"conversation_id"`
	Variables      map[string]any `json:"variables,omitempty"`
}

type closeRequest struct {
	Status domain.Status `json:"status"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

func (req eventRequest) toDomain() (domain.InboundEvent, error) {
	ev := domain.InboundEvent{
		ConversationID: req.ConversationID,
		Kind:           req.Kind,
		Outcome:        req.Outcome,
		Step:           req.Step,
	}
	if ev.ConversationID == "" {
		return ev, fmt.Errorf("%w: conversation_id is required", errBadRequest)
	}
	if ev.Kind == "" {
		ev.Kind = domain.EventUserText
	}

	switch ev.Kind {
	case domain.EventUserText:
		text, err := runner.SanitizeInput(req.Text)
		if err != nil {
			return ev, err
		}
		ev.Text = text
	case domain.EventActionCallback:
		if ev.Outcome == "" {
			return ev, fmt.Errorf("%w: outcome is required for %s", errBadRequest, ev.Kind)
		}
		vars, err := providers.DecodeVariables(req.Variables)
		if err != nil {
			return ev, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		ev.Variables = vars
	case domain.EventTimer:
	default:
		return ev, fmt.Errorf("%w: unknown event kind %q", errBadRequest, ev.Kind)
	}
	return ev, nil
}

// PostEvent handles the POST /events request.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := req.toDomain()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msgs, sess, err := s.Engine.Handle(r.Context(), ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, m := range msgs {
		if data, err := json.Marshal(m); err == nil {
			s.Streams.Broadcast(ev.ConversationID, string(data))
		}
	}
	if msgs == nil {
		msgs = []domain.OutboundMessage{}
	}
	s.writeJSON(w, http.StatusOK, eventResponse{Messages: msgs, Session: sess})
}

// StartSession handles the POST /sessions request.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ConversationID == "" {
		s.writeError(w, r, fmt.Errorf("%w: conversation_id is required", errBadRequest))
		return
	}
	vars, err := providers.DecodeVariables(req.Variables)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	sess, err := s.Engine.Start(r.Context(), req.ConversationID, vars)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Engine.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// CloseSession handles the POST /sessions/{id}/close request.
// An empty body closes the conversation as handed-off.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	req := closeRequest{Status: domain.StatusHandedOff}
	if r.ContentLength > 0 {
		if err := s.decode(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if !req.Status.Terminal() {
		s.writeError(w, r, fmt.Errorf("%w: %q is not a terminal status", errBadRequest, req.Status))
		return
	}

	sess, err := s.Engine.Close(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}
