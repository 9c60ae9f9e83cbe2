package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/server/middleware"
	"github.com/jonathan/interview-engine/internal/types"
	"go.uber.org/zap"
)

const (
	maxBodyBytes    = 1 << 20
	msgBodyRequired = "request body is required"
)

// sessionResponse is a snapshot plus the question the candidate should answer.
type sessionResponse struct {
	types.SessionSnapshot
	CurrentQuestion *types.QuestionView `json:"current_question,omitempty"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req types.ScheduleSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	snap, err := s.engine.Schedule(r.Context(), req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+snap.SessionID.String())
	s.jsonResponse(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := s.engine.Snapshot(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.engine.Start)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.engine.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.engine.Resume)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req types.CancelSessionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	snap, err := s.engine.Cancel(r.Context(), id, req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req types.SubmitResponseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	result, err := s.engine.SubmitResponse(r.Context(), id, req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleCurrentQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	view, err := s.engine.CurrentQuestion(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if view == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	entries, err := s.engine.Audit(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"session_id": id,
		"entries":    entries,
	})
}

type transitionFunc func(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error)

// transition runs fn and answers with the new snapshot and outstanding question.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := fn(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	resp := sessionResponse{SessionSnapshot: snap}
	if snap.CurrentQuestionID != nil {
		view, err := s.engine.CurrentQuestion(r.Context(), id)
		if err != nil {
			s.logger.Warn("failed to load current question", zap.Error(err))
		}
		resp.CurrentQuestion = view
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// sessionID parses the path id and checks that the caller may act on it.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return uuid.Nil, false
	}
	if s.jwtService != nil {
		p, err := middleware.GetPrincipal(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return uuid.Nil, false
		}
		if !p.CanAccess(id) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return uuid.Nil, false
		}
	}
	return id, true
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: msgBodyRequired}
		}
		return &ErrValidation{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(r *http.Request, v any) error {
	err := decodeJSON(r, v)
	var verr *ErrValidation
	if errors.As(err, &verr) && verr.Message == msgBodyRequired {
		return nil
	}
	return err
}
