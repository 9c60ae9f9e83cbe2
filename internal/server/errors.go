package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/interview-engine/internal/session"
	"github.com/jonathan/interview-engine/internal/store"
	"github.com/jonathan/interview-engine/internal/types"
)

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// errorBody is the JSON error envelope. Recoverable tells the client to
// resync or retry instead of giving up on the session.
type errorBody struct {
	Error           string              `json:"error"`
	Code            string              `json:"code"`
	Recoverable     bool                `json:"recoverable"`
	Status          types.SessionStatus `json:"status,omitempty"`
	CurrentQuestion *types.QuestionView `json:"current_question,omitempty"`
}

// Error codes.
const (
	codeInvalidState = "invalid_state"
	codeStale        = "stale_response"
	codeNotFound     = "not_found"
	codeRetryLater   = "retry_later"
	codeValidation   = "validation_failed"
	codeUnavailable  = "unavailable"
	codeInternal     = "internal"
)

// HTTPStatus returns the status code for an engine error.
func HTTPStatus(err error) int {
	status, _ := classify(err)
	return status
}

func classify(err error) (int, string) {
	var (
		invalid    *session.InvalidStateError
		stale      *session.StaleResponseError
		validation *ErrValidation
		fields     validator.ValidationErrors
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusConflict, codeInvalidState
	case errors.As(err, &stale):
		return http.StatusConflict, codeStale
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case session.IsRetryable(err):
		return http.StatusServiceUnavailable, codeRetryLater
	case errors.As(err, &validation), errors.As(err, &fields):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, codeUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func errorPayload(err error) (int, errorBody) {
	status, code := classify(err)
	body := errorBody{Error: err.Error(), Code: code, Recoverable: session.IsRecoverable(err)}

	var (
		invalid *session.InvalidStateError
		stale   *session.StaleResponseError
	)
	switch {
	case errors.As(err, &stale):
		body.Status = stale.Status
		body.CurrentQuestion = stale.Current
	case errors.As(err, &invalid):
		body.Status = invalid.Status
	}
	if status == http.StatusInternalServerError {
		body.Error = "internal error"
	}
	return status, body
}
