// Package questionbank loads calibrated question pools for interview sessions.
package questionbank

import (
	"context"
	"fmt"

	"github.com/jonathan/interview-engine/internal/types"
)

// Bank supplies the candidate pool for a session. An empty pool is a valid
// answer and ends the session as exhausted.
type Bank interface {
	FetchPool(ctx context.Context, q types.PoolQuery) ([]types.QuestionItem, error)
}

// Document is the on-disk shape of a question bank file.
type Document struct {
	Version   string               `json:"version,omitempty" yaml:"version,omitempty"`
	Questions []types.QuestionItem `json:"questions" yaml:"questions"`
}

// LoadError reports a bank file that could not be read or failed validation.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("question bank %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("question bank %s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
