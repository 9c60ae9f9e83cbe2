//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestScheduleSessionRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		request ScheduleSessionRequest
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid request",
			request: ScheduleSessionRequest{
				CandidateID:  uuid.New().String(),
				JobRole:      "backend engineer",
				Technologies: []string{"go", "postgres"},
			},
		},
		{
			name:    "missing candidate",
			request: ScheduleSessionRequest{JobRole: "backend engineer"},
			wantErr: true,
			errMsg:  "required",
		},
		{
			name:    "candidate not a uuid",
			request: ScheduleSessionRequest{CandidateID: "abc", JobRole: "backend engineer"},
			wantErr: true,
			errMsg:  "uuid",
		},
		{
			name: "empty technology entry",
			request: ScheduleSessionRequest{
				CandidateID:  uuid.New().String(),
				JobRole:      "backend engineer",
				Technologies: []string{""},
			},
			wantErr: true,
			errMsg:  "min",
		},
		{
			name: "override below minimum",
			request: ScheduleSessionRequest{
				CandidateID: uuid.New().String(),
				JobRole:     "backend engineer",
				Config:      &SessionConfigOverrides{MinQuestions: intPtr(0)},
			},
			wantErr: true,
			errMsg:  "gte",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSubmitResponseRequest_Validation(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		request SubmitResponseRequest
		wantErr bool
	}{
		{name: "correct flag", request: SubmitResponseRequest{QuestionID: "q1", Correct: boolPtr(true)}},
		{name: "partial credit only", request: SubmitResponseRequest{QuestionID: "q1", PartialCredit: floatPtr(0.4)}},
		{name: "no outcome", request: SubmitResponseRequest{QuestionID: "q1"}, wantErr: true},
		{name: "missing question", request: SubmitResponseRequest{Correct: boolPtr(false)}, wantErr: true},
		{name: "partial credit above one", request: SubmitResponseRequest{QuestionID: "q1", PartialCredit: floatPtr(1.5)}, wantErr: true},
		{name: "negative time", request: SubmitResponseRequest{QuestionID: "q1", Correct: boolPtr(true), ResponseTimeSeconds: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.request)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionConfigOverrides_Apply(t *testing.T) {
	base := SessionConfig{MinQuestions: 5, MaxQuestions: 20, PrecisionThreshold: 0.3, InitialSE: 1}

	var nilOverrides *SessionConfigOverrides
	assert.Equal(t, base, nilOverrides.Apply(base))

	got := (&SessionConfigOverrides{
		MaxQuestions:      intPtr(8),
		TimeBudgetSeconds: intPtr(600),
		DifficultyBand:    &DifficultyBand{Min: -2, Max: 2},
	}).Apply(base)

	assert.Equal(t, 5, got.MinQuestions)
	assert.Equal(t, 8, got.MaxQuestions)
	assert.Equal(t, 10*time.Minute, got.TimeBudget)
	assert.Equal(t, DifficultyBand{Min: -2, Max: 2}, got.DifficultyBand)
}

func TestSessionConfig_Validate(t *testing.T) {
	valid := SessionConfig{MinQuestions: 1, MaxQuestions: 1, PrecisionThreshold: 0.3, InitialSE: 1}
	assert.NoError(t, valid.Validate())

	inverted := valid
	inverted.MinQuestions = 5
	inverted.MaxQuestions = 2
	assert.Error(t, inverted.Validate())

	noPrecision := valid
	noPrecision.PrecisionThreshold = 0
	assert.Error(t, noPrecision.Validate())

	band := valid
	band.DifficultyBand = DifficultyBand{Min: -1, Max: 1}
	assert.NoError(t, band.Validate())

	invertedBand := valid
	invertedBand.DifficultyBand = DifficultyBand{Min: 1, Max: -1}
	assert.Error(t, invertedBand.Validate())
}

func TestScheduleSessionRequest_InvertedBand(t *testing.T) {
	req := ScheduleSessionRequest{
		CandidateID: uuid.New().String(),
		JobRole:     "backend engineer",
		Config:      &SessionConfigOverrides{DifficultyBand: &DifficultyBand{Min: 2, Max: 0.5}},
	}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Max")
}
