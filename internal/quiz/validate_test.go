package quiz

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBank(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func([]Question) []Question
		wantErr string
	}{
		{name: "valid", mutate: func(b []Question) []Question { return b }},
		{name: "empty", mutate: func([]Question) []Question { return nil }, wantErr: "no questions"},
		{name: "missing id", mutate: func(b []Question) []Question { b[0].ID = " "; return b }, wantErr: "missing id"},
		{name: "missing prompt", mutate: func(b []Question) []Question { b[1].Prompt = ""; return b }, wantErr: "missing prompt"},
		{name: "single option", mutate: func(b []Question) []Question {
			b[0].Options = []string{"sí"}
			b[0].CorrectIndex = 0
			return b
		}, wantErr: "at least 2 options"},
		{name: "duplicate option", mutate: func(b []Question) []Question {
			b[0].Options = []string{"hola", "adiós", "hola"}
			return b
		}, wantErr: "duplicate option hola"},
		{name: "correct index negative", mutate: func(b []Question) []Question { b[0].CorrectIndex = -1; return b }, wantErr: "out of range"},
		{name: "correct index past end", mutate: func(b []Question) []Question { b[1].CorrectIndex = 3; return b }, wantErr: "out of range"},
		{name: "unknown difficulty", mutate: func(b []Question) []Question { b[0].Difficulty = "expert"; return b }, wantErr: "unknown difficulty"},
		{name: "zero time limit", mutate: func(b []Question) []Question { b[1].TimeLimitSeconds = 0; return b }, wantErr: "time limit"},
		{name: "duplicate id", mutate: func(b []Question) []Question { b[1].ID = b[0].ID; return b }, wantErr: `reuses id "q1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBank(tt.mutate(testBank(0, 1)))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidQuestionBank)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsRecoverable(invalidTransition("pause", StateSetup)))
	assert.True(t, IsRecoverable(ErrSessionNotComplete))
	assert.False(t, IsRecoverable(invalidBank("bad")))
	assert.Equal(t, "invalid transition: pause not allowed while setup", invalidTransition("pause", StateSetup).Error())
}

func TestSessionJSON(t *testing.T) {
	idx := 1
	s := Session{
		ID:           "s-1",
		Questions:    testBank(1),
		CurrentIndex: 1,
		Answers: []AnswerRecord{{
			QuestionID:    "q1",
			SelectedIndex: &idx,
			IsCorrect:     true,
			TimeTaken:     1500 * time.Millisecond,
		}},
		State:             StateCompleted,
		Streak:            1,
		MaxStreak:         1,
		StartedAt:         epoch,
		CompletedAt:       epoch.Add(2 * time.Second),
		PausedAccumulated: 500 * time.Millisecond,
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, 1, raw["total_questions"])
	assert.EqualValues(t, 500, raw["paused_accumulated_ms"])
	answers := raw["answers"].([]any)
	assert.EqualValues(t, 1500, answers[0].(map[string]any)["time_taken_ms"])

	var back Session
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s.Answers, back.Answers)
	assert.True(t, s.CompletedAt.Equal(back.CompletedAt))
	assert.Equal(t, s.PausedAccumulated, back.PausedAccumulated)
}

func TestSetupSessionJSONOmitsTimestamps(t *testing.T) {
	data, err := json.Marshal(Session{ID: "s-2", Questions: testBank(0), State: StateSetup})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"answers":[]`)
	assert.NotContains(t, string(data), "started_at")
}
