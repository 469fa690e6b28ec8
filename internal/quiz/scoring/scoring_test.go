package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
)

func TestAccuracy(t *testing.T) {
	correct := quiz.AnswerRecord{SelectedIndex: intPtr(0), IsCorrect: true}
	wrong := quiz.AnswerRecord{SelectedIndex: intPtr(1)}
	skipped := quiz.AnswerRecord{Skipped: true}
	timedOut := quiz.AnswerRecord{TimedOut: true}

	tests := []struct {
		name    string
		answers []quiz.AnswerRecord
		want    float64
	}{
		{name: "no answers", answers: nil, want: 0},
		{name: "only timeouts", answers: []quiz.AnswerRecord{timedOut, timedOut}, want: 0},
		{name: "all correct", answers: []quiz.AnswerRecord{correct, correct}, want: 1},
		{name: "skips count as answered", answers: []quiz.AnswerRecord{correct, skipped}, want: 0.5},
		{name: "timeouts excluded", answers: []quiz.AnswerRecord{correct, wrong, timedOut}, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Accuracy(quiz.Session{Answers: tt.answers})
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestTimesOnEmptySession(t *testing.T) {
	s := quiz.Session{}
	assert.Zero(t, AverageTime(s))
	assert.Zero(t, MedianTime(s))
	assert.Zero(t, TotalTime(s))
}

func TestAverageAndMedianTime(t *testing.T) {
	s := quiz.Session{Answers: []quiz.AnswerRecord{
		{TimeTaken: time.Second},
		{TimeTaken: 3 * time.Second},
		{TimeTaken: 10 * time.Second},
	}}

	assert.InDelta(t, float64(14*time.Second)/3, float64(AverageTime(s)), float64(time.Microsecond))
	assert.Equal(t, 3*time.Second, MedianTime(s))
	assert.Equal(t, 14*time.Second, TotalTime(s))
}
