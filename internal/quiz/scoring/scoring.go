// Package scoring derives statistics and points from recorded answers. Nothing
// here holds state; streaks are maintained by the controller as answers arrive.
package scoring

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
)

// Accuracy is correct answers over answered questions, where a question counts
// as answered when an option was chosen or it was skipped. Timed-out questions
// are left out of the denominator. Returns 0 when nothing was answered.
func Accuracy(s quiz.Session) float64 {
	correct, answered := 0, 0
	for _, a := range s.Answers {
		if !a.Answered() {
			continue
		}
		answered++
		if a.IsCorrect {
			correct++
		}
	}
	if answered == 0 {
		return 0
	}
	return float64(correct) / float64(answered)
}

// AverageTime is the mean time taken over all answer records.
func AverageTime(s quiz.Session) time.Duration {
	mean, err := stats.Mean(durations(s.Answers))
	if err != nil {
		return 0
	}
	return time.Duration(mean)
}

// MedianTime is the median time taken over all answer records.
func MedianTime(s quiz.Session) time.Duration {
	median, err := stats.Median(durations(s.Answers))
	if err != nil {
		return 0
	}
	return time.Duration(median)
}

// TotalTime sums the time charged to every question. Pauses are never charged.
func TotalTime(s quiz.Session) time.Duration {
	var total time.Duration
	for _, a := range s.Answers {
		total += a.TimeTaken
	}
	return total
}

func durations(answers []quiz.AnswerRecord) stats.Float64Data {
	data := make(stats.Float64Data, 0, len(answers))
	for _, a := range answers {
		data = append(data, float64(a.TimeTaken))
	}
	return data
}
