// Package metrics holds the Prometheus collectors for practice sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Answer outcome labels.
const (
	OutcomeCorrect   = "correct"
	OutcomeIncorrect = "incorrect"
	OutcomeSkipped   = "skipped"
	OutcomeTimedOut  = "timed_out"
)

// Session collectors. A nil *Session is valid and records nothing.
type Session struct {
	started   prometheus.Counter
	completed prometheus.Counter
	answers   *prometheus.CounterVec
	accuracy  prometheus.Histogram
	active    prometheus.Gauge
}

// NewSession registers the session collectors with reg.
func NewSession(reg prometheus.Registerer) *Session {
	f := promauto.With(reg)
	return &Session{
		started: f.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Total number of sessions started",
		}),
		completed: f.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_completed_total",
			Help: "Total number of sessions that recorded every answer",
		}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_answers_total",
			Help: "Answer records by outcome",
		}, []string{"outcome"}),
		accuracy: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_session_accuracy",
			Help:    "Accuracy of completed sessions",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_active_sessions",
			Help: "Sessions currently held in memory",
		}),
	}
}

func (m *Session) SessionStarted() {
	if m == nil {
		return
	}
	m.started.Inc()
}

func (m *Session) SessionCompleted(accuracy float64) {
	if m == nil {
		return
	}
	m.completed.Inc()
	m.accuracy.Observe(accuracy)
}

func (m *Session) AnswerRecorded(outcome string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(outcome).Inc()
}

func (m *Session) SetActive(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}
