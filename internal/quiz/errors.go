package quiz

import (
	"errors"
	"fmt"
)

// Engine errors. Wrapped with detail; match with errors.Is.
var (
	// ErrInvalidQuestionBank is fatal to a Controller: the bank must be regenerated.
	ErrInvalidQuestionBank = errors.New("invalid question bank")
	// ErrInvalidTransition means the action is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidAnswer means the selected index is outside the question's options.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrSessionNotComplete is returned when results are requested too early.
	ErrSessionNotComplete = errors.New("session not complete")
)

func invalidTransition(action string, state State) error {
	return fmt.Errorf("%w: %s not allowed while %s", ErrInvalidTransition, action, state)
}

func invalidBank(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuestionBank, fmt.Sprintf(format, args...))
}

// IsInvalidTransition reports whether err is a state-machine rejection.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsInvalidAnswer reports whether err is an out-of-range selection.
func IsInvalidAnswer(err error) bool {
	return errors.Is(err, ErrInvalidAnswer)
}

// IsInvalidQuestionBank reports whether err came from bank validation.
func IsInvalidQuestionBank(err error) bool {
	return errors.Is(err, ErrInvalidQuestionBank)
}

// IsRecoverable reports whether the caller can retry in a different state
// without rebuilding the controller.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidAnswer) ||
		errors.Is(err, ErrSessionNotComplete)
}
