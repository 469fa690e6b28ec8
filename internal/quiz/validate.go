package quiz

import "strings"

// ValidateBank checks the structural invariants of a question bank.
// Content (wording, Spanish correctness) is the generator's concern.
func ValidateBank(bank []Question) error {
	if len(bank) == 0 {
		return invalidBank("bank has no questions")
	}

	seen := make(map[string]int, len(bank))
	for i, q := range bank {
		if problem := checkQuestion(q); problem != "" {
			return invalidBank("question %d (%q): %s", i, q.ID, problem)
		}
		if prev, dup := seen[q.ID]; dup {
			return invalidBank("question %d reuses id %q of question %d", i, q.ID, prev)
		}
		seen[q.ID] = i
	}
	return nil
}

// checkQuestion returns a description of the first broken invariant, or "".
func checkQuestion(q Question) string {
	if strings.TrimSpace(q.ID) == "" {
		return "missing id"
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return "missing prompt"
	}
	if len(q.Options) < 2 {
		return "needs at least 2 options"
	}
	options := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := options[opt]; dup {
			return "duplicate option " + opt
		}
		options[opt] = struct{}{}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return "correct index out of range"
	}
	if !q.Difficulty.Valid() {
		return "unknown difficulty " + string(q.Difficulty)
	}
	if q.TimeLimitSeconds <= 0 {
		return "time limit must be positive"
	}
	return ""
}
