package questionbank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand/v2"
	"os"

	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
)

// LoadFile reads and validates a bank stored as JSON on disk.
func LoadFile(path string) ([]quiz.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	questions, err := ReadBank(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return questions, nil
}

// ReadBank decodes either a bare JSON array of questions or an object with a
// "questions" field, filling missing time limits from the difficulty.
func ReadBank(r io.Reader) ([]quiz.Question, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var questions []quiz.Question
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &questions)
	} else {
		var wrapped struct {
			Questions []quiz.Question `json:"questions"`
		}
		err = json.Unmarshal(trimmed, &wrapped)
		questions = wrapped.Questions
	}
	if err != nil {
		return nil, fmt.Errorf("decode bank: %w", err)
	}

	for i := range questions {
		if questions[i].TimeLimitSeconds == 0 {
			questions[i].TimeLimitSeconds = DefaultTimeLimit(questions[i].Difficulty)
		}
	}
	if err := quiz.ValidateBank(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// StaticGenerator serves banks from a fixed question set, typically loaded
// with LoadFile. Questions matching the requested difficulty are preferred;
// the order is shuffled deterministically from the request seed.
type StaticGenerator struct {
	questions []quiz.Question
}

var _ Generator = (*StaticGenerator)(nil)

func NewStaticGenerator(questions []quiz.Question) *StaticGenerator {
	return &StaticGenerator{questions: questions}
}

func (g *StaticGenerator) GenerateBank(_ context.Context, req Request) ([]quiz.Question, error) {
	req = req.Normalize()

	var pool []quiz.Question
	for _, q := range g.questions {
		if q.Difficulty == req.Difficulty {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		pool = append(pool, g.questions...)
	}
	if len(pool) == 0 {
		return nil, ErrGeneratorUnavailable
	}

	if req.Seed != "" {
		h := fnv.New64a()
		_, _ = h.Write([]byte(req.Seed))
		rng := rand.New(rand.NewPCG(h.Sum64(), 0))
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	}
	if len(pool) > req.Count {
		pool = pool[:req.Count]
	}
	return pool, nil
}

// EnqueueBank is a no-op; a static set is always ready.
func (g *StaticGenerator) EnqueueBank(context.Context, Request) error {
	return nil
}
