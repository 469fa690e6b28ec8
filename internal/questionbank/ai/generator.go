package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/questionbank"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
)

// Config holds connection details for the AI description and question service.
type Config struct {
	GeneratorURL string
	GeneratorKey string
	Timeout      time.Duration
}

// Generator implements questionbank.Generator over HTTP.
type Generator struct {
	httpClient  *http.Client
	config      Config
	logger      zerolog.Logger
	generateURL string
	enqueueURL  string
}

var _ questionbank.Generator = (*Generator)(nil)

func NewGenerator(cfg Config, logger zerolog.Logger) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	base := strings.TrimSuffix(cfg.GeneratorURL, "/")

	return &Generator{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config:      cfg,
		logger:      logger.With().Str("component", "ai_generator").Logger(),
		generateURL: base + "/generate",
		enqueueURL:  base + "/enqueue",
	}
}

// GenerateBank synchronously requests questions and normalizes them into the
// engine's shape. Items that cannot be repaired are dropped.
func (g *Generator) GenerateBank(ctx context.Context, req questionbank.Request) ([]quiz.Question, error) {
	if g.config.GeneratorURL == "" {
		return nil, fmt.Errorf("generator endpoint not configured")
	}

	resp, err := g.post(ctx, g.generateURL, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var genResp generatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decode generator payload: %w", err)
	}

	questions := make([]quiz.Question, 0, len(genResp.Questions))
	for i, item := range genResp.Questions {
		q, ok := normalizeAIQuestion(item, req)
		if !ok {
			g.logger.Debug().Int("item", i).Str("prompt", item.Prompt).Msg("dropping unusable generated question")
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("generator returned empty question set")
	}
	return questions, nil
}

// EnqueueBank notifies the async generator service to prepare a future bank.
func (g *Generator) EnqueueBank(ctx context.Context, req questionbank.Request) error {
	if g.config.GeneratorURL == "" {
		return nil
	}

	resp, err := g.post(ctx, g.enqueueURL, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("enqueue returned status %d", resp.StatusCode)
	}
	return nil
}

func (g *Generator) post(ctx context.Context, url string, req questionbank.Request) (*http.Response, error) {
	body, err := json.Marshal(generatorRequest{
		Topic:      req.Topic,
		Difficulty: string(req.Difficulty),
		Count:      req.Count,
		Seed:       req.Seed,
		Language:   "es",
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.config.GeneratorKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.config.GeneratorKey)
	}
	return g.httpClient.Do(httpReq)
}

// normalizeAIQuestion trims and de-duplicates options, locates the correct
// answer, and fills ID, difficulty and time limit from the request.
func normalizeAIQuestion(item aiQuestion, req questionbank.Request) (quiz.Question, bool) {
	prompt := strings.TrimSpace(item.Prompt)
	if prompt == "" {
		return quiz.Question{}, false
	}

	answer := strings.TrimSpace(item.Answer)
	if answer == "" && item.CorrectIndex != nil && *item.CorrectIndex >= 0 && *item.CorrectIndex < len(item.Options) {
		answer = strings.TrimSpace(item.Options[*item.CorrectIndex])
	}
	if answer == "" {
		return quiz.Question{}, false
	}

	options := make([]string, 0, len(item.Options)+1)
	correct := -1
	for _, opt := range item.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" || containsFold(options, opt) {
			continue
		}
		if correct < 0 && strings.EqualFold(opt, answer) {
			correct = len(options)
		}
		options = append(options, opt)
	}
	if correct < 0 {
		correct = len(options)
		options = append(options, answer)
	}
	if len(options) < 2 {
		return quiz.Question{}, false
	}

	difficulty := quiz.Difficulty(strings.ToLower(item.Difficulty))
	if !difficulty.Valid() {
		difficulty = req.Difficulty
	}
	limit := req.TimeLimitSeconds
	if limit <= 0 {
		limit = questionbank.DefaultTimeLimit(difficulty)
	}

	id := strings.TrimSpace(item.ID)
	if id == "" {
		id = questionID(req.Seed, prompt)
	}

	return quiz.Question{
		ID:               id,
		Prompt:           prompt,
		Options:          options,
		CorrectIndex:     correct,
		Explanation:      strings.TrimSpace(item.Explanation),
		Difficulty:       difficulty,
		TimeLimitSeconds: limit,
		Hint:             strings.TrimSpace(item.Hint),
		ImageURL:         item.ImageURL,
	}, true
}

// questionID is stable for a seeded request so cached and regenerated banks agree.
func questionID(seed, prompt string) string {
	if seed == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed+"\x00"+prompt)).String()
}

func containsFold(options []string, s string) bool {
	for _, o := range options {
		if strings.EqualFold(o, s) {
			return true
		}
	}
	return false
}

type generatorRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
	Seed       string `json:"seed"`
	Language   string `json:"language"`
}

type aiQuestion struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	Answer       string   `json:"correct_answer"`
	CorrectIndex *int     `json:"correct_index"`
	Explanation  string   `json:"explanation"`
	Difficulty   string   `json:"difficulty"`
	Hint         string   `json:"hint"`
	ImageURL     string   `json:"image_url"`
}

type generatorResponse struct {
	Questions []aiQuestion `json:"questions"`
}
