package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/spanish-quiz/internal/logging"
	"github.com/gokatarajesh/spanish-quiz/internal/questionbank"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/export"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/scoring"
)

func newPlayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run a timed session from a question bank file",
		Long: "Answer with the option number. Other commands: s (skip), p (pause), " +
			"r (resume), h (hint), q (quit).",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			path, _ := flags.GetString("bank")
			allowSkip, _ := flags.GetBool("allow-skip")
			hints, _ := flags.GetBool("hints")
			exportPath, _ := flags.GetString("export")
			count, _ := flags.GetInt("count")
			seed, _ := flags.GetString("seed")
			difficulty, _ := flags.GetString("difficulty")
			level, _ := cmd.Flags().GetString("log-level")

			if exportPath != "" {
				if _, err := export.FormatFromPath(exportPath); err != nil {
					return err
				}
			}

			questions, err := questionbank.LoadFile(path)
			if err != nil {
				return err
			}
			bank, err := questionbank.NewStaticGenerator(questions).GenerateBank(cmd.Context(), questionbank.Request{
				Difficulty: quiz.Difficulty(difficulty),
				Count:      count,
				Seed:       seed,
			})
			if err != nil {
				return err
			}

			logger := logging.NewWithWriter(os.Stderr, "quizctl", "development", level)
			ctrl, err := quiz.NewController(bank, quiz.Config{AllowSkip: allowSkip, ShowHints: hints}, quiz.WithLogger(logger))
			if err != nil {
				return err
			}

			_, err = Play(cmd.Context(), ctrl, PlayOptions{
				In:         cmd.InOrStdin(),
				Out:        cmd.OutOrStdout(),
				ExportPath: exportPath,
			})
			return err
		},
	}

	flags := cmd.Flags()
	flags.String("bank", "", "Path to a JSON question bank")
	flags.Bool("allow-skip", true, "Allow skipping questions")
	flags.Bool("hints", true, "Allow revealing hints")
	flags.String("export", "", "Write results to this file (.csv, .json or .xlsx)")
	flags.Int("count", 0, "Number of questions (0 uses the default)")
	flags.String("seed", "", "Shuffle seed; empty keeps file order")
	flags.String("difficulty", "", "Prefer questions of this difficulty")
	_ = cmd.MarkFlagRequired("bank")
	return cmd
}

// PlayOptions configures an interactive run.
type PlayOptions struct {
	In  io.Reader
	Out io.Writer
	// ExportPath, when set, receives the results once the session completes.
	// The format follows the file extension.
	ExportPath string
	Engine     *scoring.Engine
}

// Play drives ctrl from line-based input until the session completes, the
// player quits, input ends or ctx is cancelled. It starts the session if it
// is still in setup and returns the last snapshot.
func Play(ctx context.Context, ctrl *quiz.Controller, opts PlayOptions) (quiz.Session, error) {
	engine := opts.Engine
	if engine == nil {
		engine = scoring.NewEngine(scoring.DefaultConfig())
	}
	p := &player{ctrl: ctrl, out: opts.Out, engine: engine}

	changes := make(chan quiz.Change, 64)
	unsubscribe := ctrl.OnStateChange(func(c quiz.Change) {
		changes <- c
	})
	defer unsubscribe()

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go readLines(readCtx, opts.In, lines)

	if ctrl.State() == quiz.StateSetup {
		if err := ctrl.Start(); err != nil {
			return ctrl.Snapshot(), err
		}
	}

	for {
		if done := p.drain(changes); done {
			break
		}

		select {
		case <-ctx.Done():
			return p.abandon(), ctx.Err()
		case c := <-changes:
			if p.apply(c) {
				return p.finish(opts.ExportPath)
			}
			continue
		case line, ok := <-lines:
			if !ok {
				if p.drain(changes) {
					return p.finish(opts.ExportPath)
				}
				return p.abandon(), nil
			}
			if quit := p.command(strings.TrimSpace(line)); quit {
				return p.abandon(), nil
			}
		}
	}
	return p.finish(opts.ExportPath)
}

type player struct {
	ctrl   *quiz.Controller
	out    io.Writer
	engine *scoring.Engine
	last   quiz.Session
	seq    uint64
}

// drain applies queued changes without blocking and reports completion.
func (p *player) drain(changes <-chan quiz.Change) bool {
	for {
		select {
		case c := <-changes:
			if p.apply(c) {
				return true
			}
		default:
			return false
		}
	}
}

// apply reports the change and returns true once the session completed.
// A change older than the last one applied only prints its outcome.
func (p *player) apply(c quiz.Change) bool {
	p.feedback(c)
	if c.Seq < p.seq {
		return false
	}
	p.seq = c.Seq
	p.last = c.Session
	s := c.Session

	switch c.Event {
	case quiz.EventPaused:
		fmt.Fprintf(p.out, "Paused with %s left. Type r to resume.\n", s.Remaining.Round(time.Second))
		return false
	case quiz.EventHintRevealed:
		return false
	}

	if c.Completed() {
		return true
	}
	if s.State == quiz.StateActive {
		p.render(s)
	}
	return false
}

func (p *player) feedback(c quiz.Change) {
	s := c.Session
	switch c.Event {
	case quiz.EventTimedOut:
		fmt.Fprintln(p.out, "Time's up!")
	case quiz.EventAnswered:
		a := s.Answers[len(s.Answers)-1]
		q := s.Questions[len(s.Answers)-1]
		if a.IsCorrect {
			fmt.Fprintln(p.out, "¡Correcto!")
		} else {
			fmt.Fprintf(p.out, "Incorrect. Answer: %s\n", q.Options[q.CorrectIndex])
		}
		if q.Explanation != "" {
			fmt.Fprintln(p.out, q.Explanation)
		}
	case quiz.EventSkipped:
		fmt.Fprintln(p.out, "Skipped.")
	}
}

func (p *player) render(s quiz.Session) {
	q := s.Questions[s.CurrentIndex]
	fmt.Fprintf(p.out, "\nQuestion %d/%d (%s)\n%s\n", s.CurrentIndex+1, s.TotalQuestions(), s.Remaining.Round(time.Second), q.Prompt)
	for i, opt := range q.Options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprint(p.out, "> ")
}

// command runs one input line and reports whether the player quit.
func (p *player) command(line string) bool {
	var err error
	switch strings.ToLower(line) {
	case "":
		return false
	case "q":
		return true
	case "s":
		err = p.ctrl.Skip()
	case "p":
		err = p.ctrl.Pause()
	case "r":
		err = p.ctrl.Resume()
	case "h":
		var hint string
		hint, err = p.ctrl.RevealHint()
		if err == nil {
			if hint == "" {
				hint = "(no hint for this question)"
			}
			fmt.Fprintf(p.out, "Hint: %s\n> ", hint)
		}
	default:
		n, convErr := strconv.Atoi(line)
		if convErr != nil {
			fmt.Fprintf(p.out, "Unknown command %q\n> ", line)
			return false
		}
		err = p.ctrl.SubmitAnswer(n - 1)
	}
	if err != nil {
		fmt.Fprintf(p.out, "%s\n> ", describe(err))
	}
	return false
}

func (p *player) abandon() quiz.Session {
	s := p.ctrl.Snapshot()
	_ = p.ctrl.Reset()
	fmt.Fprintln(p.out, "\nSession abandoned.")
	return s
}

func (p *player) finish(exportPath string) (quiz.Session, error) {
	s := p.last
	sum := p.engine.Summarize(s)
	fmt.Fprintf(p.out, "\nDone! %d/%d correct (%.0f%%), %d skipped, %d timed out\n",
		sum.Correct, sum.TotalQuestions, sum.Accuracy*100, sum.Skipped, sum.TimedOut)
	fmt.Fprintf(p.out, "Points: %d  Best streak: %d  Time: %s\n",
		sum.Points, sum.MaxStreak, (time.Duration(sum.ActiveDurationMs) * time.Millisecond).Round(time.Second))

	if exportPath == "" {
		return s, nil
	}
	if err := writeExport(exportPath, export.New(p.engine), s); err != nil {
		return s, err
	}
	fmt.Fprintf(p.out, "Results written to %s\n", exportPath)
	return s, nil
}

func writeExport(path string, exporter *export.Exporter, s quiz.Session) error {
	format, err := export.FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.Write(f, format, s); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

func describe(err error) string {
	switch {
	case quiz.IsInvalidAnswer(err):
		return "Pick one of the listed option numbers."
	case errors.Is(err, quiz.ErrInvalidTransition):
		return "Not now: " + err.Error()
	default:
		return err.Error()
	}
}

func readLines(ctx context.Context, r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}
