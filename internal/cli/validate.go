package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/spanish-quiz/internal/questionbank"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a question bank file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("bank")
			questions, err := questionbank.LoadFile(path)
			if err != nil {
				return err
			}

			byDifficulty := make(map[quiz.Difficulty]int)
			hints := 0
			for _, q := range questions {
				byDifficulty[q.Difficulty]++
				if q.Hint != "" {
					hints++
				}
			}
			levels := make([]string, 0, len(byDifficulty))
			for d := range byDifficulty {
				levels = append(levels, string(d))
			}
			sort.Strings(levels)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d questions, %d with hints\n", path, len(questions), hints)
			for _, d := range levels {
				fmt.Fprintf(out, "  %-12s %d\n", d, byDifficulty[quiz.Difficulty(d)])
			}
			return nil
		},
	}
	cmd.Flags().String("bank", "", "Path to a JSON question bank")
	_ = cmd.MarkFlagRequired("bank")
	return cmd
}
