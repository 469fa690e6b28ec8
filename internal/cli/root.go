// Package cli implements quizctl, a terminal front end for practice sessions
// backed by a question bank file.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the quizctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizctl",
		Short:         "Timed Spanish practice quizzes in the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("log-level", "warn", "Log level for engine diagnostics")

	root.AddCommand(newPlayCommand())
	root.AddCommand(newValidateCommand())
	return root
}
