package main

import (
	"fmt"
	"strings"

	"jlpt-listening/internal/bootstrap"

	"github.com/spf13/cobra"
)

// generateEnv provides the environment for the generate command.
type generateEnv struct {
	section int
	topic   string
	answer  string
}

// getGenerateCmd returns the definition of the generate command.
func getGenerateCmd() *cobra.Command {
	env := &generateEnv{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new listening question, optionally grading an answer to it.",
		Long: `
Generates a question from stored exemplars. With --section the question is also
stored for future retrieval and appended to the history. With --answer (1-4) the
generated question is graded and the feedback printed after it.`,
		RunE: env.runGenerateCmd,
	}
	cmd.Flags().IntVar(&env.section, "section", 0, "Section (1, 2 or 3); 0 searches every section and stores nothing")
	cmd.Flags().StringVar(&env.topic, "topic", "", "Topic, e.g. \"Train Station\"")
	cmd.Flags().StringVar(&env.answer, "answer", "", "Answer to grade, as a 1-based option number")
	return cmd
}

func (e *generateEnv) runGenerateCmd(cmd *cobra.Command, _ []string) error {
	var section *int
	if e.section != 0 {
		section = &e.section
	}
	return withDeps(cmd.Context(), func(deps *bootstrap.Deps) error {
		out := deps.Generator.Generate(cmd.Context(), section, strings.TrimSpace(e.topic))
		if err := printJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
		if e.answer == "" {
			return nil
		}
		feedback := deps.Generator.Feedback(cmd.Context(), out.Question, e.answer)
		_, err := fmt.Fprintln(cmd.OutOrStdout(), feedback)
		return err
	})
}
