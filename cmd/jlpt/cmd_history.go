package main

import (
	"fmt"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/history"

	"github.com/spf13/cobra"
)

// historyEnv provides the environment for the history command.
type historyEnv struct {
	section int
	topic   string
	id      int
}

// getHistoryCmd returns the definition of the history command. It only opens
// the history log, so it works without model credentials.
func getHistoryCmd() *cobra.Command {
	env := &historyEnv{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print generated questions, filtered by section and topic or looked up by id.",
		RunE:  env.runHistoryCmd,
	}
	cmd.Flags().IntVar(&env.section, "section", 0, "Only entries of this section")
	cmd.Flags().StringVar(&env.topic, "topic", "", "Only entries with this exact topic")
	cmd.Flags().IntVar(&env.id, "id", -1, "Print a single entry by id")
	return cmd
}

func (e *historyEnv) runHistoryCmd(cmd *cobra.Command, _ []string) error {
	persister, err := history.NewPersister(cmd.Context())
	if err != nil {
		return err
	}
	store := history.Open(cmd.Context(), persister)
	defer store.Close()

	if e.id >= 0 {
		entry, ok := store.GetByID(e.id)
		if !ok {
			return fmt.Errorf("%v: no entry with id %d", config.ModuleHistory, e.id)
		}
		return printJSON(cmd.OutOrStdout(), entry)
	}

	var section *int
	if e.section != 0 {
		section = &e.section
	}
	var topic *string
	if e.topic != "" {
		topic = &e.topic
	}
	return printJSON(cmd.OutOrStdout(), store.Get(section, topic))
}
