package main

import (
	"jlpt-listening/internal/bootstrap"
	"jlpt-listening/internal/services/ingest"

	"github.com/spf13/cobra"
)

// ingestEnv provides the environment for the ingest command.
type ingestEnv struct {
	section int
	force   bool
}

// getIngestCmd returns the definition of the ingest command.
func getIngestCmd() *cobra.Command {
	env := &ingestEnv{}
	cmd := &cobra.Command{
		Use:   "ingest <path|s3://bucket/key>...",
		Short: "Extract questions from transcripts (.txt, .pdf) or seed files (.json) into a section.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  env.runIngestCmd,
	}
	cmd.Flags().IntVar(&env.section, "section", 0, "Target section (1, 2 or 3)")
	cmd.Flags().BoolVar(&env.force, "force", false, "Re-ingest content that was already ingested")
	_ = cmd.MarkFlagRequired("section")
	return cmd
}

func (e *ingestEnv) runIngestCmd(cmd *cobra.Command, args []string) error {
	return withDeps(cmd.Context(), func(deps *bootstrap.Deps) error {
		results := make([]ingest.Result, 0, len(args))
		for _, path := range args {
			res, err := deps.Ingest.Run(cmd.Context(), ingest.Request{Path: path, Section: e.section, Force: e.force})
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return printJSON(cmd.OutOrStdout(), results)
	})
}
