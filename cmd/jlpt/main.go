package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"jlpt-listening/config"
	"jlpt-listening/internal/bootstrap"
	"jlpt-listening/pkg/logger"

	"github.com/spf13/cobra"
)

const fstrConfig = "config"

func main() {
	root := &cobra.Command{
		Use:   "jlpt",
		Short: "JLPT listening practice: ingest transcripts, generate questions, browse history.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString(fstrConfig)
			if err != nil {
				return err
			}
			if err := config.Init(path); err != nil {
				return err
			}
			logger.Init(config.Cfg.LogLevel)
			return nil
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().String(fstrConfig, "config.yml", "Path to the YAML config file")

	root.AddCommand(
		getIngestCmd(),
		getGenerateCmd(),
		getHistoryCmd(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// withDeps opens the shared dependencies for the duration of fn.
func withDeps(ctx context.Context, fn func(*bootstrap.Deps) error) error {
	deps, err := bootstrap.Open(ctx)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer deps.Close()
	return fn(deps)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
