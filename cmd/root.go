package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ObservedObserver/fast-pivot/internal/ingest"
	"github.com/ObservedObserver/fast-pivot/internal/logger"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	dataPath   string
	dataFormat string
	selector   string
	logLevel   string
	prettyLogs bool
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "fastpivot",
		Short:         "fastpivot: cached pivot tables over flat datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logger.ParseLevel(g.logLevel)
			if err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			l := logger.New(cmd.ErrOrStderr(), lvl, g.prettyLogs)
			cmd.SetContext(logger.With(cmd.Context(), l))
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.dataPath, "data", "d", "", "Path to the dataset (JSON, CSV or TSV)")
	pf.StringVar(&g.dataFormat, "format", "", "Dataset format: json, csv or tsv (default: by extension)")
	pf.StringVar(&g.selector, "selector", "", "JSONPath selecting the records of a JSON dataset")
	pf.StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pf.BoolVar(&g.prettyLogs, "pretty-logs", true, "Human-readable logs on stderr")

	cmd.AddCommand(newMatrixCmd(g), newTreeCmd(g))
	return cmd
}

// loadDataset reads --data with the global format flags.
func (g *globalOptions) loadDataset(ctx context.Context) (pivot.DataSource, error) {
	if g.dataPath == "" {
		return nil, fmt.Errorf("--data is required")
	}
	ds, err := ingest.Load(g.dataPath, ingest.Options{
		Format:   ingest.Format(g.dataFormat),
		Selector: g.selector,
	})
	if err != nil {
		return nil, err
	}
	logger.Get(ctx).Info().Str("path", g.dataPath).Int("records", len(ds)).Msg("dataset loaded")
	return ds, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
