package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/poller"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/source"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
)

type options struct {
	fixtures string
	scope    string
	format   string
	simulate bool
	seed     int64
}

// newRootCmd builds the command tree; tests build their own.
func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "campusctl",
		Short: "Query the campus dashboard engine from the terminal",
		Long: `campusctl runs the dashboard's ranking engine against a fixtures file.

Examples:
  campusctl best parking --scope uni-a
  campusctl summary food --format json
  campusctl lifts C1001 --from 2
  campusctl ask "which lift should I take to C1001?"`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.fixtures, "fixtures", envOr("CAMPUS_FIXTURES", "configs/fixtures.yaml"), "YAML fixtures file")
	root.PersistentFlags().StringVar(&opts.scope, "scope", envOr("CAMPUS_SCOPE", "uni-a"), "University scope; empty means signed out")
	root.PersistentFlags().StringVar(&opts.format, "format", "human", "Output format (human, json)")
	root.PersistentFlags().BoolVar(&opts.simulate, "simulate", false, "Random-walk the fixtures before answering")
	root.PersistentFlags().Int64Var(&opts.seed, "seed", 1, "Seed for --simulate")

	root.AddCommand(newBestCmd(opts), newSummaryCmd(opts), newLiftsCmd(opts), newAskCmd(opts))
	return root
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// registry opens the fixtures behind a lease-less registry: every Snapshot
// call is a direct fetch.
func (o *options) registry(ctx context.Context) (*poller.Registry, error) {
	kind := source.KindStatic
	if o.simulate {
		kind = source.KindSimulated
	}
	src, _, err := source.Open(source.Settings{Kind: kind, FixturesPath: o.fixtures, Seed: o.seed})
	if err != nil {
		return nil, err
	}
	return poller.NewRegistry(ctx, poller.RegistryConfig{Source: src, Logger: logging.Discard()}), nil
}

func (o *options) emit(w io.Writer, v any, human func(io.Writer)) error {
	switch o.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "human", "":
		human(w)
		return nil
	}
	return fmt.Errorf("unknown format %q", o.format)
}
