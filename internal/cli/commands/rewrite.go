package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/leapstack-labs/pivotsql/internal/config"
	"github.com/leapstack-labs/pivotsql/internal/declaration"
	"github.com/leapstack-labs/pivotsql/internal/engine"
	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// rewriteOutput is one rewritten declaration in JSON output.
type rewriteOutput struct {
	File    string   `json:"file"`
	Alias   string   `json:"alias"`
	Columns []string `json:"columns"`
	SQL     string   `json:"sql"`
}

// NewRewriteCommand creates the rewrite command.
func NewRewriteCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "rewrite <file>...",
		Short: "Print the SQL a declaration lowers to",
		Long: `Resolve each declaration against the database catalog and print the
plain SQL it lowers to. Seeds are loaded first so that declarations over
seed tables resolve.

With --watch the files are rewritten again whenever they change. The
catalog is read once at startup.`,
		Example: `  # Print the SQL for a pivot
  pivotsql rewrite sales_pivot.yaml --seed seeds/

  # Describe several declarations as JSON
  pivotsql rewrite -o json a.yaml b.yaml

  # Re-print the SQL on every save
  pivotsql rewrite --watch sales_pivot.yaml --seed seeds/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			logger := config.GetLogger(ctx)

			eng, closeEngine, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer closeEngine()

			if err := eng.LoadSeeds(ctx); err != nil {
				return err
			}
			cat, err := eng.Catalog(ctx)
			if err != nil {
				return err
			}

			plans, err := rewriteFiles(ctx, cat, args, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.OutputFormat == "json" {
				if err := writeRewriteJSON(out, args, plans); err != nil {
					return err
				}
			} else {
				for i, plan := range plans {
					writeRewriteSQL(out, args[i], plan, len(args) > 1)
				}
			}

			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()
			logger.Info("watching for changes", "files", len(args))
			return watchFiles(ctx, args, 100*time.Millisecond, func(path string) {
				plan, err := rewriteFile(cat, path, logger)
				if err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					return
				}
				if cfg.OutputFormat == "json" {
					_ = writeRewriteJSON(out, []string{path}, []*engine.Plan{plan})
					return
				}
				writeRewriteSQL(out, path, plan, true)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rewrite again when a file changes")
	return cmd
}

// rewriteFiles rewrites every file concurrently. Plans are returned in
// argument order.
func rewriteFiles(ctx context.Context, cat binder.Catalog, files []string, logger *slog.Logger) ([]*engine.Plan, error) {
	plans := make([]*engine.Plan, len(files))
	g, _ := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			plan, err := rewriteFile(cat, path, logger)
			if err != nil {
				return err
			}
			plans[i] = plan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

func rewriteFile(cat binder.Catalog, path string, logger *slog.Logger) (*engine.Plan, error) {
	ref, err := declaration.Load(path)
	if err != nil {
		return nil, err
	}
	plan, err := engine.Rewrite(cat, ref, logger.With("file", path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}

func writeRewriteSQL(w io.Writer, file string, plan *engine.Plan, header bool) {
	if header {
		_, _ = fmt.Fprintf(w, "-- %s\n", file)
	}
	_, _ = fmt.Fprintf(w, "%s;\n", plan.SQL)
}

func writeRewriteJSON(w io.Writer, files []string, plans []*engine.Plan) error {
	out := make([]rewriteOutput, len(plans))
	for i, plan := range plans {
		out[i] = rewriteOutput{
			File:    files[i],
			Alias:   plan.Alias,
			Columns: plan.Columns,
			SQL:     plan.SQL,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
