package commands

import (
	"fmt"

	"github.com/leapstack-labs/pivotsql/internal/config"
	"github.com/leapstack-labs/pivotsql/internal/declaration"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Rewrite a declaration and execute it",
		Long: `Load seeds, rewrite the declaration against the database catalog and
print the resulting rows. When state_path is configured the run is
recorded in the run history.

Output formats:
  auto      table on a terminal, markdown otherwise
  table     box-drawn table with a row count
  markdown  markdown table
  csv       comma separated values with a header
  json      array of objects keyed by column
  sql       the rewritten SQL instead of the rows`,
		Example: `  # Pivot a seed file and show the result
  pivotsql run sales_pivot.yaml --seed seeds/sales.csv

  # Run against a database file and emit CSV
  pivotsql run quarters_unpivot.yaml --database warehouse.duckdb -o csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)

			eng, closeEngine, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer closeEngine()

			out := cmd.OutOrStdout()
			if cfg.OutputFormat == "sql" {
				ref, err := declaration.Load(args[0])
				if err != nil {
					return err
				}
				if err := eng.LoadSeeds(ctx); err != nil {
					return err
				}
				plan, err := eng.Rewrite(ctx, ref)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "%s;\n", plan.SQL)
				return err
			}

			res, err := eng.RunFile(ctx, args[0])
			if err != nil {
				return err
			}
			config.GetLogger(ctx).Debug("rendering result", "run_id", res.ID, "rows", len(res.Result.Rows))
			return renderResult(out, res.Result, resolveFormat(out, cfg.OutputFormat))
		},
	}
}
