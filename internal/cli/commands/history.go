package commands

import (
	"strconv"
	"time"

	"github.com/leapstack-labs/pivotsql/internal/config"
	"github.com/leapstack-labs/pivotsql/internal/state"
	"github.com/leapstack-labs/pivotsql/pkg/adapter"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List the runs recorded in the state database, newest first.
Requires state_path in pivotsql.yaml or the --state flag.`,
		Example: `  pivotsql history --state .pivotsql/state.db
  pivotsql history -n 5 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			format := resolveFormat(out, cfg.OutputFormat)
			if format == "sql" {
				format = "table"
			}
			return renderResult(out, historyResult(runs), format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

// historyResult lays runs out as a result set for rendering.
func historyResult(runs []*state.Run) *adapter.Result {
	res := &adapter.Result{
		Columns: []string{"id", "started_at", "file", "status", "rows", "duration", "error"},
		Rows:    make([][]any, 0, len(runs)),
	}
	for _, r := range runs {
		var errMsg any
		if r.Error != "" {
			errMsg = r.Error
		}
		res.Rows = append(res.Rows, []any{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.File,
			string(r.Status),
			strconv.FormatInt(r.Rows, 10),
			r.Duration.String(),
			errMsg,
		})
	}
	return res
}
