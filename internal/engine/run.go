package engine

// run.go - Plan execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/pivotsql/pkg/adapter"
	"github.com/leapstack-labs/pivotsql/pkg/core"
)

// Querier runs a query and reads all rows.
type Querier interface {
	Query(ctx context.Context, sql string) (*adapter.Result, error)
}

// RunResult is an executed plan.
type RunResult struct {
	ID       string
	Plan     *Plan
	Result   *adapter.Result
	Duration time.Duration
}

// Run loads seeds, rewrites ref against the database catalog and
// executes the plan.
func (e *Engine) Run(ctx context.Context, ref *core.PivotRef) (*RunResult, error) {
	if err := e.LoadSeeds(ctx); err != nil {
		return nil, err
	}

	plan, err := e.Rewrite(ctx, ref)
	if err != nil {
		return nil, err
	}

	db, err := e.Adapter(ctx)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, db, plan)
}

// Execute runs an already rewritten plan.
func (e *Engine) Execute(ctx context.Context, q Querier, plan *Plan) (*RunResult, error) {
	run := &RunResult{ID: uuid.NewString(), Plan: plan}
	logger := e.logger.With("run_id", run.ID)

	logger.Info("starting run", "alias", plan.Alias, "columns", len(plan.Columns))
	logger.Debug("plan", "sql", plan.SQL)

	start := time.Now()
	res, err := q.Query(ctx, plan.SQL)
	run.Duration = time.Since(start)
	if err != nil {
		logger.Error("run failed", "error", err.Error())
		return nil, fmt.Errorf("failed to execute plan %s: %w", plan.Alias, err)
	}
	run.Result = res

	logger.Info("run completed", "rows", len(res.Rows), "duration_ms", run.Duration.Milliseconds())
	return run, nil
}
