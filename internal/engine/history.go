package engine

// history.go - Running declaration files with run history

import (
	"context"
	"time"

	"github.com/leapstack-labs/pivotsql/internal/declaration"
	"github.com/leapstack-labs/pivotsql/internal/state"
)

// RunFile loads the declaration at path and runs it. When the engine has
// a store, the outcome is recorded whether or not the run succeeded.
func (e *Engine) RunFile(ctx context.Context, path string) (*RunResult, error) {
	start := time.Now()

	ref, err := declaration.Load(path)
	if err != nil {
		e.recordRun(ctx, path, start, nil, err)
		return nil, err
	}

	res, err := e.Run(ctx, ref)
	e.recordRun(ctx, path, start, res, err)
	return res, err
}

// recordRun writes a run to the store. Failures to record are logged and
// do not fail the run.
func (e *Engine) recordRun(ctx context.Context, path string, start time.Time, res *RunResult, runErr error) {
	if e.store == nil {
		return
	}

	rec := &state.Run{
		File:      path,
		Status:    state.RunStatusSuccess,
		StartedAt: start,
		Duration:  time.Since(start),
	}
	if res != nil {
		rec.ID = res.ID
		rec.Alias = res.Plan.Alias
		rec.SQL = res.Plan.SQL
		if res.Result != nil {
			rec.Rows = int64(len(res.Result.Rows))
		}
	}
	if runErr != nil {
		rec.Status = state.RunStatusFailed
		rec.Error = runErr.Error()
	}

	if err := e.store.RecordRun(ctx, rec); err != nil {
		e.logger.Warn("failed to record run", "file", path, "error", err.Error())
	}
}
