// Package state keeps the history of executed declarations in SQLite.
package state

import (
	"context"
	"errors"
	"time"
)

// RunStatus represents the outcome of a run.
type RunStatus string

// RunStatus values.
const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// Run is one recorded execution of a declaration file.
type Run struct {
	ID        string
	File      string
	Alias     string
	SQL       string
	Rows      int64
	Status    RunStatus
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Store records and lists runs.
type Store interface {
	RecordRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// ErrNotOpened is returned when the store is used before Open.
var ErrNotOpened = errors.New("database not opened")
