// Package engine turns PIVOT and UNPIVOT declarations into executable
// plans and runs them against a database adapter.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/pivotsql/internal/state"
	"github.com/leapstack-labs/pivotsql/pkg/adapter"
	"github.com/leapstack-labs/pivotsql/pkg/binder"
)

// Engine rewrites declarations against a catalog and executes the result.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	// Fixed catalog; when nil the catalog is read from the database
	catalog binder.Catalog

	// Run history (optional)
	store state.Store

	seeds  []string
	logger *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// AdapterConfig selects the database; defaults to in-memory DuckDB
	AdapterConfig *adapter.Config
	// Adapter is an already connected database; overrides AdapterConfig
	Adapter adapter.Adapter
	// Catalog resolves tables without a database (rewrite only)
	Catalog binder.Catalog
	// Store records runs started with RunFile (optional)
	Store state.Store
	// Seeds are CSV files or directories of CSV files loaded before a run
	Seeds []string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// ErrNoDatabase is returned when an operation needs a database but the
// engine was built with neither an adapter nor an adapter type.
var ErrNoDatabase = errors.New("no database configured")

// New creates a new engine with lazy database connection.
// The database adapter is only connected when a run or catalog lookup
// needs it.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var dbConfig adapter.Config
	if cfg.AdapterConfig != nil {
		dbConfig = *cfg.AdapterConfig
	}
	if dbConfig.Type == "" && cfg.Catalog == nil {
		dbConfig.Type = "duckdb"
	}

	return &Engine{
		db:          cfg.Adapter,
		dbConfig:    dbConfig,
		dbConnected: cfg.Adapter != nil,
		catalog:     cfg.Catalog,
		store:       cfg.Store,
		seeds:       cfg.Seeds,
		logger:      logger,
	}
}

// ensureDBConnected lazily connects to the database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}
	if e.dbConfig.Type == "" {
		return ErrNoDatabase
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}

	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	return nil
}

// Adapter returns the connected database adapter, connecting if needed.
func (e *Engine) Adapter(ctx context.Context) (adapter.Adapter, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db, nil
}

// Catalog returns the catalog declarations are resolved against: the
// fixed one from Config, else a snapshot of the database.
func (e *Engine) Catalog(ctx context.Context) (binder.Catalog, error) {
	if e.catalog != nil {
		return e.catalog, nil
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	cat, err := e.db.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return cat, nil
}

// Close releases the database connection.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	e.dbMu.Lock()
	defer e.dbMu.Unlock()
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	e.dbConnected = false
	return err
}
