package commands

import (
	"context"
	"errors"

	"github.com/leapstack-labs/pivotsql/internal/config"
	"github.com/leapstack-labs/pivotsql/internal/engine"
	"github.com/leapstack-labs/pivotsql/internal/state"
)

// errNoState is returned by commands that need run history when no
// state database is configured.
var errNoState = errors.New("no state database configured; set state_path in pivotsql.yaml or pass --state")

// newEngine builds an engine from the configuration in ctx. The returned
// close function releases the engine and its state store.
func newEngine(ctx context.Context) (*engine.Engine, func(), error) {
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	var store *state.SQLiteStore
	engCfg := engine.Config{
		AdapterConfig: &cfg.Database,
		Seeds:         cfg.Seeds,
		Logger:        logger,
	}
	if cfg.StatePath != "" {
		var err error
		if store, err = openStore(ctx); err != nil {
			return nil, nil, err
		}
		engCfg.Store = store
	}

	eng := engine.New(engCfg)
	return eng, func() {
		_ = eng.Close()
		if store != nil {
			_ = store.Close()
		}
	}, nil
}

// openStore opens the configured state database.
func openStore(ctx context.Context) (*state.SQLiteStore, error) {
	cfg := config.FromContext(ctx)
	if cfg.StatePath == "" {
		return nil, errNoState
	}
	store := state.NewSQLiteStore(config.GetLogger(ctx))
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	return store, nil
}
