package engine

// seeds.go - CSV seed data loading

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadSeeds loads the configured CSV files into the database. A seed
// path may be a single file or a directory whose .csv files are all
// loaded. Each file becomes a table named after the file.
func (e *Engine) LoadSeeds(ctx context.Context) error {
	if len(e.seeds) == 0 {
		return nil
	}

	if err := e.ensureDBConnected(ctx); err != nil {
		return err
	}

	for _, seed := range e.seeds {
		files, err := seedFiles(seed)
		if err != nil {
			return err
		}
		for _, csvPath := range files {
			tableName := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))

			e.logger.Debug("loading seed file", "table", tableName, "path", csvPath)

			if err := e.db.LoadCSV(ctx, tableName, csvPath); err != nil {
				return fmt.Errorf("failed to load seed %s: %w", filepath.Base(csvPath), err)
			}
		}
	}

	return nil
}

func seedFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seeds directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	return files, nil
}
