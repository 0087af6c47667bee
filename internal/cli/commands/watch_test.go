package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "a.yaml")
	other := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(watched, []byte("v1"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchFiles(ctx, []string{watched}, 20*time.Millisecond, func(path string) {
			changes <- path
		})
	}()

	// Keep writing until the watcher is up and reports the change.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	var got string
	for got == "" {
		select {
		case got = <-changes:
		case <-tick.C:
			require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
			require.NoError(t, os.WriteFile(watched, []byte("v2"), 0o600))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}
	assert.Equal(t, watched, got)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	// Only the watched file is ever reported.
	close(changes)
	for path := range changes {
		assert.Equal(t, watched, path)
	}
}

func TestWatchFiles_MissingDirectory(t *testing.T) {
	err := watchFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope", "a.yaml")}, time.Millisecond, func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}
