package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql/internal/watch"
)

func TestWatcher_RerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.pql")
	require.NoError(t, os.WriteFile(file, []byte("1"), 0o644))

	var runs atomic.Int32
	w, err := watch.New(file, func() error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// A burst of writes runs the callback once.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte("2"), 0o644))
	}
	require.Eventually(t, func() bool { return runs.Load() == 2 }, 5*time.Second, 20*time.Millisecond)

	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.pql"), []byte("x"), 0o644))
	time.Sleep(watch.Debounce + 200*time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
