package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestDebounceCollapsesBursts(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	w := New("events.csv", func() { fired.Add(1) })
	w.limiter = rate.NewLimiter(rate.Inf, 1)

	for i := 0; i < 5; i++ {
		w.debounce()
	}

	time.Sleep(debounceDelay + 400*time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestTriggerDefersWithinInterval(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	w := New("events.csv", func() { fired.Add(1) })
	w.limiter = rate.NewLimiter(rate.Every(300*time.Millisecond), 1)

	w.trigger()
	w.trigger()

	assert.Equal(t, int32(1), fired.Load(), "second trigger must defer")

	assert.Eventually(t, func() bool {
		return fired.Load() == 2
	}, 2*time.Second, 20*time.Millisecond, "deferred trigger must still fire")
}

func TestRunDetectsFileChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o600))

	changed := make(chan struct{}, 8)
	w := New(path, func() { changed <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watcher registers asynchronously; keep writing until it reacts.
	deadline := time.After(10 * time.Second)
	for {
		require.NoError(t, os.WriteFile(path, []byte("b\n"), 0o600))
		select {
		case <-changed:
			cancel()
			require.NoError(t, <-done)
			return
		case <-deadline:
			t.Fatal("watcher never reported the change")
		case <-time.After(300 * time.Millisecond):
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.csv")
	w := New(path, func() {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
