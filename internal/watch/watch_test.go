package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/componentkit/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) rebuild(_ context.Context, changed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func start(t *testing.T, opts Options, r *recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	opts.Logger = testutil.Logger()
	go func() {
		_ = Watch(ctx, opts, r.rebuild)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	start(t, Options{Roots: []string{dir}, Debounce: 200 * time.Millisecond}, r)

	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(dir, "hero.njk"), []byte{byte('a' + i)}, 0o644)
		time.Sleep(20 * time.Millisecond)
	}

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return len(r.snapshot()) >= 1
	}, "rebuild not triggered")
	time.Sleep(400 * time.Millisecond)

	calls := r.snapshot()
	if len(calls) != 1 {
		t.Fatalf("rebuilds = %d, want 1", len(calls))
	}
	if len(calls[0]) != 1 || filepath.Base(calls[0][0]) != "hero.njk" {
		t.Errorf("changed = %v", calls[0])
	}
}

func TestWatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	start(t, Options{Roots: []string{dir}, Debounce: 50 * time.Millisecond}, r)

	sub := filepath.Join(dir, "sections", "hero")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "manifest.json"), []byte("{}"), 0o644)

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		for _, call := range r.snapshot() {
			for _, p := range call {
				if filepath.Base(p) == "manifest.json" {
					return true
				}
			}
		}
		return false
	}, "write in new directory not seen")
}

func TestIgnoredPaths(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	start(t, Options{Roots: []string{dir}, Debounce: 50 * time.Millisecond}, r)

	_ = os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, ".componentkit-tmp-123"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)

	if calls := r.snapshot(); len(calls) != 0 {
		t.Errorf("ignored files triggered rebuilds: %v", calls)
	}
}

func TestNoWatchableRoots(t *testing.T) {
	err := Watch(context.Background(), Options{
		Roots:  []string{filepath.Join(t.TempDir(), "missing")},
		Logger: testutil.Logger(),
	}, func(context.Context, []string) error { return nil })
	if err == nil {
		t.Fatal("expected error for missing roots")
	}
}

func TestIgnored(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/a/.DS_Store", true},
		{"/a/hero.njk~", true},
		{"/a/.hero.njk.swp", true},
		{"/a/.componentkit-tmp-99", true},
		{"/a/hero.njk", false},
	}
	for _, tc := range cases {
		if got := Ignored(tc.path); got != tc.want {
			t.Errorf("Ignored(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
