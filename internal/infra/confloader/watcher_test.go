package confloader

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewWatcher(t *testing.T) {
	w, err := NewWatcher(WithDebounce(time.Second))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.watcher == nil || w.done == nil || w.log == nil {
		t.Error("NewWatcher() left fields unset")
	}
	if w.debounce != time.Second {
		t.Errorf("debounce = %v, want 1s", w.debounce)
	}
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := w.Watch("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Watch() expected error for nonexistent directory")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.StartAsync()
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_ConcurrentCallbacks(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var count atomic.Int32
	w.OnChange(func(string) { count.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.notifyCallbacks("/test/path")
		}()
	}
	wg.Wait()

	if count.Load() != 100 {
		t.Errorf("count = %d, want 100", count.Load())
	}
}

func TestWatcher_FileChange(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "keys.yaml")
	other := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(watched, []byte("v: 1"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w, err := NewWatcher(WithDebounce(50 * time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Watch(watched); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) { changed <- path })
	w.StartAsync()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(other, []byte("ignored"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(watched, []byte("v: 2"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	select {
	case path := <-changed:
		if path != watched {
			t.Errorf("callback path = %q, want %q", path, watched)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange() callback was not triggered within timeout")
	}

	// The burst of writes is coalesced and the unrelated file is ignored.
	select {
	case path := <-changed:
		t.Errorf("unexpected extra callback for %q", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Unwatch(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	oldPath := filepath.Join(oldDir, "keys.yaml")
	sibling := filepath.Join(oldDir, "sibling.yaml")
	newPath := filepath.Join(newDir, "keys.yaml")
	for _, p := range []string{oldPath, sibling, newPath} {
		if err := os.WriteFile(p, []byte("v: 1"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	w, err := NewWatcher(WithDebounce(0))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	for _, p := range []string{oldPath, sibling} {
		if err := w.Watch(p); err != nil {
			t.Fatalf("Watch() error = %v", err)
		}
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) { changed <- path })
	w.StartAsync()
	defer w.Stop()

	// Move the watch from oldPath to newPath, as a reload does when the
	// configured file changes.
	if err := w.Unwatch(oldPath); err != nil {
		t.Fatalf("Unwatch() error = %v", err)
	}
	if err := w.Watch(newPath); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if w.isWatched(oldPath) || !w.isWatched(newPath) || !w.isWatched(sibling) {
		t.Fatalf("watched files = %v", w.files)
	}

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(oldPath, []byte("v: 2"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	for _, p := range []string{newPath, sibling} {
		if err := os.WriteFile(p, []byte("v: 2"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for !(seen[newPath] && seen[sibling]) {
		select {
		case path := <-changed:
			seen[path] = true
		case <-deadline:
			t.Fatalf("callbacks seen = %v, want %s and %s", seen, newPath, sibling)
		}
	}
	if seen[oldPath] {
		t.Error("callback fired for an unwatched file")
	}

	// Unwatching the last file in a directory releases the directory.
	if err := w.Unwatch(sibling); err != nil {
		t.Errorf("Unwatch() error = %v", err)
	}
	if err := w.Unwatch(sibling); err != nil {
		t.Errorf("second Unwatch() error = %v", err)
	}
}
