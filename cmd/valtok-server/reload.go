package main

import (
	"sync"

	"github.com/yndnr/valtok-go/internal/config"
	"github.com/yndnr/valtok-go/internal/telemetry/logger"
	"github.com/yndnr/valtok-go/pkg/dataprotect"
)

type reloadRecorder interface {
	RecordKeyRingReload(err error)
}

// fileWatcher is the part of confloader.Watcher the reloader drives.
type fileWatcher interface {
	Watch(path string) error
	Unwatch(path string) error
}

// keyReloader rebuilds the key ring and swaps it in. A ring that fails to
// build leaves the current one serving.
type keyReloader struct {
	mu       sync.Mutex
	keys     *dataprotect.Swappable
	section  config.KeysSection
	recorder reloadRecorder
	watcher  fileWatcher
	log      logger.Logger
}

func newKeyReloader(keys *dataprotect.Swappable, section config.KeysSection, rec reloadRecorder, log logger.Logger) *keyReloader {
	return &keyReloader{keys: keys, section: section, recorder: rec, log: log}
}

// Reload rebuilds the ring from the current keys section, re-reading its
// file.
func (r *keyReloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reload()
}

// WatchFiles registers the current keys file with w and keeps it registered
// across ReloadFrom calls that move the file.
func (r *keyReloader) WatchFiles(w fileWatcher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcher = w
	if r.section.File == "" {
		return nil
	}
	return w.Watch(r.section.File)
}

// ReloadFrom replaces the keys section and rebuilds the ring. The new file
// is watched even when it fails to build, so fixing it triggers a reload.
func (r *keyReloader) ReloadFrom(section config.KeysSection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher != nil && section.File != r.section.File {
		r.rewatch(r.section.File, section.File)
	}
	r.section = section
	return r.reload()
}

func (r *keyReloader) rewatch(from, to string) {
	if from != "" {
		if err := r.watcher.Unwatch(from); err != nil {
			r.log.Warn("failed to stop watching keys file", "path", from, "error", err)
		}
	}
	if to != "" {
		if err := r.watcher.Watch(to); err != nil {
			r.log.Error("failed to watch keys file, changes need SIGHUP", "path", to, "error", err)
			return
		}
	}
	r.log.Info("keys file watch moved", "from", from, "to", to)
}

func (r *keyReloader) reload() error {
	ring, err := config.BuildKeyRing(r.section)
	r.recorder.RecordKeyRingReload(err)
	if err != nil {
		r.log.Error("key ring reload failed, keeping current ring", "error", err)
		return err
	}
	r.keys.Store(ring)
	r.log.Info("key ring reloaded", "keys", ring.Len(), "default_key", ring.DefaultKeyID().String())
	return nil
}
