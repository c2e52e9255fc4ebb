package config

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Reloader hands out immutable engine-config snapshots. The backing file is
// re-read only between cycles, when its mtime changes; a cycle always runs
// against the snapshot it took at start, so a hot reload is never visible
// mid-cycle.
type Reloader struct {
	path string

	mu      sync.RWMutex
	current *Engine
	mtime   time.Time
}

// NewReloader loads the initial snapshot. A missing path yields the
// built-in defaults with reloads disabled.
func NewReloader(path string) (*Reloader, error) {
	r := &Reloader{path: path}
	if path == "" {
		r.current = Default()
		return r, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	r.current = cfg
	r.mtime = info.ModTime()
	return r, nil
}

// Snapshot returns the current immutable configuration.
func (r *Reloader) Snapshot() *Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// MaybeReload re-reads the file if its mtime moved. Called by the runner
// between cycles only. A reload that fails validation keeps the previous
// snapshot: a running engine never swaps in a bad table.
func (r *Reloader) MaybeReload() *Engine {
	if r.path == "" {
		return r.Snapshot()
	}

	info, err := os.Stat(r.path)
	if err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("config stat failed, keeping current snapshot")
		return r.Snapshot()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !info.ModTime().After(r.mtime) {
		return r.current
	}

	cfg, err := Load(r.path)
	if err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("config reload rejected, keeping current snapshot")
		r.mtime = info.ModTime()
		return r.current
	}

	r.current = cfg
	r.mtime = info.ModTime()
	log.Info().Str("path", r.path).Msg("engine config reloaded")
	return r.current
}
