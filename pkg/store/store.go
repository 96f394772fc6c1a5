package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"arkadia-host/janus/pkg/telemetry/logging"
	"arkadia-host/janus/pkg/telemetry/metrics"
)

// Store is a recipe-driven JSON document store. Each instance owns its
// in-memory tree, its recipes, and its backing file; nothing is shared
// at package level, so multiple stores never corrupt each other's state.
type Store struct {
	name      string
	path      string
	readOnly  bool
	saveDelay time.Duration
	logger    *logging.Logger
	collector *metrics.Collector

	mu       sync.Mutex
	root     map[string]any
	recipes  map[string]Recipe
	defaults map[string]map[string]any

	timer       *time.Timer
	saving      bool
	savePending bool
}

// Options configures a Store.
type Options struct {
	// Name identifies the store in logs, metrics, and the @reload action.
	Name string

	// Path is the JSON backing file. Empty means a memory-only store;
	// saves become no-ops.
	Path string

	// ReadOnly disables persistence even when Path is set.
	ReadOnly bool

	// SaveDelay is the debounce window for coalescing persists.
	SaveDelay time.Duration

	// Logger receives operational log lines. Required.
	Logger *logging.Logger

	// Collector receives store counters. Optional.
	Collector *metrics.Collector
}

// New creates a Store. Call Load before first use.
func New(opts Options) *Store {
	if opts.SaveDelay <= 0 {
		opts.SaveDelay = 2 * time.Second
	}
	return &Store{
		name:      opts.Name,
		path:      opts.Path,
		readOnly:  opts.ReadOnly,
		saveDelay: opts.SaveDelay,
		logger:    opts.Logger,
		collector: opts.Collector,
		root:      map[string]any{},
		recipes:   map[string]Recipe{},
		defaults:  map[string]map[string]any{},
	}
}

// Name returns the store's identifying name.
func (s *Store) Name() string {
	return s.name
}

// Load reads the backing file, parses it, and swaps the whole in-memory
// tree. It is idempotent: calling it again picks up externally edited
// files, which is the basis of the @reload action. A memory-only store
// loads an empty tree.
func (s *Store) Load(ctx context.Context) error {
	var parsed map[string]any
	if s.path == "" {
		parsed = map[string]any{}
	} else {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("store %s: read %q: %w", s.name, s.path, err)
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("store %s: parse %q: %w", s.name, s.path, err)
		}
	}

	section, err := decodeReserved(parsed[Reserved])
	if err != nil {
		return fmt.Errorf("store %s: %w", s.name, err)
	}

	s.mu.Lock()
	s.root = parsed
	s.recipes = section.Recipes
	s.defaults = section.Defaults
	s.mu.Unlock()

	if s.collector != nil {
		s.collector.RecordStoreLoad(s.name)
	}
	s.logger.Info("store loaded",
		"store", s.name,
		"path", s.path,
		"recipes", len(section.Recipes),
	)
	return nil
}

// SetRoot replaces the in-memory tree directly. Intended for memory-only
// stores and tests.
func (s *Store) SetRoot(root map[string]any) error {
	section, err := decodeReserved(root[Reserved])
	if err != nil {
		return fmt.Errorf("store %s: %w", s.name, err)
	}
	s.mu.Lock()
	s.root = root
	s.recipes = section.Recipes
	s.defaults = section.Defaults
	s.mu.Unlock()
	return nil
}

// Recipe looks up a recipe by name.
func (s *Store) Recipe(name string) (Recipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[name]
	return r, ok
}

// scheduleSave restarts the debounce timer. Must be called with s.mu held.
// A new mutation cancels the pending timer rather than stacking a second
// one, so bursts coalesce into a single write.
func (s *Store) scheduleSave() {
	if s.readOnly || s.path == "" {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.saveDelay, s.persist)
}

// persist writes the tree to the backing file. A save already in progress
// is allowed to finish; this attempt is deferred and retried rather than
// interleaving writes to the same file.
func (s *Store) persist() {
	s.mu.Lock()
	if s.saving {
		s.savePending = true
		s.mu.Unlock()
		return
	}
	s.saving = true
	snapshot := deepCopy(s.root)
	s.mu.Unlock()

	err := s.writeFile(snapshot)

	s.mu.Lock()
	s.saving = false
	retry := s.savePending
	s.savePending = false
	s.mu.Unlock()

	if s.collector != nil {
		s.collector.RecordStoreSave(s.name, err == nil)
	}
	if err != nil {
		s.logger.Error("store save failed", "store", s.name, "error", err)
	} else {
		s.logger.Debug("store saved", "store", s.name, "path", s.path)
	}

	if retry {
		s.persist()
	}
}

// writeFile marshals the snapshot and replaces the backing file through a
// temp file and rename, so a crash mid-write never leaves a torn file.
func (s *Store) writeFile(snapshot any) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Flush forces any pending debounced save to run now. A no-op for
// read-only and memory-only stores.
func (s *Store) Flush() {
	s.mu.Lock()
	if s.readOnly || s.path == "" {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.persist()
}

// Close flushes pending writes and stops the debounce timer.
func (s *Store) Close() {
	s.Flush()
}
