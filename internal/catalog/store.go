package catalog

import (
	"sync"
	"sync/atomic"
	"time"

	"plugin-router/internal/common/logging"
)

// Store serves the current Tree. Reload swaps in a freshly loaded tree; a
// tree that fails to load or validate never replaces the current one.
type Store struct {
	loader  Loader
	current atomic.Pointer[Tree]
	logger  logging.Logger

	mu         sync.Mutex
	loadedAt   time.Time
	reloads    int
	lastFailed error
}

// NewStore loads the initial tree.
func NewStore(loader Loader, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Store{
		loader: loader,
		logger: logger.WithFields(logging.String("component", "catalog")),
	}

	tree, err := loader.Load()
	if err != nil {
		return nil, err
	}
	s.current.Store(tree)
	s.loadedAt = time.Now()

	s.logger.Info("Catalog loaded", logging.Int("projects", len(tree.Projects)))
	return s, nil
}

// Snapshot returns the current tree. Callers must not modify it.
func (s *Store) Snapshot() *Tree {
	return s.current.Load()
}

// Reload loads a new tree and makes it current.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loader.Load()
	if err != nil {
		s.lastFailed = err
		s.logger.Error("Catalog reload failed, keeping previous configuration", err)
		return err
	}

	s.current.Store(tree)
	s.loadedAt = time.Now()
	s.reloads++
	s.lastFailed = nil

	s.logger.Info("Catalog reloaded",
		logging.Int("projects", len(tree.Projects)),
		logging.Int("reloads", s.reloads),
	)
	return nil
}

// Status describes the store for health endpoints.
type Status struct {
	LoadedAt  time.Time `json:"loaded_at"`
	Reloads   int       `json:"reloads"`
	LastError string    `json:"last_error,omitempty"`
}

// Status returns load statistics.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{LoadedAt: s.loadedAt, Reloads: s.reloads}
	if s.lastFailed != nil {
		status.LastError = s.lastFailed.Error()
	}
	return status
}
