package circuitbreaker

import (
	"sort"
	"sync"

	"plugin-router/internal/common/logging"
)

// Manager keeps one breaker per name, created on first use.
type Manager struct {
	config   Config
	breakers map[string]*Breaker
	logger   logging.Logger
	mu       sync.Mutex
}

// NewManager creates a manager whose breakers share config.
func NewManager(config Config, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Manager{
		config:   config,
		breakers: make(map[string]*Breaker),
		logger:   logger,
	}
}

// Get returns the breaker for name, creating it if needed.
func (m *Manager) Get(name string) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, exists := m.breakers[name]; exists {
		return b
	}
	b := New(name, m.config, m.logger)
	m.breakers[name] = b
	return b
}

// Execute runs fn through the breaker for name.
func (m *Manager) Execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	return m.Get(name).Execute(fn)
}

// AllStats returns statistics for every breaker, sorted by name.
func (m *Manager) AllStats() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]Stats, 0, len(m.breakers))
	for _, b := range m.breakers {
		stats = append(stats, b.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
