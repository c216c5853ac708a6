// Package worker runs the background flush loop for storage backends. At
// live fix rates a batch can take minutes to fill, so without a periodic
// flush a crash would lose everything since the last batch boundary.
package worker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Xyntexx/AgOpenGPS/internal/storage"
)

// Flusher is implemented by backends that buffer writes.
type Flusher interface {
	Flush() error
}

// DBWriteDurationProvider is an optional interface that backends can
// implement to expose their last write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the worker manager.
type Dependencies struct {
	Backend  storage.Backend
	Interval time.Duration
	Logger   *slog.Logger
}

// Manager periodically flushes the backend.
type Manager struct {
	deps Dependencies

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
}

// NewManager creates a new worker manager.
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 5 * time.Second
	}
	return &Manager{deps: deps}
}

// Start launches the flush goroutine. No-op if the backend does not buffer
// or the manager is already running.
func (m *Manager) Start() {
	flusher, ok := m.deps.Backend.(Flusher)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		return
	}
	m.isRunning = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan

	go func() {
		ticker := time.NewTicker(m.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := flusher.Flush(); err != nil {
					m.deps.Logger.Error("periodic flush failed", "error", err)
				}
			}
		}
	}()
}

// Stop halts the flush goroutine. A final flush is the backend's Close
// responsibility, not ours.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		close(m.stopChan)
		m.isRunning = false
	}
}

// GetLastDBWriteDuration returns the duration of the last write cycle, or 0
// if the backend doesn't expose it.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.deps.Backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}
