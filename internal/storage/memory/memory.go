// Package memory stores a run in memory and exports it to JSON when the
// run ends. The cheapest backend, and the default for bench simulation.
package memory

import (
	"sync"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// Config holds memory/JSON backend settings.
type Config struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// Backend accumulates the run in memory.
type Backend struct {
	cfg Config

	mu      sync.RWMutex
	run     *core.Run
	ticks   []core.TickRecord
	summary *core.RunSummary

	exportedPath string
}

// New creates a new memory backend.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close clears held data.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.run = nil
	b.ticks = nil
	b.summary = nil
	return nil
}

// StartRun begins recording a run.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	run.ID = 1
	b.run = run
	b.ticks = b.ticks[:0]
	b.summary = nil
	return nil
}

// RecordTick appends one tick record.
func (b *Backend) RecordTick(rec core.TickRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticks = append(b.ticks, rec)
	return nil
}

// EndRun stores the summary and exports the run to JSON if an output
// directory is configured.
func (b *Backend) EndRun(summary core.RunSummary) error {
	b.mu.Lock()
	b.summary = &summary
	b.mu.Unlock()

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.export()
}

// Ticks returns a snapshot of the recorded ticks.
func (b *Backend) Ticks() []core.TickRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.TickRecord, len(b.ticks))
	copy(out, b.ticks)
	return out
}

// Summary returns the run summary, nil before EndRun.
func (b *Backend) Summary() *core.RunSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.summary
}

// ExportedFilePath returns the path of the exported JSON, empty until
// EndRun has run with an output directory configured.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exportedPath
}
