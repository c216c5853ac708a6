// Package gormstore implements the storage.Backend interface on a GORM
// database. SQLite and Postgres backends wrap it via composition; the only
// driver-specific concerns live in those wrappers.
package gormstore

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Xyntexx/AgOpenGPS/internal/model"
	"github.com/Xyntexx/AgOpenGPS/internal/queue"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// batchSize is how many tick samples accumulate before a write.
const batchSize = 256

// Dependencies holds what the backend needs.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Backend records runs into a GORM database. Tick samples queue up and are
// written in batches, either when the batch fills or when Flush is called
// by a background worker.
type Backend struct {
	db      *gorm.DB
	logger  *slog.Logger
	pending *queue.Queue[model.TickSample]

	// flushMu serializes batch writes so samples land in tick order even
	// when the loop and a background flusher race.
	flushMu sync.Mutex

	mu        sync.Mutex
	runID     uint
	lastWrite time.Duration
}

// New creates a GORM storage backend.
func New(deps Dependencies) *Backend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{db: deps.DB, logger: logger, pending: queue.New[model.TickSample]()}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("migrating run schema: %w", err)
	}
	return nil
}

// Close flushes pending samples.
func (b *Backend) Close() error {
	return b.Flush()
}

// StartRun creates the run row and assigns its ID.
func (b *Backend) StartRun(run *core.Run) error {
	row := model.Run{
		Name:      run.Name,
		StartTime: run.StartTime,
		Simulated: run.Simulated,
	}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("creating run row: %w", err)
	}
	b.mu.Lock()
	b.runID = row.ID
	b.mu.Unlock()
	b.pending.Clear()
	run.ID = row.ID
	return nil
}

// RecordTick queues one tick sample, flushing when the batch fills.
func (b *Backend) RecordTick(rec core.TickRecord) error {
	b.mu.Lock()
	runID := b.runID
	b.mu.Unlock()

	sample, err := model.TickSampleFrom(runID, rec)
	if err != nil {
		return err
	}
	b.pending.Push(sample)
	if b.pending.Len() >= batchSize {
		return b.Flush()
	}
	return nil
}

// Flush writes all queued tick samples in one batch.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	rows := b.pending.Drain()
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	if err := b.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("writing tick samples: %w", err)
	}
	b.mu.Lock()
	b.lastWrite = time.Since(start)
	b.mu.Unlock()
	return nil
}

// EndRun flushes ticks, writes the coverage quads and closes out the run
// row with its summary statistics.
func (b *Backend) EndRun(summary core.RunSummary) error {
	if err := b.Flush(); err != nil {
		return err
	}

	b.mu.Lock()
	runID := b.runID
	b.mu.Unlock()

	if len(summary.Quads) > 0 {
		rows := make([]model.CoverageQuad, 0, len(summary.Quads))
		for _, q := range summary.Quads {
			row, err := model.CoverageQuadFrom(runID, q)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		if err := b.db.Create(&rows).Error; err != nil {
			return fmt.Errorf("writing coverage quads: %w", err)
		}
	}

	err := b.db.Model(&model.Run{}).Where("id = ?", runID).Updates(map[string]any{
		"ticks":           summary.Ticks,
		"elapsed_sec":     summary.ElapsedSec,
		"raw_area_m2":     summary.RawAreaM2,
		"net_area_m2":     summary.NetAreaM2,
		"overlap_percent": summary.OverlapPercent,
	}).Error
	if err != nil {
		return fmt.Errorf("closing run row: %w", err)
	}
	return nil
}

// GetLastDBWriteDuration exposes the last batch write time for monitoring.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastWrite
}
