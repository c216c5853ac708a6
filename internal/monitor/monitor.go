// Package monitor periodically snapshots the state of a running guidance
// loop into a status file and, when a database is connected, a status table.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Xyntexx/AgOpenGPS/internal/logging"
	"github.com/Xyntexx/AgOpenGPS/internal/model"

	"gorm.io/gorm"
)

// Snapshot is one status sample taken from the live loop.
type Snapshot struct {
	Ticks          uint64  `json:"ticks"`
	ElapsedSec     float64 `json:"elapsedSec"`
	CrossTrackM    float64 `json:"crossTrackM"`
	SmoothSteerDeg float64 `json:"smoothSteerDeg"`
	SectionsOn     int     `json:"sectionsOn"`
	RawAreaM2      float64 `json:"rawAreaM2"`
	NetAreaM2      float64 `json:"netAreaM2"`
	Faulted        bool    `json:"faulted"`
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	DB              *gorm.DB
	LogManager      *logging.Manager
	Snapshot        func() Snapshot
	LastWriteMs     func() float64
	OutputDir       string
	IsDatabaseValid func() bool
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}

	lastTicks   uint64
	lastElapsed float64
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the formatted status lines and the status row for the
// current sample. Tick rate is derived from the delta since the last call.
func (s *Service) GetStatus() (output []string, row model.LoopStatus) {
	snap := s.deps.Snapshot()

	tickRate := 0.0
	if snap.ElapsedSec > s.lastElapsed {
		tickRate = float64(snap.Ticks-s.lastTicks) / (snap.ElapsedSec - s.lastElapsed)
	}
	s.lastTicks = snap.Ticks
	s.lastElapsed = snap.ElapsedSec

	row = model.LoopStatus{
		Time:                time.Now(),
		Ticks:               snap.Ticks,
		ElapsedSec:          snap.ElapsedSec,
		TickRateHz:          tickRate,
		CrossTrackM:         snap.CrossTrackM,
		SmoothSteerDeg:      snap.SmoothSteerDeg,
		SectionsOn:          snap.SectionsOn,
		RawAreaM2:           snap.RawAreaM2,
		NetAreaM2:           snap.NetAreaM2,
		Faulted:             snap.Faulted,
		LastWriteDurationMs: s.deps.LastWriteMs(),
	}

	statusStr, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(statusStr))
	output = append(output, fmt.Sprintf(`{"tickRateHz": %.1f, "lastWriteMs": %.1f}`, tickRate, row.LastWriteDurationMs))

	return output, row
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		statusFile, err := os.Create(s.deps.OutputDir + "/status.txt")
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer statusFile.Close()

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(1000 * time.Millisecond)

				statusStr, row := s.GetStatus()
				if row.Ticks == 0 {
					continue
				}

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range statusStr {
						statusFile.WriteString(line + "\n")
					}
				}

				if s.deps.IsDatabaseValid != nil && s.deps.IsDatabaseValid() {
					err = s.deps.DB.Create(&row).Error
					if err != nil {
						logger.Error("Error writing status row to database", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
