// Package storage defines the pluggable recording backend for guidance
// runs. The control loop itself never persists anything; backends exist
// for validating controller behavior against recorded trajectories and
// for feeding live viewers.
package storage

import "github.com/Xyntexx/AgOpenGPS/pkg/core"

// Backend is the interface all recording implementations satisfy.
// RecordTick matches the control loop's sink contract, so a Backend can be
// handed to the runner directly.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management. StartRun assigns an ID to the passed pointer.
	StartRun(run *core.Run) error
	EndRun(summary core.RunSummary) error

	// Tick recording
	RecordTick(rec core.TickRecord) error
}

// Exportable is an optional interface for backends that produce a file
// artifact for the run.
type Exportable interface {
	ExportedFilePath() string
}
