// pkg/core/tick.go
package core

import "time"

// Run identifies one recorded guidance session (live or simulated).
type Run struct {
	ID        uint
	Name      string
	StartTime time.Time
	Simulated bool
}

// RunSummary closes out a run with its coverage accounting.
type RunSummary struct {
	Ticks          uint64         `json:"ticks"`
	ElapsedSec     float64        `json:"elapsedSec"`
	RawAreaM2      float64        `json:"rawAreaM2"`
	NetAreaM2      float64        `json:"netAreaM2"`
	OverlapPercent float64        `json:"overlapPercent"`
	Quads          []CoverageQuad `json:"quads,omitempty"`
}

// TickRecord is everything one control tick produced, in the shape the
// recording backends and the streaming viewer consume.
type TickRecord struct {
	Tick           uint64         `json:"tick"`
	Elapsed        float64        `json:"elapsed"` // seconds of accumulated dt
	Pose           Pose           `json:"pose"`
	Error          GuidanceError  `json:"error"`
	CommandedSteer float64        `json:"commandedSteer"` // degrees
	SmoothedSteer  float64        `json:"smoothedSteer"`  // degrees, simulator only
	Sections       []SectionState `json:"sections"`
}
