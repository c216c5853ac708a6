package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists every struct that maps to a table in the run
// recording schema.
var DatabaseModels = []interface{}{
	&Run{},
	&TickSample{},
	&CoverageQuad{},
	&LoopStatus{},
}

// Run is one recorded guidance session, live or simulated. The coverage
// statistics are filled in when the run ends.
type Run struct {
	gorm.Model
	Name           string `gorm:"size:127"`
	StartTime      time.Time
	Simulated      bool
	Ticks          uint
	ElapsedSec     float64
	RawAreaM2      float64
	NetAreaM2      float64
	OverlapPercent float64
}

// TickSample is one control tick: pose, guidance error, steering and the
// per-section snapshot as JSON.
type TickSample struct {
	ID                uint   `gorm:"primarykey"`
	RunID             uint   `gorm:"index"`
	Tick              uint64 `gorm:"index"`
	ElapsedSec        float64
	Easting           float64
	Northing          float64
	HeadingRad        float64
	SpeedMS           float64
	IsReverse         bool
	CrossTrackM       float64
	HeadingErrRad     float64
	CommandedSteerDeg float64
	SmoothedSteerDeg  float64
	Sections          datatypes.JSON
}

// CoverageQuad is one applied quadrilateral, corners stored as JSON in
// local-plane metres.
type CoverageQuad struct {
	ID      uint   `gorm:"primarykey"`
	RunID   uint   `gorm:"index"`
	Section int    `gorm:"index"`
	Tick    uint64
	Corners datatypes.JSON
}

// LoopStatus is one periodic health sample from the status monitor.
type LoopStatus struct {
	ID                  uint      `gorm:"primarykey"`
	Time                time.Time `gorm:"index"`
	Ticks               uint64
	ElapsedSec          float64
	TickRateHz          float64
	CrossTrackM         float64
	SmoothSteerDeg      float64
	SectionsOn          int
	RawAreaM2           float64
	NetAreaM2           float64
	Faulted             bool
	LastWriteDurationMs float64
}

// TickSampleFrom flattens a tick record into its row form.
func TickSampleFrom(runID uint, rec core.TickRecord) (TickSample, error) {
	sections, err := json.Marshal(rec.Sections)
	if err != nil {
		return TickSample{}, fmt.Errorf("marshal sections: %w", err)
	}
	return TickSample{
		RunID:             runID,
		Tick:              rec.Tick,
		ElapsedSec:        rec.Elapsed,
		Easting:           rec.Pose.Position.X,
		Northing:          rec.Pose.Position.Y,
		HeadingRad:        rec.Pose.Heading,
		SpeedMS:           rec.Pose.Speed,
		IsReverse:         rec.Pose.IsReverse,
		CrossTrackM:       rec.Error.CrossTrack,
		HeadingErrRad:     rec.Error.Heading,
		CommandedSteerDeg: rec.CommandedSteer,
		SmoothedSteerDeg:  rec.SmoothedSteer,
		Sections:          datatypes.JSON(sections),
	}, nil
}

// CoverageQuadFrom converts a coverage quad into its row form.
func CoverageQuadFrom(runID uint, q core.CoverageQuad) (CoverageQuad, error) {
	corners, err := json.Marshal(q.Corners)
	if err != nil {
		return CoverageQuad{}, fmt.Errorf("marshal corners: %w", err)
	}
	return CoverageQuad{
		RunID:   runID,
		Section: q.Section,
		Tick:    q.Tick,
		Corners: datatypes.JSON(corners),
	}, nil
}
