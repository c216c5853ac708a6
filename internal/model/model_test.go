package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

func TestTickSampleFrom(t *testing.T) {
	rec := core.TickRecord{
		Tick:    42,
		Elapsed: 4.2,
		Pose: core.Pose{
			Position:  core.Point{X: 12.5, Y: -3.25},
			Heading:   1.57,
			Speed:     2.78,
			IsReverse: true,
		},
		Error: core.GuidanceError{
			CrossTrack: -0.08,
			Heading:    0.02,
		},
		CommandedSteer: -4.5,
		SmoothedSteer:  -4.0,
		Sections: []core.SectionState{
			{Index: 0, Mode: core.SectionAuto, IsOn: true, InBoundary: true},
			{Index: 1, Mode: core.SectionOff},
		},
	}

	row, err := TickSampleFrom(7, rec)
	require.NoError(t, err)

	assert.Equal(t, uint(7), row.RunID)
	assert.Equal(t, uint64(42), row.Tick)
	assert.Equal(t, 4.2, row.ElapsedSec)
	assert.Equal(t, 12.5, row.Easting)
	assert.Equal(t, -3.25, row.Northing)
	assert.Equal(t, 1.57, row.HeadingRad)
	assert.Equal(t, 2.78, row.SpeedMS)
	assert.True(t, row.IsReverse)
	assert.Equal(t, -0.08, row.CrossTrackM)
	assert.Equal(t, 0.02, row.HeadingErrRad)
	assert.Equal(t, -4.5, row.CommandedSteerDeg)
	assert.Equal(t, -4.0, row.SmoothedSteerDeg)

	var sections []core.SectionState
	require.NoError(t, json.Unmarshal(row.Sections, &sections))
	require.Len(t, sections, 2)
	assert.Equal(t, rec.Sections, sections)
}

func TestCoverageQuadFrom(t *testing.T) {
	q := core.CoverageQuad{
		Section: 3,
		Tick:    99,
		Corners: [4]core.Point{
			{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 0.3}, {X: 0, Y: 0.3},
		},
	}

	row, err := CoverageQuadFrom(5, q)
	require.NoError(t, err)

	assert.Equal(t, uint(5), row.RunID)
	assert.Equal(t, 3, row.Section)
	assert.Equal(t, uint64(99), row.Tick)

	var corners [4]core.Point
	require.NoError(t, json.Unmarshal(row.Corners, &corners))
	assert.Equal(t, q.Corners, corners)
}
