package guidance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

func TestNewABLineFromPoints(t *testing.T) {
	_, err := NewABLineFromPoints(core.Point{X: 1, Y: 1}, core.Point{X: 1, Y: 1}, 4)
	assert.ErrorIs(t, err, ErrCoincidentPoints)

	// A south of B gives a northbound line
	l, err := NewABLineFromPoints(core.Point{}, core.Point{Y: 100}, 4)
	require.NoError(t, err)
	assert.InDelta(t, 0, l.Heading(), 1e-12)

	// A west of B gives an eastbound line
	l, err = NewABLineFromPoints(core.Point{}, core.Point{X: 100}, 4)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, l.Heading(), 1e-12)
}

func TestABLineProject(t *testing.T) {
	tests := []struct {
		name        string
		pose        core.Pose
		wantCross   float64
		wantHeading float64
	}{
		{"on line", core.Pose{Position: core.Point{Y: 50}}, 0, 0},
		{"right of line", core.Pose{Position: core.Point{X: 3, Y: 10}}, 3, 0},
		{"left of line", core.Pose{Position: core.Point{X: -2, Y: -30}}, -2, 0},
		{
			"heading offset",
			core.Pose{Position: core.Point{X: 1}, Heading: 0.25},
			1, 0.25,
		},
		{
			"heading wraps the short way",
			core.Pose{Heading: 2*math.Pi - 0.1},
			0, -0.1,
		},
	}
	line := NewABLine(core.Point{}, 0, 4) // northbound through the origin
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := line.Project(tt.pose)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantCross, got.CrossTrack, 1e-12)
			assert.InDelta(t, tt.wantHeading, got.Heading, 1e-12)
			assert.InDelta(t, 0, got.ReferenceHeading, 1e-12)
		})
	}
}

func TestABLineProject_EastboundSign(t *testing.T) {
	line := NewABLine(core.Point{}, math.Pi/2, 4)

	// travelling east, south of the line is to the right
	got, err := line.Project(core.Pose{Position: core.Point{X: 10, Y: -1.5}})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got.CrossTrack, 1e-12)

	got, err = line.Project(core.Pose{Position: core.Point{X: 10, Y: 1.5}})
	require.NoError(t, err)
	assert.InDelta(t, -1.5, got.CrossTrack, 1e-12)
}

func TestABLineShift(t *testing.T) {
	line := NewABLine(core.Point{}, 0, 4)

	pass1 := line.Shift(1)
	assert.Equal(t, 1, pass1.Pass())
	assert.Equal(t, 0, line.Pass(), "shift returns a copy")

	// pass 1 runs 4 m to the right; a vehicle at x=3 is now 1 m left of it
	got, err := pass1.Project(core.Pose{Position: core.Point{X: 3, Y: 10}})
	require.NoError(t, err)
	assert.InDelta(t, -1, got.CrossTrack, 1e-12)

	// negative passes go left
	got, err = line.Shift(-2).Project(core.Pose{Position: core.Point{X: -8, Y: 0}})
	require.NoError(t, err)
	assert.InDelta(t, 0, got.CrossTrack, 1e-12)
}
