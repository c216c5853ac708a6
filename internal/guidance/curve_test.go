package guidance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// northCurve samples a straight northbound path at 1 m spacing, long
// enough that the coarse scan has several strides to cover.
func northCurve(t *testing.T, n int) *Curve {
	t.Helper()
	pts := make([]core.Point, n)
	for i := range pts {
		pts[i] = core.Point{Y: float64(i)}
	}
	c, err := NewCurve(pts, false)
	require.NoError(t, err)
	return c
}

// circleCurve samples a clockwise circle of the given radius, starting at
// the north point.
func circleCurve(t *testing.T, radius float64, n int) *Curve {
	t.Helper()
	pts := make([]core.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = core.Point{X: radius * math.Sin(a), Y: radius * math.Cos(a)}
	}
	c, err := NewCurve(pts, true)
	require.NoError(t, err)
	return c
}

func TestNewCurve_TooShort(t *testing.T) {
	_, err := NewCurve(nil, false)
	assert.ErrorIs(t, err, ErrCurveTooShort)

	_, err = NewCurve([]core.Point{{X: 1}}, false)
	assert.ErrorIs(t, err, ErrCurveTooShort)
}

func TestNewCurve_Accessors(t *testing.T) {
	c := northCurve(t, 41)
	assert.Equal(t, 41, c.Len())
	assert.False(t, c.IsLoop())

	loop := circleCurve(t, 20, 72)
	assert.True(t, loop.IsLoop())
}

func TestCurveProject_Straight(t *testing.T) {
	c := northCurve(t, 41)

	tests := []struct {
		name      string
		pos       core.Point
		wantCross float64
	}{
		{"right of path mid-curve", core.Point{X: 2, Y: 15.3}, 2},
		{"left of path", core.Point{X: -1.2, Y: 7}, -1.2},
		{"on path between samples", core.Point{Y: 22.5}, 0},
		{"right of path near far end", core.Point{X: 0.8, Y: 38.1}, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Project(core.Pose{Position: tt.pos})
			require.NoError(t, err)
			assert.InDelta(t, tt.wantCross, got.CrossTrack, 1e-9)
			assert.InDelta(t, 0, got.ReferenceHeading, 1e-9)
			assert.InDelta(t, 0, got.Heading, 1e-9)
		})
	}
}

func TestCurveProject_HeadingError(t *testing.T) {
	c := northCurve(t, 41)

	got, err := c.Project(core.Pose{Position: core.Point{X: 1, Y: 10}, Heading: 0.3})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, got.Heading, 1e-9)

	// headings just under 2*pi wrap to a small negative error
	got, err = c.Project(core.Pose{Position: core.Point{Y: 10}, Heading: 2*math.Pi - 0.2})
	require.NoError(t, err)
	assert.InDelta(t, -0.2, got.Heading, 1e-9)
}

// An open curve clamps projection to its endpoints: the error keeps the
// full distance to the end point instead of extrapolating the last
// segment.
func TestCurveProject_OpenEndClamp(t *testing.T) {
	c := northCurve(t, 41)

	// past the far end, slightly right
	got, err := c.Project(core.Pose{Position: core.Point{X: 0.5, Y: 45}})
	require.NoError(t, err)
	want := math.Hypot(0.5, 5)
	assert.InDelta(t, want, got.CrossTrack, 1e-9)

	// before the start, slightly right
	got, err = c.Project(core.Pose{Position: core.Point{X: 0.3, Y: -3}})
	require.NoError(t, err)
	want = math.Hypot(0.3, 3)
	assert.InDelta(t, want, got.CrossTrack, 1e-9)

	// before the start on the left keeps a negative sign
	got, err = c.Project(core.Pose{Position: core.Point{X: -0.3, Y: -3}})
	require.NoError(t, err)
	assert.InDelta(t, -want, got.CrossTrack, 1e-9)
}

func TestCurveProject_LoopWrap(t *testing.T) {
	c := circleCurve(t, 20, 72)

	// directly above the start point, 1 m outside the circle; travel at
	// the top is eastbound, so outside is to the left
	got, err := c.Project(core.Pose{Position: core.Point{Y: 21}})
	require.NoError(t, err)
	assert.InDelta(t, -1, got.CrossTrack, 1e-9)
	assert.InDelta(t, math.Pi/2, got.ReferenceHeading, 1e-9)

	// just before the seam, between the last and the first sample
	a := -2.5 * math.Pi / 180
	pos := core.Point{X: 20 * math.Sin(a), Y: 20 * math.Cos(a)}
	got, err = c.Project(core.Pose{Position: pos})
	require.NoError(t, err)
	assert.Less(t, math.Abs(got.CrossTrack), 0.05)
}

func TestCurveProject_InsideLoopIsRight(t *testing.T) {
	c := circleCurve(t, 20, 72)

	// inside a clockwise loop is to the right of travel; the sampled
	// polygon sits slightly inside the true circle, so allow the chord
	// error
	got, err := c.Project(core.Pose{Position: core.Point{Y: 18}})
	require.NoError(t, err)
	assert.InDelta(t, 2, got.CrossTrack, 0.05)
}

func TestNewCurve_DuplicatePointsTolerated(t *testing.T) {
	pts := []core.Point{
		{Y: 0}, {Y: 1}, {Y: 1}, {Y: 2}, {Y: 3},
	}
	c, err := NewCurve(pts, false)
	require.NoError(t, err)

	got, err := c.Project(core.Pose{Position: core.Point{X: 0.4, Y: 1.5}})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, got.CrossTrack, 1e-9)
}
