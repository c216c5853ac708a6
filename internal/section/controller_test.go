package section

import (
	"math"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xyntexx/AgOpenGPS/internal/geo"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

func oneSectionConfig(onDelay, offDelay float64) Config {
	return Config{
		Sections:    []SectionConfig{{LeftOffsetM: -1, RightOffsetM: 1}},
		OnDelaySec:  onDelay,
		OffDelaySec: offDelay,
	}
}

// stripBoundary builds a workable strip spanning the given northing range,
// wide enough that easting never matters in these tests.
func stripBoundary(t *testing.T, yMin, yMax float64) *geo.Boundary {
	t.Helper()
	poly, err := geo.PolygonFromRing([]core.Point{
		{X: -100, Y: yMin}, {X: 100, Y: yMin}, {X: 100, Y: yMax}, {X: -100, Y: yMax},
	})
	require.NoError(t, err)
	return geo.NewBoundary([]geom.Polygon{poly}, nil)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, oneSectionConfig(0.3, 0.2).Validate())

	assert.ErrorIs(t, Config{}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, oneSectionConfig(-0.1, 0).Validate(), ErrInvalidConfig)

	bad := oneSectionConfig(0, 0)
	bad.Sections[0].RightOffsetM = bad.Sections[0].LeftOffsetM
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.IsType(t, IgnoreOverlap{}, p)

	p, err = PolicyByName("suppress")
	require.NoError(t, err)
	assert.IsType(t, SuppressOnOverlap{}, p)

	_, err = PolicyByName("bogus")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSetMode_Errors(t *testing.T) {
	c, err := New(oneSectionConfig(0, 0), nil, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, c.SetMode(-1, core.SectionOn), ErrSectionIndex)
	assert.ErrorIs(t, c.SetMode(1, core.SectionOn), ErrSectionIndex)
	assert.ErrorIs(t, c.SetMode(0, core.SectionMode("sideways")), ErrUnknownMode)
}

func TestManualOnBypassesBoundary(t *testing.T) {
	c, err := New(oneSectionConfig(10, 10), stripBoundary(t, 100, 200), IgnoreOverlap{})
	require.NoError(t, err)

	// far outside the boundary, long debounce that never elapses
	require.NoError(t, c.SetMode(0, core.SectionOn))
	on, err := c.IsOn(0)
	require.NoError(t, err)
	assert.True(t, on)

	states := c.Update(core.Pose{}, 0.1, 1)
	assert.True(t, states[0].IsOn)
	assert.False(t, states[0].InBoundary)
	assert.Equal(t, core.SectionOn, states[0].Mode)
}

func TestManualOffThenAutoStartsFromOff(t *testing.T) {
	c, err := New(oneSectionConfig(0, 0), nil, nil)
	require.NoError(t, err)

	require.NoError(t, c.SetMode(0, core.SectionOn))
	require.NoError(t, c.SetMode(0, core.SectionOff))
	on, err := c.IsOn(0)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, c.SetMode(0, core.SectionAuto))
	on, err = c.IsOn(0)
	require.NoError(t, err)
	assert.False(t, on, "auto re-arms from off and waits for the debounce")
}

func TestForceAllOff(t *testing.T) {
	cfg := Config{
		Sections: []SectionConfig{
			{LeftOffsetM: -2, RightOffsetM: 0},
			{LeftOffsetM: 0, RightOffsetM: 2},
		},
	}
	c, err := New(cfg, nil, nil)
	require.NoError(t, err)
	require.NoError(t, c.SetMode(0, core.SectionOn))

	c.ForceAllOff()
	for _, s := range c.States() {
		assert.Equal(t, core.SectionOff, s.Mode)
		assert.False(t, s.IsOn)
	}

	// idempotent
	c.ForceAllOff()
}

func TestAutoDebounce_OnDelay(t *testing.T) {
	c, err := New(oneSectionConfig(0.3, 0.2), nil, nil)
	require.NoError(t, err)

	pose := core.Pose{Speed: 1}
	// no boundary means the switch condition holds from the first tick;
	// the section must still wait out the full on-delay
	for tick := uint64(1); tick <= 2; tick++ {
		states := c.Update(pose, 0.1, tick)
		assert.False(t, states[0].IsOn, "tick %d inside the on-delay", tick)
	}
	states := c.Update(pose, 0.1, 3)
	assert.True(t, states[0].IsOn, "on-delay elapsed")
}

func TestAutoDebounce_ShortCrossingNeverActivates(t *testing.T) {
	// a strip shorter than the vehicle covers during the on-delay
	c, err := New(oneSectionConfig(0.5, 0.2), stripBoundary(t, 5, 5.3), nil)
	require.NoError(t, err)

	pose := core.Pose{Speed: 1} // northbound, 0.1 m per tick
	for tick := uint64(1); tick <= 100; tick++ {
		pose.Position.Y += 0.1
		states := c.Update(pose, 0.1, tick)
		assert.False(t, states[0].IsOn, "tick %d at y=%.1f", tick, pose.Position.Y)
	}
	assert.Zero(t, c.Record().Len())
}

func TestAutoDebounce_OffDelayAndRetrigger(t *testing.T) {
	c, err := New(oneSectionConfig(0.2, 0.3), stripBoundary(t, 0, 10), nil)
	require.NoError(t, err)

	pose := core.Pose{Position: core.Point{Y: 5}, Speed: 1}
	for tick := uint64(1); tick <= 5; tick++ {
		c.Update(pose, 0.1, tick)
	}
	on, err := c.IsOn(0)
	require.NoError(t, err)
	require.True(t, on)

	// leave the strip; the section holds through the off-delay
	pose.Position.Y = 50
	states := c.Update(pose, 0.1, 6)
	assert.True(t, states[0].IsOn)
	assert.False(t, states[0].InBoundary)
	states = c.Update(pose, 0.1, 7)
	assert.True(t, states[0].IsOn)
	states = c.Update(pose, 0.1, 8)
	assert.False(t, states[0].IsOn, "off-delay elapsed")

	// re-entering the strip re-arms after the on-delay
	pose.Position.Y = 5
	for tick := uint64(9); tick <= 15; tick++ {
		c.Update(pose, 0.1, tick)
	}
	on, err = c.IsOn(0)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestUpdate_EmitsQuadsWhileApplying(t *testing.T) {
	c, err := New(oneSectionConfig(0, 0), nil, nil)
	require.NoError(t, err)

	pose := core.Pose{Speed: 2}
	// first tick: turns on, but no trailing edge exists yet
	c.Update(pose, 0.1, 1)
	assert.Zero(t, c.Record().Len())

	pose.Position.Y = 0.2
	c.Update(pose, 0.1, 2)
	require.Equal(t, 1, c.Record().Len())

	quads := c.Record().Snapshot()
	q := quads[0]
	assert.Equal(t, 0, q.Section)
	assert.Equal(t, uint64(2), q.Tick)
	// heading north: left offset -1 is at x=-1, right at x=+1
	assert.InDelta(t, -1, q.Corners[0].X, 1e-12)
	assert.InDelta(t, 0, q.Corners[0].Y, 1e-12)
	assert.InDelta(t, 1, q.Corners[1].X, 1e-12)
	assert.InDelta(t, 1, q.Corners[2].X, 1e-12)
	assert.InDelta(t, 0.2, q.Corners[2].Y, 1e-12)
	assert.InDelta(t, -1, q.Corners[3].X, 1e-12)

	// 0.2 m forward, 2 m wide
	assert.InDelta(t, 0.4, c.Record().RawArea(), 1e-9)
}

func TestUpdate_MultipleSectionFootprints(t *testing.T) {
	cfg := Config{
		Sections: []SectionConfig{
			{LeftOffsetM: -3, RightOffsetM: 0},
			{LeftOffsetM: 0, RightOffsetM: 3},
		},
	}
	c, err := New(cfg, nil, nil)
	require.NoError(t, err)

	// heading east: the right-hand section footprint points south
	pose := core.Pose{Heading: math.Pi / 2, Speed: 1}
	c.Update(pose, 0.1, 1)
	pose.Position.X = 0.1
	states := c.Update(pose, 0.1, 2)

	require.Len(t, states, 2)
	assert.Equal(t, 2, c.Record().Len())

	quads := c.Record().Snapshot()
	assert.Equal(t, 0, quads[0].Section)
	assert.Equal(t, 1, quads[1].Section)
	// right offset 3 while heading east lands 3 m south
	assert.InDelta(t, -3, quads[1].Corners[1].Y, 1e-9)
}

func TestSuppressOnOverlapPolicy(t *testing.T) {
	c, err := New(oneSectionConfig(0, 0), nil, SuppressOnOverlap{})
	require.NoError(t, err)

	// pre-cover the ground the section is about to cross
	c.Record().Append(core.CoverageQuad{
		Corners: [4]core.Point{
			{X: -5, Y: -5}, {X: 5, Y: -5}, {X: 5, Y: 5}, {X: -5, Y: 5},
		},
	})

	states := c.Update(core.Pose{Speed: 1}, 0.1, 1)
	assert.False(t, states[0].IsOn, "covered ground suppresses activation")

	// virgin ground activates with zero delay
	states = c.Update(core.Pose{Position: core.Point{Y: 50}, Speed: 1}, 0.1, 2)
	assert.True(t, states[0].IsOn)
}

func TestBoundaryMembershipReported(t *testing.T) {
	c, err := New(oneSectionConfig(0, 0), stripBoundary(t, 0, 10), nil)
	require.NoError(t, err)

	states := c.Update(core.Pose{Position: core.Point{Y: 5}}, 0.1, 1)
	assert.True(t, states[0].InBoundary)

	states = c.Update(core.Pose{Position: core.Point{Y: 20}}, 0.1, 2)
	assert.False(t, states[0].InBoundary)
}
