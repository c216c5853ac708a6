package section

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/Xyntexx/AgOpenGPS/internal/coverage"
	"github.com/Xyntexx/AgOpenGPS/internal/geo"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// ErrSectionIndex is returned for an out-of-range section index. This is a
// contract violation by the caller, not a runtime condition to recover.
var ErrSectionIndex = errors.New("section index out of range")

// ErrUnknownMode is returned for a mode value the machine does not know.
var ErrUnknownMode = errors.New("unknown section mode")

// state is the per-section runtime state.
type state struct {
	index int
	cfg   SectionConfig

	machine *fsm.FSM

	isOn       bool
	inBoundary bool

	// debounce accumulators, seconds of dt while the switch condition
	// holds continuously
	onTimer  float64
	offTimer float64

	// trailing edge of the previous tick's footprint; nil-equivalent
	// until the first update after a reset
	hasPrevEdge         bool
	prevLeft, prevRight core.Point
}

func (s *state) resetTimers() {
	s.onTimer = 0
	s.offTimer = 0
}

// Controller drives all sections of the implement. It is updated exactly
// once per control tick and owns the coverage record.
type Controller struct {
	cfg      Config
	sections []*state
	boundary *geo.Boundary
	policy   OverlapPolicy
	record   *coverage.Record
}

// New builds a section controller. A nil boundary means no field boundary
// is loaded; all ground then counts as workable, which keeps bench
// simulations usable without a field file. All sections start in Auto.
func New(cfg Config, boundary *geo.Boundary, policy OverlapPolicy) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if policy == nil {
		policy = IgnoreOverlap{}
	}
	c := &Controller{
		cfg:      cfg,
		boundary: boundary,
		policy:   policy,
		record:   coverage.NewRecord(),
	}
	for i, sc := range cfg.Sections {
		s := &state{index: i, cfg: sc}
		s.machine = newModeMachine(s)
		c.sections = append(c.sections, s)
	}
	return c, nil
}

// Record returns the coverage accumulator.
func (c *Controller) Record() *coverage.Record {
	return c.record
}

// SetBoundary swaps the field boundary. Explicit reconfiguration only.
func (c *Controller) SetBoundary(b *geo.Boundary) {
	c.boundary = b
}

// SetMode requests a mode for one section. Manual On and Off bypass the
// boundary checks and timers immediately; Auto hands control back to the
// debounce logic.
func (c *Controller) SetMode(index int, mode core.SectionMode) error {
	if index < 0 || index >= len(c.sections) {
		return fmt.Errorf("%w: %d of %d", ErrSectionIndex, index, len(c.sections))
	}
	s := c.sections[index]
	if s.machine.Current() == string(mode) {
		return nil
	}
	event, ok := eventForMode(mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return s.machine.Event(context.Background(), event)
}

// ForceAllOff drops every section to manual Off. Used by the safety
// interlock when the loop faults.
func (c *Controller) ForceAllOff() {
	for i := range c.sections {
		// ignore the no-transition case, Off is Off
		_ = c.SetMode(i, core.SectionOff)
	}
}

// Update advances every section by one tick from the current pose and
// appends a coverage quad for each section that is applying. The tick
// number stamps the emitted quads.
func (c *Controller) Update(pose core.Pose, dt float64, tick uint64) []core.SectionState {
	states := make([]core.SectionState, len(c.sections))
	for i, s := range c.sections {
		left := geo.PerpPoint(pose.Position, pose.Heading, s.cfg.LeftOffsetM)
		right := geo.PerpPoint(pose.Position, pose.Heading, s.cfg.RightOffsetM)
		mid := core.Point{X: (left.X + right.X) / 2, Y: (left.Y + right.Y) / 2}

		s.inBoundary = c.boundary == nil || c.boundary.Contains(mid)

		if s.machine.Current() == string(core.SectionAuto) {
			c.updateAuto(s, mid, dt)
		}

		if s.isOn && s.hasPrevEdge {
			c.record.Append(core.CoverageQuad{
				Section: i,
				Tick:    tick,
				Corners: [4]core.Point{s.prevLeft, s.prevRight, right, left},
			})
		}

		s.prevLeft, s.prevRight = left, right
		s.hasPrevEdge = true

		states[i] = core.SectionState{
			Index:      i,
			Mode:       core.SectionMode(s.machine.Current()),
			IsOn:       s.isOn,
			InBoundary: s.inBoundary,
		}
	}
	return states
}

// updateAuto runs the debounce state machine for one Auto-mode section.
// The switch condition must hold for the full delay before the section
// toggles; any interruption restarts the timer.
func (c *Controller) updateAuto(s *state, mid core.Point, dt float64) {
	wantOn := s.inBoundary && c.policy.AllowActivation(mid, c.record)

	switch {
	case wantOn && !s.isOn:
		s.offTimer = 0
		s.onTimer += dt
		if s.onTimer >= c.cfg.OnDelaySec {
			s.isOn = true
			s.resetTimers()
		}
	case !wantOn && s.isOn:
		s.onTimer = 0
		s.offTimer += dt
		if s.offTimer >= c.cfg.OffDelaySec {
			s.isOn = false
			s.resetTimers()
		}
	default:
		s.resetTimers()
	}
}

// States returns the current per-section snapshot without advancing time.
func (c *Controller) States() []core.SectionState {
	states := make([]core.SectionState, len(c.sections))
	for i, s := range c.sections {
		states[i] = core.SectionState{
			Index:      i,
			Mode:       core.SectionMode(s.machine.Current()),
			IsOn:       s.isOn,
			InBoundary: s.inBoundary,
		}
	}
	return states
}

// IsOn reports the applied state of one section.
func (c *Controller) IsOn(index int) (bool, error) {
	if index < 0 || index >= len(c.sections) {
		return false, fmt.Errorf("%w: %d of %d", ErrSectionIndex, index, len(c.sections))
	}
	return c.sections[index].isOn, nil
}
