// Package loop ties the guidance core together into the fixed-step control
// tick: read pose, project onto the reference line, compute a steer
// command, feed the simulator (simulation) or the actuator (live), then
// update section coverage. Everything inside a tick is synchronous and
// single-threaded; guidance strictly precedes simulator feedback.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/Xyntexx/AgOpenGPS/internal/fix"
	"github.com/Xyntexx/AgOpenGPS/internal/guidance"
	"github.com/Xyntexx/AgOpenGPS/internal/section"
	"github.com/Xyntexx/AgOpenGPS/internal/sim"
	"github.com/Xyntexx/AgOpenGPS/internal/steer"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

var (
	// ErrNoGuidanceLine is a contract violation: Tick was called before a
	// reference line was configured.
	ErrNoGuidanceLine = errors.New("no guidance line configured")

	// ErrNoFix means no position fix has arrived yet; the tick is skipped
	// without faulting.
	ErrNoFix = errors.New("no position fix available")

	// ErrFaulted is wrapped around the original fault on every tick until
	// Reset. While faulted the runner emits steer 0 and keeps all
	// sections forced off.
	ErrFaulted = errors.New("guidance loop faulted")

	// ErrInvalidDt rejects non-positive time steps.
	ErrInvalidDt = errors.New("dt must be > 0")
)

// Actuator receives the steer command in live operation.
type Actuator interface {
	Apply(cmd core.SteerCommand) error
}

// Sink observes completed tick records (recorder, streaming viewer).
// Sinks must not block the tick.
type Sink interface {
	RecordTick(rec core.TickRecord) error
}

// Dependencies wires a Runner. Exactly one of Simulator and Source must be
// set: Simulator closes the loop in simulation, Source supplies live
// fixes. Actuator and Sinks are optional.
type Dependencies struct {
	Controller *steer.Controller
	Sections   *section.Controller
	Simulator  *sim.Simulator
	Source     fix.Source
	Actuator   Actuator
	Sinks      []Sink
	Logger     *slog.Logger
}

// Runner is the closed-loop tick driver.
type Runner struct {
	deps Dependencies
	line guidance.Line

	tick    uint64
	elapsed float64
	fault   error

	logger *slog.Logger

	ticksProcessed metric.Int64Counter
	faults         metric.Int64Counter
	crossTrack     metric.Float64Gauge
}

// NewRunner builds a runner. The guidance line may be set later; ticking
// without one faults the loop.
func NewRunner(deps Dependencies) (*Runner, error) {
	if deps.Controller == nil || deps.Sections == nil {
		return nil, errors.New("loop: controller and sections are required")
	}
	if (deps.Simulator == nil) == (deps.Source == nil) {
		return nil, errors.New("loop: exactly one of simulator and fix source must be set")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{deps: deps, logger: logger}

	m := meter()
	var err error
	r.ticksProcessed, err = m.Int64Counter(
		"guidance.ticks.processed",
		metric.WithDescription("Control ticks completed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	r.faults, err = m.Int64Counter(
		"guidance.faults",
		metric.WithDescription("Guidance loop faults"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fault counter: %w", err)
	}
	r.crossTrack, err = m.Float64Gauge(
		"guidance.crosstrack.metres",
		metric.WithDescription("Signed cross-track error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating crosstrack gauge: %w", err)
	}

	return r, nil
}

// SetLine swaps the reference line and resets controller state, since the
// integral accumulated against the old line is meaningless on the new one.
func (r *Runner) SetLine(line guidance.Line) {
	r.line = line
	r.deps.Controller.Reset()
}

// Tick runs one control cycle over dt seconds. In simulation the returned
// record holds the post-step pose; live, the pose the fix source provided.
func (r *Runner) Tick(dt float64) (core.TickRecord, error) {
	if r.fault != nil {
		return r.safeRecord(), fmt.Errorf("%w: %w", ErrFaulted, r.fault)
	}
	if dt <= 0 {
		return r.safeRecord(), fmt.Errorf("%w: got %v", ErrInvalidDt, dt)
	}

	pose, ok := r.currentPose()
	if !ok {
		// a missing fix is an operational condition, not a fault
		return r.safeRecord(), ErrNoFix
	}

	if r.line == nil {
		return r.safeRecord(), r.enterFault(ErrNoGuidanceLine)
	}

	guidErr, err := r.line.Project(pose)
	if err != nil {
		return r.safeRecord(), r.enterFault(fmt.Errorf("projection failed: %w", err))
	}

	cmd := r.deps.Controller.Calculate(guidErr, pose.Speed, pose.IsReverse)

	var smoothed float64
	if r.deps.Simulator != nil {
		pose = r.deps.Simulator.Step(cmd.AngleDeg, dt)
		smoothed = r.deps.Simulator.SmoothedSteer()
	} else if r.deps.Actuator != nil {
		if err := r.deps.Actuator.Apply(cmd); err != nil {
			r.logger.Error("actuator apply failed", "error", err)
		}
	}

	states := r.deps.Sections.Update(pose, dt, r.tick)

	r.tick++
	r.elapsed += dt

	rec := core.TickRecord{
		Tick:           r.tick,
		Elapsed:        r.elapsed,
		Pose:           pose,
		Error:          guidErr,
		CommandedSteer: cmd.AngleDeg,
		SmoothedSteer:  smoothed,
		Sections:       states,
	}

	ctx := context.Background()
	r.ticksProcessed.Add(ctx, 1)
	r.crossTrack.Record(ctx, guidErr.CrossTrack)

	for _, sink := range r.deps.Sinks {
		if err := sink.RecordTick(rec); err != nil {
			r.logger.Error("tick sink failed", "error", err)
		}
	}

	return rec, nil
}

// Fault returns the active fault, or nil.
func (r *Runner) Fault() error {
	return r.fault
}

// Reset clears a fault and the controller state. The caller is expected to
// have corrected the configuration first.
func (r *Runner) Reset() {
	r.fault = nil
	r.deps.Controller.Reset()
}

// Elapsed returns accumulated simulated/served seconds.
func (r *Runner) Elapsed() float64 {
	return r.elapsed
}

// enterFault latches the fault, forces safe output and returns the fault.
// A plausible-looking but wrong steer command is worse than stopping.
func (r *Runner) enterFault(cause error) error {
	r.fault = cause
	r.deps.Sections.ForceAllOff()
	r.faults.Add(context.Background(), 1)
	r.logger.Error("guidance loop faulted", "error", cause)
	return fmt.Errorf("%w: %w", ErrFaulted, cause)
}

// safeRecord is the halted output: steer exactly 0, sections as they are
// (forced off while faulted).
func (r *Runner) safeRecord() core.TickRecord {
	return core.TickRecord{
		Tick:     r.tick,
		Elapsed:  r.elapsed,
		Sections: r.deps.Sections.States(),
	}
}

func (r *Runner) currentPose() (core.Pose, bool) {
	if r.deps.Simulator != nil {
		return r.deps.Simulator.Pose(), true
	}
	return r.deps.Source.Latest()
}
