// Package sim is the kinematic vehicle simulator used to close the control
// loop without hardware: a bicycle model plus a tiered ramp that emulates
// hydraulic steering lag. Time acceleration in tests is purely a matter of
// calling Step with a larger or more frequent dt; nothing here reads the
// wall clock.
package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/Xyntexx/AgOpenGPS/internal/geo"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// ErrInvalidWheelbase is returned at construction for a non-positive
// wheelbase.
var ErrInvalidWheelbase = errors.New("wheelbase must be > 0")

// Actuator ramp tiers, degrees per tick. A commanded change is approached
// in large steps while far away and small steps close in; below snapGap
// the smoothed angle snaps to the command.
const (
	largeGap  = 11.0
	mediumGap = 5.0
	snapGap   = 1.0

	largeStep  = 6.0
	mediumStep = 2.0
	smallStep  = 0.5
)

// Config is the simulated vehicle geometry.
type Config struct {
	// WheelbaseM is the distance between axles in metres.
	WheelbaseM float64 `json:"wheelbaseM" mapstructure:"wheelbaseM"`
}

// Validate rejects geometry the model cannot run with.
func (c Config) Validate() error {
	if c.WheelbaseM <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidWheelbase, c.WheelbaseM)
	}
	return nil
}

// Simulator advances a vehicle pose from commanded steer angles.
type Simulator struct {
	cfg           Config
	pose          core.Pose
	smoothedSteer float64 // degrees, lags the command per the ramp tiers
}

// New builds a simulator at the given initial pose.
func New(cfg Config, initial core.Pose) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{cfg: cfg, pose: initial}, nil
}

// Pose returns the current vehicle pose.
func (s *Simulator) Pose() core.Pose {
	return s.pose
}

// SmoothedSteer returns the lagged steer angle in degrees.
func (s *Simulator) SmoothedSteer() float64 {
	return s.smoothedSteer
}

// SetSpeed updates the commanded ground speed (m/s, always positive) and
// travel direction.
func (s *Simulator) SetSpeed(speed float64, reverse bool) {
	s.pose.Speed = math.Abs(speed)
	s.pose.IsReverse = reverse
}

// Reset places the vehicle at a new pose and clears the actuator state.
func (s *Simulator) Reset(pose core.Pose) {
	s.pose = pose
	s.smoothedSteer = 0
}

// Step applies one tick: ramp the smoothed steer angle toward the command,
// then advance the pose by the bicycle model over dt seconds. Returns the
// new pose.
func (s *Simulator) Step(commandedSteerDeg, dt float64) core.Pose {
	s.smoothedSteer = rampToward(s.smoothedSteer, commandedSteerDeg)

	dist := s.pose.Speed * dt
	if s.pose.IsReverse {
		dist = -dist
	}

	headingChange := dist * math.Tan(s.smoothedSteer*math.Pi/180) / s.cfg.WheelbaseM
	s.pose.Heading = geo.NormalizeHeading(s.pose.Heading + headingChange)
	s.pose.Position = geo.Project(s.pose.Position, s.pose.Heading, dist)

	return s.pose
}

// rampToward moves the smoothed angle one tier-step toward the command.
func rampToward(current, command float64) float64 {
	gap := command - current
	absGap := math.Abs(gap)

	var step float64
	switch {
	case absGap < snapGap:
		return command
	case absGap > largeGap:
		step = largeStep
	case absGap > mediumGap:
		step = mediumStep
	default:
		step = smallStep
	}
	if gap < 0 {
		step = -step
	}
	return current + step
}
