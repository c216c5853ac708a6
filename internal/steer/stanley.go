// Package steer implements the Stanley path-tracking control law: a
// cross-track correction term softened by speed, a heading-error term, a
// bounded integral for steady-state trim bias, and a post damping stage
// near the line. The output is a steer angle in degrees, always finite and
// clamped to the configured maximum.
package steer

import (
	"errors"
	"fmt"
	"math"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// Gains are the Stanley controller tuning parameters. All must be >= 0.
type Gains struct {
	HeadingError  float64 `json:"headingError" mapstructure:"headingError"`
	DistanceError float64 `json:"distanceError" mapstructure:"distanceError"`
	Integral      float64 `json:"integral" mapstructure:"integral"`
}

// Config is the immutable controller configuration.
type Config struct {
	Gains Gains `json:"gains" mapstructure:"gains"`

	// MaxSteerAngleDeg bounds the output magnitude, degrees.
	MaxSteerAngleDeg float64 `json:"maxSteerAngleDeg" mapstructure:"maxSteerAngleDeg"`

	// MaxIntegralDeg is the anti-windup clamp on the integral
	// contribution, degrees.
	MaxIntegralDeg float64 `json:"maxIntegralDeg" mapstructure:"maxIntegralDeg"`
}

// ErrInvalidConfig is returned for out-of-range controller configuration.
// Safety-relevant parameters are never silently defaulted.
var ErrInvalidConfig = errors.New("invalid stanley configuration")

// Validate rejects configurations the controller must not run with.
func (c Config) Validate() error {
	if c.Gains.HeadingError < 0 || c.Gains.DistanceError < 0 || c.Gains.Integral < 0 {
		return fmt.Errorf("%w: negative gain", ErrInvalidConfig)
	}
	if c.MaxSteerAngleDeg <= 0 {
		return fmt.Errorf("%w: maxSteerAngleDeg must be > 0, got %v", ErrInvalidConfig, c.MaxSteerAngleDeg)
	}
	if c.MaxIntegralDeg < 0 {
		return fmt.Errorf("%w: maxIntegralDeg must be >= 0, got %v", ErrInvalidConfig, c.MaxIntegralDeg)
	}
	return nil
}

// Controller holds the configuration and the integral accumulator. One
// instance drives one vehicle; reset it whenever the reference line or
// guidance mode changes.
type Controller struct {
	cfg      Config
	integral float64 // accumulated correction, degrees
}

// New builds a controller, rejecting invalid configuration.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{cfg: cfg}, nil
}

// Reset clears the integral accumulator. Call on line or mode change.
func (c *Controller) Reset() {
	c.integral = 0
}

// Integral returns the current integral contribution in degrees.
func (c *Controller) Integral() float64 {
	return c.integral
}

// Calculate maps a guidance error and speed to a bounded steer angle in
// degrees. The order of operations is load-bearing; tests pin the numeric
// behavior, including the interaction of the atan softening and the
// damping stage near the line.
func (c *Controller) Calculate(guidErr core.GuidanceError, speed float64, isReverse bool) core.SteerCommand {
	headingErr := guidErr.Heading
	if isReverse {
		headingErr = -headingErr
	}
	scaledHeading := headingErr * c.cfg.Gains.HeadingError

	// Compress speed sensitivity above 1 m/s so the cross-track term does
	// not become arbitrarily gentle at transport speed, while staying
	// linear at field speed. Also floors the denominator at 1.
	absSpeed := math.Abs(speed)
	effSpeed := 1.0
	if absSpeed > 1 {
		effSpeed = 1 + 0.277*(absSpeed-1)
	}

	crossTrackCorr := math.Atan(guidErr.CrossTrack * c.cfg.Gains.DistanceError / effSpeed)

	steer := -(crossTrackCorr + scaledHeading) * 180 / math.Pi

	// Integral action removes steady-state offset from mechanical trim or
	// side-slope bias. Held in reverse, clamped for anti-windup.
	if !isReverse {
		c.integral -= c.cfg.Gains.Integral * guidErr.CrossTrack
		if c.integral > c.cfg.MaxIntegralDeg {
			c.integral = c.cfg.MaxIntegralDeg
		} else if c.integral < -c.cfg.MaxIntegralDeg {
			c.integral = -c.cfg.MaxIntegralDeg
		}
	}
	steer += c.integral

	// Damping near the line keeps the controller from hunting once the
	// error is small; far from the line the fixed factor still allows a
	// firm correction.
	absCrossTrack := math.Abs(guidErr.CrossTrack)
	if absCrossTrack > 0.5 {
		steer *= 0.5
	} else {
		steer *= 1 - absCrossTrack
	}

	if math.IsNaN(steer) {
		steer = 0
	}
	if steer > c.cfg.MaxSteerAngleDeg {
		steer = c.cfg.MaxSteerAngleDeg
	} else if steer < -c.cfg.MaxSteerAngleDeg {
		steer = -c.cfg.MaxSteerAngleDeg
	}

	return core.SteerCommand{AngleDeg: steer}
}
