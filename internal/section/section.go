// Package section implements the implement coverage controller: one state
// machine per boom section deciding on/off from operator mode, boundary
// membership and debounce timers, plus the coverage quads each applying
// section paints per tick.
package section

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned for section layouts the controller must
// refuse to run with.
var ErrInvalidConfig = errors.New("invalid section configuration")

// SectionConfig is the geometry of one section, metres from the implement
// centerline: left negative, right positive.
type SectionConfig struct {
	LeftOffsetM  float64 `json:"leftOffsetM" mapstructure:"leftOffsetM"`
	RightOffsetM float64 `json:"rightOffsetM" mapstructure:"rightOffsetM"`
}

// Width returns the section width in metres.
func (s SectionConfig) Width() float64 {
	return s.RightOffsetM - s.LeftOffsetM
}

// Config is the implement layout and debounce tuning, fixed at setup.
type Config struct {
	Sections []SectionConfig `json:"sections" mapstructure:"sections"`

	// OnDelaySec and OffDelaySec are how long a boundary condition must
	// hold continuously before a section in Auto switches. Measured in
	// accumulated dt, never wall-clock.
	OnDelaySec  float64 `json:"onDelaySec" mapstructure:"onDelaySec"`
	OffDelaySec float64 `json:"offDelaySec" mapstructure:"offDelaySec"`
}

// Validate rejects section layouts and timer settings that would mask
// operator misconfiguration.
func (c Config) Validate() error {
	if len(c.Sections) == 0 {
		return fmt.Errorf("%w: no sections", ErrInvalidConfig)
	}
	if c.OnDelaySec < 0 || c.OffDelaySec < 0 {
		return fmt.Errorf("%w: negative debounce delay", ErrInvalidConfig)
	}
	for i, s := range c.Sections {
		if s.Width() <= 0 {
			return fmt.Errorf("%w: section %d has non-positive width", ErrInvalidConfig, i)
		}
	}
	return nil
}
