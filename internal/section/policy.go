package section

import (
	"fmt"

	"github.com/Xyntexx/AgOpenGPS/internal/coverage"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// OverlapPolicy decides whether a section that is inside the working
// boundary may activate, given what has already been covered. The original
// system makes this configuration-dependent, so it is pluggable here.
type OverlapPolicy interface {
	// AllowActivation is queried with the section's midpoint each tick
	// the section is inside the boundary.
	AllowActivation(mid core.Point, covered *coverage.Record) bool
}

// IgnoreOverlap activates regardless of prior coverage. Default.
type IgnoreOverlap struct{}

func (IgnoreOverlap) AllowActivation(core.Point, *coverage.Record) bool { return true }

// SuppressOnOverlap treats already-applied ground like an excluded region:
// a section over covered ground will not (re)activate.
type SuppressOnOverlap struct{}

func (SuppressOnOverlap) AllowActivation(mid core.Point, covered *coverage.Record) bool {
	if covered == nil {
		return true
	}
	return !covered.Covers(mid)
}

// PolicyByName maps a config string to a policy implementation.
func PolicyByName(name string) (OverlapPolicy, error) {
	switch name {
	case "", "ignore":
		return IgnoreOverlap{}, nil
	case "suppress":
		return SuppressOnOverlap{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown overlap policy %q", ErrInvalidConfig, name)
	}
}
