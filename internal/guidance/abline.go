package guidance

import (
	"errors"
	"math"

	"github.com/Xyntexx/AgOpenGPS/internal/geo"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// ErrCoincidentPoints is returned when an AB line is defined by two
// identical points.
var ErrCoincidentPoints = errors.New("AB line points are coincident")

// ABLine is a straight reference line through an origin at a fixed
// heading, conceptually infinite in both directions. Shift selects a
// parallel pass offset by whole tool widths.
type ABLine struct {
	origin    core.Point
	heading   float64
	toolWidth float64
	pass      int
}

// NewABLine builds a line from an origin point and heading (radians).
func NewABLine(origin core.Point, heading, toolWidth float64) *ABLine {
	return &ABLine{
		origin:    origin,
		heading:   geo.NormalizeHeading(heading),
		toolWidth: toolWidth,
	}
}

// NewABLineFromPoints builds a line through points A and B, headed from A
// toward B.
func NewABLineFromPoints(a, b core.Point, toolWidth float64) (*ABLine, error) {
	if a == b {
		return nil, ErrCoincidentPoints
	}
	return NewABLine(a, geo.Bearing(a, b), toolWidth), nil
}

// Heading returns the line heading in [0, 2*pi).
func (l *ABLine) Heading() float64 {
	return l.heading
}

// Pass returns the active parallel pass number.
func (l *ABLine) Pass() int {
	return l.pass
}

// Shift returns a copy of the line on the given parallel pass. Pass 0 is
// the original line; positive passes are to the right of it.
func (l *ABLine) Shift(pass int) *ABLine {
	shifted := *l
	shifted.pass = pass
	return &shifted
}

// Project returns the signed perpendicular distance to the active pass
// line and the heading error against the line heading.
func (l *ABLine) Project(pose core.Pose) (core.GuidanceError, error) {
	origin := l.origin
	if l.pass != 0 {
		origin = geo.PerpPoint(origin, l.heading, float64(l.pass)*l.toolWidth)
	}

	dx := pose.Position.X - origin.X
	dy := pose.Position.Y - origin.Y

	// Projection of the offset vector onto the line's right-hand normal
	// (cos h, -sin h) gives the signed cross-track distance.
	crossTrack := dx*math.Cos(l.heading) - dy*math.Sin(l.heading)

	return core.GuidanceError{
		CrossTrack:       crossTrack,
		Heading:          geo.NormalizeDelta(pose.Heading - l.heading),
		ReferenceHeading: l.heading,
	}, nil
}
