package geo

import (
	"math"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// HEADINGS
// All headings in the local plane follow the navigation convention:
// 0 = north (+Y), clockwise positive, radians. The direction vector of a
// heading h is therefore (sin h, cos h).

// NormalizeHeading wraps a heading into [0, 2*pi).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 2*math.Pi)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}

// NormalizeDelta wraps an angular difference into (-pi, pi].
func NormalizeDelta(d float64) float64 {
	d = math.Mod(d, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// Bearing returns the heading from one point to another, in [0, 2*pi).
func Bearing(from, to core.Point) float64 {
	return NormalizeHeading(math.Atan2(to.X-from.X, to.Y-from.Y))
}

// Project moves a point by dist metres along the given heading.
func Project(p core.Point, heading, dist float64) core.Point {
	return core.Point{
		X: p.X + dist*math.Sin(heading),
		Y: p.Y + dist*math.Cos(heading),
	}
}

// PerpPoint offsets a point perpendicular to a heading. Positive dist is
// to the right of the direction of travel.
func PerpPoint(p core.Point, heading, dist float64) core.Point {
	return Project(p, heading+math.Pi/2, dist)
}
