// pkg/core/types.go
package core

import "math"

// Point is a position in the local tangent plane.
// X is easting and Y is northing, both in metres. Geodetic coordinates
// never appear in this package; conversion happens at the fix boundary.
type Point struct {
	X float64 `json:"x"` // easting
	Y float64 `json:"y"` // northing
}

// DistanceTo returns the Euclidean distance to other in metres.
func (p Point) DistanceTo(other Point) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// DistanceSquaredTo returns the squared Euclidean distance to other.
// Used by nearest-point scans where the ordering is all that matters.
func (p Point) DistanceSquaredTo(other Point) float64 {
	dx := other.X - p.X
	dy := other.Y - p.Y
	return dx*dx + dy*dy
}

// Pose is the vehicle state consumed by the guidance loop each tick.
// Heading is in radians, 0 = north, clockwise positive. Speed is m/s
// and stays positive in reverse; IsReverse carries the direction.
type Pose struct {
	Position  Point   `json:"position"`
	Heading   float64 `json:"heading"`
	Speed     float64 `json:"speed"`
	IsReverse bool    `json:"isReverse"`
}
