// pkg/core/guidance.go
package core

// GuidanceError is the result of projecting a pose onto the reference path.
// CrossTrack is the signed perpendicular distance in metres, positive when
// the vehicle is to the right of the path. Heading is the vehicle heading
// minus the local path heading, normalized to (-pi, pi].
type GuidanceError struct {
	CrossTrack       float64 `json:"crossTrack"`
	Heading          float64 `json:"heading"`
	ReferenceHeading float64 `json:"referenceHeading"`
}

// SteerCommand is the bounded steering output of one tick.
// AngleDeg is in degrees, clamped to the configured maximum.
type SteerCommand struct {
	AngleDeg float64 `json:"angleDeg"`
}
