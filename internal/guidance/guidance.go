// Package guidance models the reference path the vehicle tracks: a straight
// AB line extended infinitely for parallel passes, or a recorded curve of
// sampled points. Both variants project a vehicle pose to a signed
// cross-track error, a heading error and the local reference heading.
//
// Sign convention: cross-track error is positive when the vehicle is to the
// right of the path, looking along the path direction.
package guidance

import (
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// Line is a reference path that can project a pose onto itself.
type Line interface {
	// Project returns the guidance error for the given pose.
	Project(pose core.Pose) (core.GuidanceError, error)
}
