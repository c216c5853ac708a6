package guidance

import (
	"errors"
	"fmt"
	"math"

	"github.com/Xyntexx/AgOpenGPS/internal/geo"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// ErrCurveTooShort is returned when a curve has fewer than 2 points.
var ErrCurveTooShort = errors.New("curve needs at least 2 points")

const (
	// coarseStride is the sampling interval of the coarse nearest-point
	// scan. Bounds the cost of projection on long recorded curves.
	coarseStride = 10

	// refineWindow is the half-width of the exact scan around the coarse
	// result. Must exceed coarseStride so the true nearest point cannot
	// fall between coarse samples unseen.
	refineWindow = 12
)

// Curve is a recorded reference path: an ordered sequence of local-plane
// points with precomputed tangent headings. A curve marked as a loop wraps
// around; an open curve clamps projection to its endpoints.
type Curve struct {
	pts      []core.Point
	headings []float64
	loop     bool
}

// NewCurve builds a curve from ordered points. Tangent headings are the
// direction from each point's predecessor to its successor; endpoints of
// an open curve use their single adjacent segment.
func NewCurve(pts []core.Point, loop bool) (*Curve, error) {
	if len(pts) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrCurveTooShort, len(pts))
	}
	n := len(pts)
	headings := make([]float64, n)
	for i := range pts {
		prev, next := i-1, i+1
		if loop {
			prev = ((prev % n) + n) % n
			next = next % n
		} else {
			if prev < 0 {
				prev = 0
			}
			if next > n-1 {
				next = n - 1
			}
		}
		if pts[prev] == pts[next] {
			// degenerate neighbourhood, keep the previous tangent
			if i > 0 {
				headings[i] = headings[i-1]
			}
			continue
		}
		headings[i] = geo.Bearing(pts[prev], pts[next])
	}
	return &Curve{pts: pts, headings: headings, loop: loop}, nil
}

// Len returns the number of points on the curve.
func (c *Curve) Len() int {
	return len(c.pts)
}

// IsLoop reports whether the curve wraps around.
func (c *Curve) IsLoop() bool {
	return c.loop
}

// Project runs the two-stage nearest-point search: a coarse scan of every
// coarseStride-th point, then an exact scan of a refineWindow around the
// coarse hit, then perpendicular-foot interpolation on the two segments
// adjacent to the nearest point. Equal distances prefer the later index.
func (c *Curve) Project(pose core.Pose) (core.GuidanceError, error) {
	n := len(c.pts)
	p := pose.Position

	// coarse pass
	best := 0
	bestD := math.Inf(1)
	for i := 0; i < n; i += coarseStride {
		d := p.DistanceSquaredTo(c.pts[i])
		if d <= bestD {
			bestD = d
			best = i
		}
	}

	// refinement pass
	for j := best - refineWindow; j <= best+refineWindow; j++ {
		i := j
		if c.loop {
			i = ((j % n) + n) % n
		} else if j < 0 || j > n-1 {
			continue
		}
		d := p.DistanceSquaredTo(c.pts[i])
		if d <= bestD {
			bestD = d
			best = i
		}
	}

	// sub-segment interpolation on the segments adjacent to the nearest
	// point; the later segment wins distance ties
	type foot struct {
		point      core.Point
		refHeading float64
	}
	var (
		bestFoot  foot
		bestFootD = math.Inf(1)
		found     bool
	)
	for _, start := range []int{best - 1, best} {
		ai, bi := start, start+1
		if c.loop {
			ai = ((ai % n) + n) % n
			bi = bi % n
		} else if ai < 0 || bi > n-1 {
			continue
		}
		a, b := c.pts[ai], c.pts[bi]
		abx, aby := b.X-a.X, b.Y-a.Y
		len2 := abx*abx + aby*aby
		if len2 == 0 {
			// zero-length segment, expected on sloppy recordings
			continue
		}
		t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / len2
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		f := foot{
			point: core.Point{X: a.X + t*abx, Y: a.Y + t*aby},
			refHeading: geo.NormalizeHeading(
				c.headings[ai] + t*geo.NormalizeDelta(c.headings[bi]-c.headings[ai]),
			),
		}
		d := p.DistanceSquaredTo(f.point)
		if d <= bestFootD {
			bestFootD = d
			bestFoot = f
			found = true
		}
	}
	if !found {
		// both adjacent segments degenerate, fall back to the point itself
		bestFoot = foot{point: c.pts[best], refHeading: c.headings[best]}
	}

	// Signed cross-track: magnitude is the full distance to the foot (an
	// overshoot past an open end is not extrapolated), sign comes from
	// which side of the local tangent the vehicle sits on.
	dist := p.DistanceTo(bestFoot.point)
	side := (p.X-bestFoot.point.X)*math.Cos(bestFoot.refHeading) -
		(p.Y-bestFoot.point.Y)*math.Sin(bestFoot.refHeading)
	crossTrack := dist
	if side < 0 {
		crossTrack = -dist
	}

	return core.GuidanceError{
		CrossTrack:       crossTrack,
		Heading:          geo.NormalizeDelta(pose.Heading - bestFoot.refHeading),
		ReferenceHeading: bestFoot.refHeading,
	}, nil
}
