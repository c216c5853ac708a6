package geo

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// ErrDegenerateRing is returned when a polygon ring has fewer than 3
// distinct points.
var ErrDegenerateRing = errors.New("polygon ring needs at least 3 points")

// Boundary is the field membership service: a set of allowed polygons
// (the workable area) minus a set of excluded polygons (obstacles,
// headland exclusions). A point is a member when it lies inside at least
// one allowed polygon and inside no excluded polygon.
type Boundary struct {
	allowed  []geom.Polygon
	excluded []geom.Polygon
}

// NewBoundary builds a Boundary from allowed and excluded polygons.
func NewBoundary(allowed, excluded []geom.Polygon) *Boundary {
	return &Boundary{allowed: allowed, excluded: excluded}
}

// Contains reports membership of a local-plane point.
func (b *Boundary) Contains(p core.Point) bool {
	pt := pointGeom(p)
	inAllowed := false
	for i := range b.allowed {
		if geom.Intersects(b.allowed[i].AsGeometry(), pt) {
			inAllowed = true
			break
		}
	}
	if !inAllowed {
		return false
	}
	for i := range b.excluded {
		if geom.Intersects(b.excluded[i].AsGeometry(), pt) {
			return false
		}
	}
	return true
}

// PolygonFromRing builds a validated polygon from an open ring of
// local-plane points. The ring is closed automatically.
func PolygonFromRing(pts []core.Point) (geom.Polygon, error) {
	if len(pts) < 3 {
		return geom.Polygon{}, ErrDegenerateRing
	}
	flat := make([]float64, 0, (len(pts)+1)*2)
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	// close the ring
	flat = append(flat, pts[0].X, pts[0].Y)

	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ring})
	if err := poly.Validate(); err != nil {
		return geom.Polygon{}, fmt.Errorf("invalid boundary ring: %w", err)
	}
	return poly, nil
}

func pointGeom(p core.Point) geom.Geometry {
	return geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: p.X, Y: p.Y},
	}).AsGeometry()
}
