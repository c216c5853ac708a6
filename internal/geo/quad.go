package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// QuadPolygon converts a coverage quadrilateral into a simplefeatures
// polygon for area and overlap computation.
func QuadPolygon(q core.CoverageQuad) (geom.Polygon, error) {
	flat := make([]float64, 0, 10)
	for _, c := range q.Corners {
		flat = append(flat, c.X, c.Y)
	}
	flat = append(flat, q.Corners[0].X, q.Corners[0].Y)

	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ring})
	if err := poly.Validate(); err != nil {
		return geom.Polygon{}, fmt.Errorf("invalid coverage quad: %w", err)
	}
	return poly, nil
}

// QuadArea returns the area of a coverage quad via the shoelace formula.
// Unlike QuadPolygon it never fails, which suits per-tick diagnostics.
func QuadArea(q core.CoverageQuad) float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		a := q.Corners[i]
		b := q.Corners[(i+1)%4]
		sum += a.X*b.Y - b.X*a.Y
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// UnionArea returns the area of the union of the given quads, so overlap
// between quads is counted once. Quads that fail to form a valid polygon
// (zero distance travelled that tick) contribute nothing.
func UnionArea(quads []core.CoverageQuad) (float64, error) {
	var acc geom.Geometry
	havePoly := false
	for _, q := range quads {
		poly, err := QuadPolygon(q)
		if err != nil {
			continue
		}
		if !havePoly {
			acc = poly.AsGeometry()
			havePoly = true
			continue
		}
		merged, err := geom.Union(acc, poly.AsGeometry())
		if err != nil {
			return 0, fmt.Errorf("union of coverage quads: %w", err)
		}
		acc = merged
	}
	if !havePoly {
		return 0, nil
	}
	return acc.Area(), nil
}
