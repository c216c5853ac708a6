package geo

import (
	"errors"

	"github.com/wroge/wgs84"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// GEODETIC BOUNDARY
// The guidance core works exclusively in local-plane metres. Incoming GNSS
// fixes are geodetic, so the fix adapter converts through a LocalPlane
// anchored at the first fix of the session. Keeping GeoPoint a distinct
// type makes every conversion visible at the call site.

// ErrOutsideZone is returned when a fix falls outside the plane's UTM zone
// neighbourhood and the flat-plane assumption no longer holds.
var ErrOutsideZone = errors.New("fix too far from local plane origin")

// GeoPoint is a geodetic WGS84 coordinate in degrees.
type GeoPoint struct {
	Longitude float64
	Latitude  float64
}

// LocalPlane converts geodetic fixes to local tangent-plane metres.
// It projects through the UTM zone of its origin and subtracts the
// origin's projected coordinates, so the origin maps to (0, 0).
type LocalPlane struct {
	origin   GeoPoint
	originX  float64
	originY  float64
	forward  wgs84.Func
	utmZone  int
}

// maxPlaneExtent bounds how far from the origin the flat-plane conversion
// is trusted, in metres. Fields are far smaller than this.
const maxPlaneExtent = 100_000

// NewLocalPlane anchors a conversion plane at the given geodetic origin.
func NewLocalPlane(origin GeoPoint) *LocalPlane {
	zone := int((origin.Longitude+180)/6) + 1
	epsgCode := 32600 + zone
	if origin.Latitude < 0 {
		epsgCode = 32700 + zone
	}
	f := wgs84.EPSG().Transform(4326, epsgCode)
	x, y, _ := f(origin.Longitude, origin.Latitude, 0)
	return &LocalPlane{
		origin:  origin,
		originX: x,
		originY: y,
		forward: f,
		utmZone: zone,
	}
}

// Origin returns the geodetic anchor of the plane.
func (p *LocalPlane) Origin() GeoPoint {
	return p.origin
}

// ToLocal converts a geodetic point to local-plane metres.
func (p *LocalPlane) ToLocal(g GeoPoint) (core.Point, error) {
	x, y, _ := p.forward(g.Longitude, g.Latitude, 0)
	pt := core.Point{X: x - p.originX, Y: y - p.originY}
	if pt.X > maxPlaneExtent || pt.X < -maxPlaneExtent ||
		pt.Y > maxPlaneExtent || pt.Y < -maxPlaneExtent {
		return core.Point{}, ErrOutsideZone
	}
	return pt, nil
}
