package fix

import (
	"log/slog"

	"github.com/Xyntexx/AgOpenGPS/internal/geo"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// GeodeticFix is a position fix as delivered by the GNSS layer, before
// conversion to the local plane.
type GeodeticFix struct {
	Point      geo.GeoPoint
	HeadingRad float64
	SpeedMS    float64
	IsReverse  bool
}

// Adapter converts geodetic fixes to local-plane poses and publishes them
// to a Buffer. The first fix of the session anchors the local plane, so
// the session origin maps to (0, 0).
type Adapter struct {
	buf    *Buffer
	plane  *geo.LocalPlane
	logger *slog.Logger
}

// NewAdapter creates an adapter publishing into buf.
func NewAdapter(buf *Buffer, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{buf: buf, logger: logger}
}

// Publish converts one geodetic fix and hands it to the buffer. A fix that
// falls implausibly far from the plane origin is dropped and logged rather
// than steering the vehicle from a corrupt position.
func (a *Adapter) Publish(f GeodeticFix) error {
	if a.plane == nil {
		a.plane = geo.NewLocalPlane(f.Point)
		a.logger.Info("local plane anchored",
			"lon", f.Point.Longitude, "lat", f.Point.Latitude)
	}
	pt, err := a.plane.ToLocal(f.Point)
	if err != nil {
		a.logger.Error("dropping fix", "error", err)
		return err
	}
	a.buf.Publish(core.Pose{
		Position:  pt,
		Heading:   geo.NormalizeHeading(f.HeadingRad),
		Speed:     f.SpeedMS,
		IsReverse: f.IsReverse,
	})
	return nil
}

// Plane returns the anchored local plane, or nil before the first fix.
func (a *Adapter) Plane() *geo.LocalPlane {
	return a.plane
}
