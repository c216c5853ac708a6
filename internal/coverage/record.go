// Package coverage accumulates the applied-area geometry the section
// controller produces: one quadrilateral per section per tick while that
// section is applying. The record is append-only; a quad is immutable once
// appended. Readers that run concurrently with the control loop (renderers,
// statistics) take copy-on-read snapshots.
package coverage

import (
	"sync"

	"github.com/Xyntexx/AgOpenGPS/internal/geo"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// Record is the append-only coverage accumulator.
type Record struct {
	mu      sync.RWMutex
	quads   []core.CoverageQuad
	rawArea float64 // running sum, overlap counted per quad
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{}
}

// Append adds one covered quad and updates the raw-area sum.
func (r *Record) Append(q core.CoverageQuad) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quads = append(r.quads, q)
	r.rawArea += geo.QuadArea(q)
}

// Len returns the number of recorded quads.
func (r *Record) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.quads)
}

// Snapshot returns a copy of all recorded quads, safe to read while the
// control loop keeps appending.
func (r *Record) Snapshot() []core.CoverageQuad {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.CoverageQuad, len(r.quads))
	copy(out, r.quads)
	return out
}

// RawArea returns the diagnostic applied-area sum in square metres.
// Overlapped passes are counted each time they were applied.
func (r *Record) RawArea() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rawArea
}

// NetArea returns the true covered area: the union of all quads, with
// overlap counted once.
func (r *Record) NetArea() (float64, error) {
	return geo.UnionArea(r.Snapshot())
}

// OverlapPercent returns how much of the raw applied area was re-applied
// over already-covered ground, as a percentage of the raw area.
func (r *Record) OverlapPercent() (float64, error) {
	raw := r.RawArea()
	if raw == 0 {
		return 0, nil
	}
	net, err := r.NetArea()
	if err != nil {
		return 0, err
	}
	return (raw - net) / raw * 100, nil
}

// Covers reports whether a point lies inside any recorded quad. Used by
// the suppress-on-overlap section policy; a plain scan with a convex
// point-in-quad test keeps it allocation-free on the tick path.
func (r *Record) Covers(p core.Point) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.quads {
		if quadContains(&r.quads[i], p) {
			return true
		}
	}
	return false
}

// quadContains tests a convex quad by requiring the point on the same side
// of every edge.
func quadContains(q *core.CoverageQuad, p core.Point) bool {
	var pos, neg bool
	for i := 0; i < 4; i++ {
		a := q.Corners[i]
		b := q.Corners[(i+1)%4]
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if cross > 0 {
			pos = true
		} else if cross < 0 {
			neg = true
		}
		if pos && neg {
			return false
		}
	}
	return true
}
