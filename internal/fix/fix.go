// Package fix delivers position fixes to the control loop. Fixes may
// arrive on an I/O goroutine; the loop reads them through a single-writer,
// single-reader latest-pose buffer so a tick always consumes the most
// recent complete pose and never a partially written one.
package fix

import (
	"sync/atomic"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// Source is what the control loop pulls its pose from at tick start.
type Source interface {
	// Latest returns the most recent complete pose, and false if no fix
	// has arrived yet.
	Latest() (core.Pose, bool)
}

// Buffer is an atomically swapped latest-pose handoff. Publish replaces
// the whole pose; Latest always observes a complete one. No locks, so the
// tick path never blocks on fix delivery.
type Buffer struct {
	pose atomic.Pointer[core.Pose]
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Publish stores a complete pose. Single writer.
func (b *Buffer) Publish(p core.Pose) {
	b.pose.Store(&p)
}

// Latest returns the most recently published pose.
func (b *Buffer) Latest() (core.Pose, bool) {
	p := b.pose.Load()
	if p == nil {
		return core.Pose{}, false
	}
	return *p, true
}
