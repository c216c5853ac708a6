// pkg/core/section.go
package core

// SectionMode is the operator-requested mode for one implement section.
type SectionMode string

const (
	SectionOff  SectionMode = "off"
	SectionAuto SectionMode = "auto"
	SectionOn   SectionMode = "on"
)

// SectionState is the per-tick snapshot of one implement section.
type SectionState struct {
	Index      int         `json:"index"`
	Mode       SectionMode `json:"mode"`
	IsOn       bool        `json:"isOn"`
	InBoundary bool        `json:"inBoundary"`
}

// CoverageQuad is one covered quadrilateral: the footprint of one section
// over one tick while it was applying. Corners are ordered rear-left,
// rear-right, front-right, front-left so they form a simple ring.
type CoverageQuad struct {
	Section int      `json:"section"`
	Tick    uint64   `json:"tick"`
	Corners [4]Point `json:"corners"`
}
