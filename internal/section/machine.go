package section

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// Request-mode events. The mode machine only tracks what the operator
// asked for; Auto's derived on/off state lives in the section itself.
const (
	eventRequestOff  = "request_off"
	eventRequestAuto = "request_auto"
	eventRequestOn   = "request_on"
)

// newModeMachine builds the Off/Auto/On request machine for one section.
// Manual Off and On take effect immediately in the callbacks; entering
// Auto starts from off and lets the debounce logic take over.
func newModeMachine(s *state) *fsm.FSM {
	return fsm.NewFSM(
		string(core.SectionAuto),
		fsm.Events{
			{Name: eventRequestOff, Src: []string{string(core.SectionAuto), string(core.SectionOn)}, Dst: string(core.SectionOff)},
			{Name: eventRequestAuto, Src: []string{string(core.SectionOff), string(core.SectionOn)}, Dst: string(core.SectionAuto)},
			{Name: eventRequestOn, Src: []string{string(core.SectionOff), string(core.SectionAuto)}, Dst: string(core.SectionOn)},
		},
		fsm.Callbacks{
			"enter_" + string(core.SectionOff): func(_ context.Context, _ *fsm.Event) {
				s.isOn = false
				s.resetTimers()
			},
			"enter_" + string(core.SectionOn): func(_ context.Context, _ *fsm.Event) {
				s.isOn = true
				s.resetTimers()
			},
			"enter_" + string(core.SectionAuto): func(_ context.Context, _ *fsm.Event) {
				s.isOn = false
				s.resetTimers()
			},
		},
	)
}

// eventForMode maps a requested mode to its machine event.
func eventForMode(mode core.SectionMode) (string, bool) {
	switch mode {
	case core.SectionOff:
		return eventRequestOff, true
	case core.SectionAuto:
		return eventRequestAuto, true
	case core.SectionOn:
		return eventRequestOn, true
	default:
		return "", false
	}
}
