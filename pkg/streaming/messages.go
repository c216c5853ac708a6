// Package streaming defines the wire envelopes the websocket backend sends
// to a live coverage viewer.
package streaming

import (
	"encoding/json"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// Message types.
const (
	TypeStartRun = "start_run"
	TypeTick     = "tick"
	TypeEndRun   = "end_run"
	TypeAck      = "ack"
)

// Envelope wraps every message with its type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StartRunPayload announces a new guidance run.
type StartRunPayload struct {
	Run *core.Run `json:"run"`
}

// EndRunPayload closes a run with its coverage statistics.
type EndRunPayload struct {
	Ticks          uint64  `json:"ticks"`
	Elapsed        float64 `json:"elapsed"`
	RawAreaM2      float64 `json:"rawAreaM2"`
	NetAreaM2      float64 `json:"netAreaM2"`
	OverlapPercent float64 `json:"overlapPercent"`
}

// AckMessage is the server's acknowledgement of a stateful message.
type AckMessage struct {
	Type string `json:"type"`
	OK   bool   `json:"ok"`
	Err  string `json:"error,omitempty"`
}
