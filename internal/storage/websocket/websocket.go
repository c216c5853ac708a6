// Package websocket streams guidance runs to a live coverage viewer. It
// implements storage.Backend: run boundaries are acknowledged by the
// server, tick records are fire-and-forget.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
	"github.com/Xyntexx/AgOpenGPS/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams run data over WebSocket.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the viewer server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the viewer server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and
// payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartRun announces the run and waits for the server ack. The message is
// cached for reconnect replay.
func (b *Backend) StartRun(run *core.Run) error {
	run.ID = 1
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: run})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout)
}

// RecordTick streams one tick record, fire-and-forget.
func (b *Backend) RecordTick(rec core.TickRecord) error {
	data, err := marshalEnvelope(streaming.TypeTick, rec)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// EndRun sends the closing statistics and waits for the server ack.
func (b *Backend) EndRun(summary core.RunSummary) error {
	data, err := marshalEnvelope(streaming.TypeEndRun, streaming.EndRunPayload{
		Ticks:          summary.Ticks,
		Elapsed:        summary.ElapsedSec,
		RawAreaM2:      summary.RawAreaM2,
		NetAreaM2:      summary.NetAreaM2,
		OverlapPercent: summary.OverlapPercent,
	})
	if err != nil {
		return err
	}

	err = b.conn.sendAndWait(data, streaming.TypeEndRun, ackTimeout)

	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}
