package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/Xyntexx/AgOpenGPS/internal/channel"
	"github.com/Xyntexx/AgOpenGPS/pkg/streaming"
)

const (
	sendChSize   = 10_000
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// connection manages a WebSocket connection with a single write goroutine.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh *channel.Pipe[[]byte]
	ackCh  chan streaming.AckMessage
	done   chan struct{} // closed on shutdown
	closed bool

	wsURL  string
	secret string

	// cached start_run message for reconnect replay
	cachedStartMsg []byte

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh: channel.New[[]byte](sendChSize),
		ackCh:  make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// dial connects to the viewer server and starts the read/write loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop()
	go c.readLoop()
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	header := map[string][]string{}
	if c.secret != "" {
		header["Authorization"] = []string{"Bearer " + c.secret}
	}
	conn, _, err := ws.DefaultDialer.Dial(c.wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.wsURL, err)
	}
	return conn, nil
}

// send pushes a message to the write loop, dropping when the buffer is
// full. Tick traffic is high-rate and a lost frame is harmless.
func (c *connection) send(data []byte) {
	if !c.sendCh.TrySend(data) {
		c.logger.Warn("websocket send buffer full, dropping message")
	}
}

// sendAndWait pushes a message and blocks for the matching ack.
func (c *connection) sendAndWait(data []byte, msgType string, timeout time.Duration) error {
	c.send(data)
	deadline := time.After(timeout)
	for {
		select {
		case ack := <-c.ackCh:
			if ack.Type != msgType {
				continue
			}
			if !ack.OK {
				return fmt.Errorf("server rejected %s: %s", msgType, ack.Err)
			}
			return nil
		case <-deadline:
			return fmt.Errorf("timeout waiting for %s ack", msgType)
		case <-c.done:
			return fmt.Errorf("connection closed waiting for %s ack", msgType)
		}
	}
}

func (c *connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh.Receive():
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Error("websocket write failed", "error", err)
				c.reconnect()
			}
		}
	}
}

func (c *connection) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			time.Sleep(time.Second)
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Error("websocket read failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(data, &ack); err != nil {
			c.logger.Warn("unparseable server message", "error", err)
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
		}
	}
}

// reconnect redials with jittered backoff and replays the cached start_run
// message so the server can reassociate the stream.
func (c *connection) reconnect() {
	backoff := time.Second
	for attempt := 0; attempt < maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		default:
		}

		conn, err := c.dialOnce()
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			start := c.cachedStartMsg
			c.mu.Unlock()
			if start != nil {
				c.send(start)
			}
			c.logger.Info("websocket reconnected", "attempts", attempt+1)
			return
		}

		sleep := backoff + time.Duration(rand.Int63n(int64(backoff/2)))
		if sleep > maxBackoff {
			sleep = maxBackoff
		}
		time.Sleep(sleep)
		backoff *= 2
	}
	c.logger.Error("websocket reconnect gave up", "attempts", maxReconnect)
}

func (c *connection) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
