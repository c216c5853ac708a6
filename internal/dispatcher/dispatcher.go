// Package dispatcher routes control-link commands to their handlers.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Xyntexx/AgOpenGPS/internal/dispatcher"

// Event is one command off the control link.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc consumes an event and returns a reply for the link.
type HandlerFunc func(Event) (any, error)

// Logger is the subset of slog the dispatcher needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type regOpts struct {
	queueSize int
	blocking  bool
	logged    bool
}

// Option adjusts how a handler is registered.
type Option func(*regOpts)

// Buffered runs the handler on its own goroutine behind a queue of the
// given size. Dispatch then replies "queued" without waiting.
func Buffered(size int) Option {
	return func(o *regOpts) { o.queueSize = size }
}

// Blocking makes a buffered handler wait for queue room instead of
// dropping the event.
func Blocking() Option {
	return func(o *regOpts) { o.blocking = true }
}

// Logged wraps the handler with debug/error logging and timing.
func Logged() Option {
	return func(o *regOpts) { o.logged = true }
}

// Dispatcher maps command names to handlers. Registration is not safe
// concurrently with Dispatch; register everything up front.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueDepth metric.Int64ObservableGauge
	handled    metric.Int64Counter
	dropped    metric.Int64Counter

	mu     sync.RWMutex
	queues map[string]chan Event
}

// New builds a dispatcher reporting queue metrics through the global
// OTel meter (a no-op meter when none is configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]chan Event),
		logger:   logger,
	}
	if err := d.initMetrics(otel.Meter(instrumentationName)); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) initMetrics(m metric.Meter) error {
	var err error

	d.queueDepth, err = m.Int64ObservableGauge(
		"link.queue.depth",
		metric.WithDescription("Buffered events awaiting their handler"),
	)
	if err != nil {
		return fmt.Errorf("creating queue depth gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for cmd, q := range d.queues {
			o.ObserveInt64(d.queueDepth, int64(len(q)),
				metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, d.queueDepth)
	if err != nil {
		return fmt.Errorf("registering queue depth callback: %w", err)
	}

	d.handled, err = m.Int64Counter(
		"link.commands.handled",
		metric.WithDescription("Commands completed by a handler"),
	)
	if err != nil {
		return fmt.Errorf("creating handled counter: %w", err)
	}
	d.dropped, err = m.Int64Counter(
		"link.commands.dropped",
		metric.WithDescription("Commands dropped on a full queue"),
	)
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}
	return nil
}

// Register binds a handler to a command name.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var o regOpts
	for _, opt := range opts {
		opt(&o)
	}
	if o.queueSize > 0 {
		h = d.queued(command, o.queueSize, o.blocking, h)
	}
	if o.logged {
		h = d.logged(command, h)
	}
	d.handlers[command] = h
}

// Dispatch runs the handler registered for the event's command.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler reports whether a command is registered.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

func (d *Dispatcher) queued(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	q := make(chan Event, size)

	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("command", command))
	go func() {
		for e := range q {
			h(e)
			d.handled.Add(context.Background(), 1, attrs)
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			q <- e
			return "queued", nil
		}
	}
	return func(e Event) (any, error) {
		select {
		case q <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, attrs)
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		result, err := h(e)
		if err != nil {
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("command handled", "command", command, "duration", time.Since(start))
		return result, nil
	}
}
