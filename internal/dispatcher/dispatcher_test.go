package dispatcher

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *memLogger) log(level, msg string) {
	l.mu.Lock()
	l.lines = append(l.lines, level+": "+msg)
	l.mu.Unlock()
}

func (l *memLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg) }
func (l *memLogger) Info(msg string, kv ...any)  { l.log("INFO", msg) }
func (l *memLogger) Error(msg string, kv ...any) { l.log("ERROR", msg) }

func (l *memLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *memLogger) {
	t.Helper()
	logger := &memLogger{}
	d, err := New(logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, logger
}

func TestDispatch_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":ECHO:", func(e Event) (any, error) {
		return e.Args[0], nil
	})

	result, err := d.Dispatch(Event{Command: ":ECHO:", Args: []string{"hello"}})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result != "hello" {
		t.Errorf("result = %v, want hello", result)
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)
	if _, err := d.Dispatch(Event{Command: ":NOPE:"}); err == nil {
		t.Error("expected error for unregistered command")
	}
}

func TestHasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register(":FIX:", func(Event) (any, error) { return nil, nil })

	if !d.HasHandler(":FIX:") {
		t.Error("registered command not found")
	}
	if d.HasHandler(":LINE:") {
		t.Error("unregistered command reported as present")
	}
}

func TestBuffered_RepliesQueuedAndProcessesAsync(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var handled atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	d.Register(":FIX:", func(Event) (any, error) {
		handled.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(16))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Command: ":FIX:"})
		if err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
		if result != "queued" {
			t.Errorf("result = %v, want queued", result)
		}
	}
	wg.Wait()

	if handled.Load() != 3 {
		t.Errorf("handled = %d, want 3", handled.Load())
	}
}

func TestBuffered_DropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	release := make(chan struct{})
	d.Register(":SLOW:", func(Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(1))
	defer close(release)

	// First event occupies the worker, second fills the queue. The
	// worker may not have picked up the first yet, so allow one more
	// before requiring a drop.
	d.Dispatch(Event{Command: ":SLOW:"})
	d.Dispatch(Event{Command: ":SLOW:"})
	d.Dispatch(Event{Command: ":SLOW:"})

	if _, err := d.Dispatch(Event{Command: ":SLOW:"}); err == nil {
		t.Error("expected queue-full error")
	}
}

func TestBuffered_BlockingWaitsForRoom(t *testing.T) {
	d, _ := newTestDispatcher(t)

	release := make(chan struct{})
	d.Register(":SLOW:", func(Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(1), Blocking())

	// The worker takes the first event and parks in the handler; the
	// second waits in the queue.
	d.Dispatch(Event{Command: ":SLOW:"})
	d.Dispatch(Event{Command: ":SLOW:"})

	blocked := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":SLOW:"})
		close(blocked)
	}()

	select {
	case <-blocked:
		t.Error("dispatch returned; expected it to block on the full queue")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-blocked
}

func TestLogged_RecordsFailure(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":BAD:", func(Event) (any, error) {
		return nil, errors.New("boom")
	}, Logged())

	if _, err := d.Dispatch(Event{Command: ":BAD:"}); err == nil {
		t.Fatal("expected handler error to pass through")
	}
	if !logger.contains("ERROR: command failed") {
		t.Error("failure was not logged")
	}
}

func TestLogged_RecordsSuccess(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":OK:", func(Event) (any, error) { return "done", nil }, Logged())

	result, err := d.Dispatch(Event{Command: ":OK:"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result != "done" {
		t.Errorf("result = %v, want done", result)
	}
	if !logger.contains("DEBUG: command handled") {
		t.Error("success was not logged")
	}
}
