// Package channel wraps a bounded channel as a drop-tolerant send queue.
package channel

// Pipe carries values from many producers to a single consumer. Send
// blocks when the buffer is full; TrySend drops instead, which is what
// high-rate telemetry producers want.
type Pipe[T any] struct {
	ch chan T
}

// New returns a pipe buffering up to size values.
func New[T any](size int) *Pipe[T] {
	return &Pipe[T]{ch: make(chan T, size)}
}

// Send enqueues v, blocking until there is room.
func (p *Pipe[T]) Send(v T) {
	p.ch <- v
}

// TrySend enqueues v if there is room and reports whether it did.
func (p *Pipe[T]) TrySend(v T) bool {
	select {
	case p.ch <- v:
		return true
	default:
		return false
	}
}

// Receive returns the consumer side.
func (p *Pipe[T]) Receive() <-chan T {
	return p.ch
}

// Len returns the number of buffered values.
func (p *Pipe[T]) Len() int {
	return len(p.ch)
}

// Close closes the pipe. Sending after Close panics, as with any channel.
func (p *Pipe[T]) Close() {
	close(p.ch)
}
