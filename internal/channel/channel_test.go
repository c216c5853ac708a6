package channel

import "testing"

func TestPipe_SendReceive(t *testing.T) {
	p := New[int](2)
	p.Send(1)
	p.Send(2)
	if p.Len() != 2 {
		t.Fatalf("len = %d, want 2", p.Len())
	}
	if got := <-p.Receive(); got != 1 {
		t.Errorf("first = %d, want 1", got)
	}
	if got := <-p.Receive(); got != 2 {
		t.Errorf("second = %d, want 2", got)
	}
}

func TestPipe_TrySendDropsWhenFull(t *testing.T) {
	p := New[string](1)
	if !p.TrySend("a") {
		t.Fatal("first TrySend should succeed")
	}
	if p.TrySend("b") {
		t.Error("TrySend into a full pipe should report false")
	}
	if got := <-p.Receive(); got != "a" {
		t.Errorf("got %q, want %q", got, "a")
	}
	if !p.TrySend("c") {
		t.Error("TrySend after drain should succeed")
	}
}

func TestPipe_CloseEndsRange(t *testing.T) {
	p := New[int](4)
	p.Send(1)
	p.Send(2)
	p.Close()

	sum := 0
	for v := range p.Receive() {
		sum += v
	}
	if sum != 3 {
		t.Errorf("sum = %d, want 3", sum)
	}
}
