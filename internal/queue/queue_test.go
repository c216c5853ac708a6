package queue

import (
	"sync"
	"testing"
)

func TestQueue_PushAndLen(t *testing.T) {
	q := New[int]()
	if q.Len() != 0 {
		t.Fatalf("len = %d, want 0", q.Len())
	}
	q.Push(1)
	q.Push(2, 3)
	if q.Len() != 3 {
		t.Errorf("len = %d, want 3", q.Len())
	}
}

func TestQueue_DrainReturnsInOrder(t *testing.T) {
	q := New[string]()
	q.Push("a", "b", "c")

	got := q.Drain()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("drain = %v, want [a b c]", got)
	}
	if q.Len() != 0 {
		t.Errorf("len after drain = %d, want 0", q.Len())
	}
	if more := q.Drain(); len(more) != 0 {
		t.Errorf("second drain = %v, want empty", more)
	}
}

func TestQueue_DrainedSliceIsDetached(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)

	got := q.Drain()
	q.Push(3)

	if len(got) != 2 {
		t.Fatalf("drain len = %d, want 2", len(got))
	}
	if q.Len() != 1 {
		t.Errorf("len = %d, want 1", q.Len())
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)
	q.Clear()
	if q.Len() != 0 {
		t.Errorf("len after clear = %d, want 0", q.Len())
	}
}

func TestQueue_ConcurrentPushers(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(j)
			}
		}()
	}
	wg.Wait()
	if q.Len() != 800 {
		t.Errorf("len = %d, want 800", q.Len())
	}
}

func TestQueue_ConcurrentDrainLosesNothing(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		q.Push(i)
	}

	var wg sync.WaitGroup
	results := make(chan []int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.Drain()
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for r := range results {
		total += len(r)
	}
	if total != 100 {
		t.Errorf("total drained = %d, want 100", total)
	}
}
