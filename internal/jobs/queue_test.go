package jobs

import (
	"testing"
	"time"
)

func TestReadyQueueOrdersByPriorityThenAge(t *testing.T) {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	q := newReadyQueue()
	q.push("old-low", 1, base)
	q.push("new-high", 5, base.Add(time.Minute))
	q.push("old-high", 5, base)
	q.push("mid", 3, base)

	want := []string{"old-high", "new-high", "mid", "old-low"}
	for _, expected := range want {
		id, ok := q.pop()
		if !ok {
			t.Fatalf("queue drained early, expected %s", expected)
		}
		if id != expected {
			t.Fatalf("pop = %s, want %s", id, expected)
		}
	}
	if _, ok := q.pop(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestReadyQueueBreaksTiesBySubmissionOrder(t *testing.T) {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	q := newReadyQueue()
	q.push("first", 2, base)
	q.push("second", 2, base)

	id, _ := q.pop()
	if id != "first" {
		t.Fatalf("pop = %s, want first", id)
	}
}
