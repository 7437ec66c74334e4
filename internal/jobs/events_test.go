package jobs

import "testing"

func TestEventBusAssignsSequence(t *testing.T) {
	bus := NewEventBus(10)

	first := bus.Publish(Event{JobID: "j1", Type: EventTypeJobUpdate})
	second := bus.Publish(Event{JobID: "j1", Type: EventTypeJobUpdate})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("unexpected sequences: %d, %d", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be assigned")
	}
}

func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(10)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{JobID: "j1"})
	}

	events := bus.Since(3)
	if len(events) != 2 {
		t.Fatalf("expected 2 events after seq 3, got %d", len(events))
	}
	if events[0].Seq != 4 || events[1].Seq != 5 {
		t.Fatalf("unexpected sequences: %d, %d", events[0].Seq, events[1].Seq)
	}
}

func TestEventBusTrimsToCapacity(t *testing.T) {
	bus := NewEventBus(3)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{JobID: "j1"})
	}

	events := bus.Since(0)
	if len(events) != 3 {
		t.Fatalf("expected buffer capped at 3, got %d", len(events))
	}
	if events[0].Seq != 3 {
		t.Fatalf("expected oldest surviving seq 3, got %d", events[0].Seq)
	}
}

func TestEventBusFiltersByUser(t *testing.T) {
	bus := NewEventBus(10)
	bus.Emit("u1", Event{JobID: "a"})
	bus.Emit("u2", Event{JobID: "b"})
	bus.Emit("u1", Event{JobID: "c"})

	events := bus.SinceForUser("u1", 0)
	if len(events) != 2 {
		t.Fatalf("expected 2 events for u1, got %d", len(events))
	}
	if events[0].JobID != "a" || events[1].JobID != "c" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
