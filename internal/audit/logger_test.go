package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestLogger(sink Sink) *Logger {
	return NewLogger(zerolog.Nop(), sink)
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	l := newTestLogger(nil)
	l.Record(context.Background(), Event{EventType: EventToolCall, Action: "getOrder"})

	recent := l.Recent(1)
	if len(recent) != 1 {
		t.Fatalf("expected 1 event, got %d", len(recent))
	}
	if recent[0].EventID == uuid.Nil {
		t.Fatalf("expected a generated event ID")
	}
	if recent[0].OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be stamped")
	}
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	l := newTestLogger(nil)
	l.Record(context.Background(), Event{Action: "first"})
	l.Record(context.Background(), Event{Action: "second"})
	l.Record(context.Background(), Event{Action: "third"})

	recent := l.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if recent[0].Action != "third" || recent[1].Action != "second" {
		t.Fatalf("expected newest-first order, got %v, %v", recent[0].Action, recent[1].Action)
	}
}

func TestRingBufferDropsOldestOnceFull(t *testing.T) {
	l := newTestLogger(nil)
	l.maxEvents = 3
	for i := 0; i < 5; i++ {
		l.Record(context.Background(), Event{Action: "evt"})
	}
	if len(l.events) != 3 {
		t.Fatalf("expected ring buffer bounded to 3, got %d", len(l.events))
	}
}

type failingSink struct{ calls chan struct{} }

func (f *failingSink) Put(ctx context.Context, event Event) error {
	f.calls <- struct{}{}
	return errors.New("sink unavailable")
}

func TestRecordDoesNotBlockOnFailingSink(t *testing.T) {
	sink := &failingSink{calls: make(chan struct{}, 1)}
	l := newTestLogger(sink)
	l.Record(context.Background(), Event{Action: "createOrder"})

	select {
	case <-sink.calls:
	case <-time.After(time.Second):
		t.Fatalf("expected sink.Put to be invoked asynchronously")
	}
}
