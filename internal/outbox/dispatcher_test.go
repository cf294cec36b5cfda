package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeStore struct {
	pending []Event
	sent    []string
	failed  []string
}

func (f *fakeStore) PendingEvents(ctx context.Context, limit int) ([]Event, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeStore) MarkSent(ctx context.Context, id string) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, id string, maxAttempts int) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeStore) ReplayEvent(ctx context.Context, id string) error { return nil }

func (f *fakeStore) FailedEvents(ctx context.Context, limit int) ([]Event, error) {
	return nil, nil
}

type fakePublisher struct {
	published map[string][]byte
	failKinds map[string]bool
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if f.failKinds[routingKey] {
		return errors.New("broker unavailable")
	}
	if f.published == nil {
		f.published = make(map[string][]byte)
	}
	f.published[routingKey] = body
	return nil
}

func testEvent(id, kind string) Event {
	return Event{
		ID:         id,
		ProjectID:  7,
		Kind:       kind,
		Payload:    json.RawMessage(`{"project_id":7}`),
		OccurredAt: time.Date(2026, time.May, 2, 8, 0, 0, 0, time.UTC),
		Status:     StatusPending,
	}
}

func TestProcessPendingPublishesAndSettles(t *testing.T) {
	store := &fakeStore{pending: []Event{
		testEvent("ev-1", "project.created"),
		testEvent("ev-2", "project.funded"),
	}}
	pub := &fakePublisher{}
	d := NewDispatcher(store, pub, zerolog.Nop())

	d.processPending(context.Background())

	if len(store.sent) != 2 || store.sent[0] != "ev-1" || store.sent[1] != "ev-2" {
		t.Fatalf("sent = %v, want [ev-1 ev-2]", store.sent)
	}
	if len(store.failed) != 0 {
		t.Fatalf("failed = %v, want none", store.failed)
	}

	body, ok := pub.published["project.funded"]
	if !ok {
		t.Fatal("project.funded not published")
	}
	var envelope Event
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.ID != "ev-2" || envelope.ProjectID != 7 || envelope.Kind != "project.funded" {
		t.Fatalf("envelope = %+v", envelope)
	}
}

func TestProcessPendingMarksFailuresAndContinues(t *testing.T) {
	store := &fakeStore{pending: []Event{
		testEvent("ev-1", "project.created"),
		testEvent("ev-2", "project.funded"),
	}}
	pub := &fakePublisher{failKinds: map[string]bool{"project.created": true}}
	d := NewDispatcher(store, pub, zerolog.Nop())

	d.processPending(context.Background())

	if len(store.failed) != 1 || store.failed[0] != "ev-1" {
		t.Fatalf("failed = %v, want [ev-1]", store.failed)
	}
	if len(store.sent) != 1 || store.sent[0] != "ev-2" {
		t.Fatalf("sent = %v, want [ev-2]", store.sent)
	}
}

func TestProcessPendingHonorsBatchSize(t *testing.T) {
	store := &fakeStore{pending: []Event{
		testEvent("ev-1", "project.created"),
		testEvent("ev-2", "project.funded"),
		testEvent("ev-3", "project.funded"),
	}}
	pub := &fakePublisher{}
	d := NewDispatcher(store, pub, zerolog.Nop()).WithBatchSize(2)

	d.processPending(context.Background())

	if len(store.sent) != 2 {
		t.Fatalf("sent %d events, want 2", len(store.sent))
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	d := NewDispatcher(store, &fakePublisher{}, zerolog.Nop()).WithInterval(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}
