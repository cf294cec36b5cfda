package feed

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"escrow-service/internal/domain"
)

func seedFeed(t *testing.T, store *fakeStore, bodies ...[]byte) {
	t.Helper()
	p := newTestProjector(store, 10)
	for _, body := range bodies {
		if err := p.Handle(context.Background(), body); err != nil {
			t.Fatalf("seed Handle: %v", err)
		}
	}
}

func TestRecentRendersInRequestedLocale(t *testing.T) {
	store := newFakeStore()
	seedFeed(t, store, fundedBody(t, "evt-1", 7, 123450))
	r := NewReader(store, zerolog.Nop())

	tests := []struct {
		locale string
		want   string
	}{
		{"en", "1,234.50"},
		{"id", "1.234,50"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			entries, err := r.Recent(context.Background(), tt.locale, 10)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("entries: got %d want 1", len(entries))
			}
			if !strings.Contains(entries[0].Summary, tt.want) {
				t.Errorf("summary %q missing %q", entries[0].Summary, tt.want)
			}
		})
	}
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	store := newFakeStore()
	seedFeed(t, store,
		fundedBody(t, "evt-1", 1, 100),
		fundedBody(t, "evt-2", 2, 100),
		fundedBody(t, "evt-3", 3, 100),
	)
	r := NewReader(store, zerolog.Nop())

	entries, err := r.Recent(context.Background(), "en", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d want 2", len(entries))
	}
	if entries[0].EventID != "evt-3" || entries[1].EventID != "evt-2" {
		t.Fatalf("order: got [%s %s] want [evt-3 evt-2]", entries[0].EventID, entries[1].EventID)
	}
}

func TestRecentSkipsUnrenderableEntries(t *testing.T) {
	store := newFakeStore()
	seedFeed(t, store, fundedBody(t, "evt-1", 7, 250))

	// Entries written by older versions may no longer parse or render.
	retired := envelope(t, "mystery.kind", 7, map[string]any{})
	retired.ID = "evt-retired"
	retiredBody, err := json.Marshal(retired)
	if err != nil {
		t.Fatalf("marshal retired envelope: %v", err)
	}
	store.entries = append(store.entries, retiredBody, []byte("not json"))

	r := NewReader(store, zerolog.Nop())
	entries, err := r.Recent(context.Background(), "en", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].EventID != "evt-1" {
		t.Fatalf("entries: got %+v want only evt-1", entries)
	}
	if entries[0].Kind != domain.EventProjectFunded {
		t.Errorf("kind: got %q want %q", entries[0].Kind, domain.EventProjectFunded)
	}
}
