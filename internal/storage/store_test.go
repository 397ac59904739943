package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Thomah/le-ptit-terminal/internal/eventbrite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRoster(eventID string, names ...string) *eventbrite.Roster {
	attendees := make([]eventbrite.Attendee, 0, len(names))
	for _, name := range names {
		attendees = append(attendees, eventbrite.Attendee{
			Profile: eventbrite.Profile{FirstName: name, LastName: "Test"},
			Created: "2026-08-01T10:00:00Z",
		})
	}
	return &eventbrite.Roster{
		EventID:   eventID,
		EventName: "Maraude " + eventID,
		EventDate: "12/09/2026",
		EventURL:  "https://evt.example/" + eventID,
		Attendees: attendees,
		FetchedAt: time.Now().UTC(),
	}
}

func TestLatestOnEmptyStoreReturnsErrNoSnapshot(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	_, err := store.Latest(context.Background())
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got: %v", err)
	}
}

func TestSaveThenLatestRoundTripsAttendeeOrder(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testRoster("ev-1", "Alice", "Bob", "Chloé")); err != nil {
		t.Fatalf("save: %v", err)
	}

	roster, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if roster.EventID != "ev-1" || roster.EventDate != "12/09/2026" {
		t.Fatalf("unexpected roster metadata: %+v", roster)
	}
	want := []string{"Alice", "Bob", "Chloé"}
	if len(roster.Attendees) != len(want) {
		t.Fatalf("expected %d attendees, got %d", len(want), len(roster.Attendees))
	}
	for i := range want {
		if roster.Attendees[i].Profile.FirstName != want[i] {
			t.Fatalf("attendee order not preserved: %v", roster.Attendees)
		}
	}
}

func TestLatestReturnsMostRecentSave(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testRoster("ev-1", "Alice")); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.Save(ctx, testRoster("ev-2", "Denis")); err != nil {
		t.Fatalf("save second: %v", err)
	}

	roster, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if roster.EventID != "ev-2" {
		t.Fatalf("expected latest snapshot ev-2, got %q", roster.EventID)
	}
}

func TestPruneKeepsMostRecent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"ev-1", "ev-2", "ev-3"} {
		if err := store.Save(ctx, testRoster(id, "Alice")); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if err := store.Prune(ctx, 1); err != nil {
		t.Fatalf("prune: %v", err)
	}

	roster, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("latest after prune: %v", err)
	}
	if roster.EventID != "ev-3" {
		t.Fatalf("expected ev-3 to survive prune, got %q", roster.EventID)
	}

	var count int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 snapshot after prune, got %d", count)
	}
}
