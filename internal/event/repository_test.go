package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harshpatel0909/event-organizer-app/internal/apperr"
	"github.com/harshpatel0909/event-organizer-app/internal/favorite"
	"github.com/harshpatel0909/event-organizer-app/internal/models"
	"github.com/harshpatel0909/event-organizer-app/internal/remote"
)

func newTestRepos() (*Repository, *favorite.Repository, remote.Store) {
	store := remote.NewMemStore()
	favorites := favorite.NewRepository(store, nil)
	events := NewRepository(store, favorites)
	return events, favorites, store
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	events, _, _ := newTestRepos()

	_, err := events.Create(ctx, "u1", models.EventDraft{Title: "   ", Date: time.Now()})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank title, got %v", err)
	}

	_, err = events.Create(ctx, "", models.EventDraft{Title: "ok", Date: time.Now()})
	if !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("expected ErrAuth without principal, got %v", err)
	}
}

func TestCreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	events, _, _ := newTestRepos()

	feed, err := events.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer feed.Close()

	date := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	id, err := events.Create(ctx, "u1", models.EventDraft{
		Title:       "Standup",
		Description: "daily",
		Date:        date,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	evs := waitEvents(t, feed, func(evs []models.Event) bool { return len(evs) == 1 })
	got := evs[0]
	if got.ID != id || got.Title != "Standup" || got.Description != "daily" || !got.Date.Equal(date) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("createdAt not set")
	}
	if got.UpdatedAt != nil {
		t.Fatal("updatedAt should be unset on create")
	}
}

func TestSubscribeEmptyPrincipal(t *testing.T) {
	events, _, _ := newTestRepos()

	feed, err := events.Subscribe(context.Background(), "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer feed.Close()

	evs := waitEvents(t, feed, func([]models.Event) bool { return true })
	if len(evs) != 0 {
		t.Fatalf("expected empty snapshot for empty principal, got %v", evs)
	}
}

func TestSubscribeOrdering(t *testing.T) {
	ctx := context.Background()
	events, _, _ := newTestRepos()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := events.Create(ctx, "u1", models.EventDraft{Title: "later", Date: base.Add(time.Hour)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := events.Create(ctx, "u1", models.EventDraft{Title: "sooner", Date: base}); err != nil {
		t.Fatalf("create: %v", err)
	}

	feed, err := events.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer feed.Close()

	evs := waitEvents(t, feed, func(evs []models.Event) bool { return len(evs) == 2 })
	if evs[0].Title != "sooner" || evs[1].Title != "later" {
		t.Fatalf("expected date-ascending order, got %s then %s", evs[0].Title, evs[1].Title)
	}
}

func TestUpdateNotFound(t *testing.T) {
	ctx := context.Background()
	events, _, _ := newTestRepos()

	err := events.Update(ctx, "u1", "missing", models.EventDraft{Title: "x", Date: time.Now()})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCrossPrincipal(t *testing.T) {
	ctx := context.Background()
	events, _, _ := newTestRepos()

	id, err := events.Create(ctx, "u1", models.EventDraft{Title: "mine", Date: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 别人的 id 在自己名下解析不到，按不存在处理
	err = events.Update(ctx, "u2", id, models.EventDraft{Title: "stolen", Date: time.Now()})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign event, got %v", err)
	}
}

func TestUpdateSetsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	events, _, _ := newTestRepos()

	id, err := events.Create(ctx, "u1", models.EventDraft{Title: "before", Date: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := events.Update(ctx, "u1", id, models.EventDraft{Title: "after", Date: time.Now()}); err != nil {
		t.Fatalf("update: %v", err)
	}

	ev, err := events.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ev.Title != "after" {
		t.Fatalf("expected updated title, got %s", ev.Title)
	}
	if ev.UpdatedAt == nil {
		t.Fatal("updatedAt not stamped")
	}
}

func TestDeleteCascadesFavorite(t *testing.T) {
	ctx := context.Background()
	events, favorites, store := newTestRepos()

	id, err := events.Create(ctx, "u1", models.EventDraft{Title: "party", Date: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ev, err := events.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := favorites.Toggle(ctx, "u1", ev); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if err := events.Delete(ctx, "u1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Get(ctx, "users/u1/events/"+id); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("event should be gone, got %v", err)
	}
	if _, err := store.Get(ctx, "users/u1/favorites/"+id); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("favorite should be cascade-deleted, got %v", err)
	}
}

func waitEvents(t *testing.T, feed *Feed, cond func([]models.Event) bool) []models.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evs, ok := <-feed.C():
			if !ok {
				t.Fatal("feed closed while waiting")
			}
			if cond(evs) {
				return evs
			}
		case <-deadline:
			t.Fatal("timeout waiting for events emission")
		}
	}
}
