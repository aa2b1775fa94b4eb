package favorite

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harshpatel0909/event-organizer-app/internal/apperr"
	"github.com/harshpatel0909/event-organizer-app/internal/models"
	"github.com/harshpatel0909/event-organizer-app/internal/remote"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []models.FavoriteMsg
}

func (p *fakePublisher) Publish(queue string, body []byte) error {
	var msg models.FavoriteMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}
	p.mu.Lock()
	p.msgs = append(p.msgs, msg)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Action
	}
	return out
}

func testEvent(id string) models.Event {
	return models.Event{
		ID:          id,
		Title:       "Standup",
		Description: "daily",
		Date:        time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestToggleOnOff(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemStore()
	pub := &fakePublisher{}
	repo := NewRepository(store, pub)

	ev := testEvent("e1")

	state, err := repo.Toggle(ctx, "u1", ev)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if state != models.FavoriteOn {
		t.Fatalf("expected on, got %s", state)
	}

	// 副本字段是收藏那一刻的快照
	fields, err := store.Get(ctx, "users/u1/favorites/e1")
	if err != nil {
		t.Fatalf("favorite doc missing: %v", err)
	}
	if fields["title"] != "Standup" || fields["description"] != "daily" {
		t.Fatalf("denormalized copy wrong: %v", fields)
	}

	state, err = repo.Toggle(ctx, "u1", ev)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if state != models.FavoriteOff {
		t.Fatalf("expected off, got %s", state)
	}
	if _, err := store.Get(ctx, "users/u1/favorites/e1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("favorite should be gone, got %v", err)
	}

	got := pub.actions()
	if len(got) != 2 || got[0] != "add" || got[1] != "remove" {
		t.Fatalf("expected add then remove, got %v", got)
	}
}

func TestToggleRequiresPrincipal(t *testing.T) {
	repo := NewRepository(remote.NewMemStore(), nil)
	if _, err := repo.Toggle(context.Background(), "", testEvent("e1")); !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestRemoveCascadeIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(remote.NewMemStore(), nil)

	if _, err := repo.Toggle(ctx, "u1", testEvent("e1")); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := repo.RemoveCascade(ctx, "u1", "e1"); err != nil {
		t.Fatalf("first removeCascade: %v", err)
	}
	// 再删一遍也是成功
	if err := repo.RemoveCascade(ctx, "u1", "e1"); err != nil {
		t.Fatalf("second removeCascade should be a no-op, got %v", err)
	}
}

func TestIsFavorited(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(remote.NewMemStore(), nil)

	on, err := repo.IsFavorited(ctx, "u1", "e1")
	if err != nil || on {
		t.Fatalf("expected not favorited, got %v %v", on, err)
	}
	if _, err := repo.Toggle(ctx, "u1", testEvent("e1")); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	on, err = repo.IsFavorited(ctx, "u1", "e1")
	if err != nil || !on {
		t.Fatalf("expected favorited, got %v %v", on, err)
	}
}

func TestSubscribeOrderedByFavoriteTime(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemStore()
	repo := NewRepository(store, nil)

	// 直接写两条不同 createdAt 的收藏
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_ = store.Set(ctx, "users/u1/favorites/e1", map[string]interface{}{
		"title": "old", "createdAt": old.Format(time.RFC3339Nano),
	})
	_ = store.Set(ctx, "users/u1/favorites/e2", map[string]interface{}{
		"title": "recent", "createdAt": recent.Format(time.RFC3339Nano),
	})

	feed, err := repo.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer feed.Close()

	favs := waitFavorites(t, feed, func(f []models.Favorite) bool { return len(f) == 2 })
	if favs[0].Title != "recent" || favs[1].Title != "old" {
		t.Fatalf("expected favorite-time descending order, got %s then %s", favs[0].Title, favs[1].Title)
	}
}

func waitFavorites(t *testing.T, feed *Feed, cond func([]models.Favorite) bool) []models.Favorite {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case favs, ok := <-feed.C():
			if !ok {
				t.Fatal("feed closed while waiting")
			}
			if cond(favs) {
				return favs
			}
		case <-deadline:
			t.Fatal("timeout waiting for favorites emission")
		}
	}
}
