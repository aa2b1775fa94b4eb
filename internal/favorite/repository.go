package favorite

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harshpatel0909/event-organizer-app/internal/apperr"
	"github.com/harshpatel0909/event-organizer-app/internal/models"
	"github.com/harshpatel0909/event-organizer-app/internal/remote"
)

// Publisher 收藏动作的审计消息出口，*mq.RabbitMQ 实现了它
type Publisher interface {
	Publish(queue string, body []byte) error
}

// Repository 收藏仓库，users/{uid}/favorites/{eventId}
// 收藏文档的 id 就是活动 id，一个活动一个用户最多一条
type Repository struct {
	store  remote.Store
	rabbit Publisher
}

func NewRepository(store remote.Store, rabbit Publisher) *Repository {
	return &Repository{store: store, rabbit: rabbit}
}

func favoritesCollection(uid string) string {
	return "users/" + uid + "/favorites"
}

func favoritePath(uid, eventID string) string {
	return favoritesCollection(uid) + "/" + eventID
}

// Feed 收藏集合的实时快照流，Close 幂等
type Feed struct {
	ch   chan []models.Favorite
	once sync.Once
	stop func()
}

func (f *Feed) C() <-chan []models.Favorite {
	return f.ch
}

func (f *Feed) Close() {
	f.once.Do(f.stop)
}

func (f *Feed) push(favorites []models.Favorite) {
	for {
		select {
		case f.ch <- favorites:
			return
		default:
			select {
			case <-f.ch:
			default:
			}
		}
	}
}

func (r *Repository) Subscribe(ctx context.Context, principalID string) (*Feed, error) {
	f := &Feed{ch: make(chan []models.Favorite, 8)}

	if principalID == "" {
		f.ch <- []models.Favorite{}
		f.stop = func() { close(f.ch) }
		return f, nil
	}

	inner, err := r.store.Subscribe(ctx, favoritesCollection(principalID))
	if err != nil {
		return nil, err
	}
	f.stop = inner.Close

	go func() {
		defer close(f.ch)
		for snap := range inner.C() {
			f.push(decodeFavorites(principalID, snap))
		}
	}()
	return f, nil
}

func (r *Repository) IsFavorited(ctx context.Context, principalID, eventID string) (bool, error) {
	if principalID == "" {
		return false, apperr.ErrAuth
	}

	_, err := r.store.Get(ctx, favoritePath(principalID, eventID))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Toggle 读一次当前状态然后取反：有则删，无则写入活动字段的快照副本
// 读和写之间没有原子性，靠上层的 in-flight 守卫挡住同端连点，
// 跨设备竞态按最后写入为准，下一次快照推送会把界面拉回一致
func (r *Repository) Toggle(ctx context.Context, principalID string, ev models.Event) (models.FavoriteState, error) {
	if principalID == "" {
		return "", apperr.ErrAuth
	}

	path := favoritePath(principalID, ev.ID)
	_, err := r.store.Get(ctx, path)
	switch {
	case err == nil:
		if err := r.store.Delete(ctx, path); err != nil {
			return "", err
		}
		r.publish(principalID, ev.ID, "remove")
		return models.FavoriteOff, nil

	case errors.Is(err, apperr.ErrNotFound):
		fields := map[string]interface{}{
			"eventId":     ev.ID,
			"title":       ev.Title,
			"description": ev.Description,
			"date":        formatTime(ev.Date),
			"createdAt":   formatTime(time.Now()),
		}
		if err := r.store.Set(ctx, path, fields); err != nil {
			return "", err
		}
		r.publish(principalID, ev.ID, "add")
		return models.FavoriteOn, nil

	default:
		return "", err
	}
}

// RemoveCascade 幂等删除，收藏本来就不存在也算成功
func (r *Repository) RemoveCascade(ctx context.Context, principalID, eventID string) error {
	if principalID == "" {
		return apperr.ErrAuth
	}
	return r.store.Delete(ctx, favoritePath(principalID, eventID))
}

func (r *Repository) publish(uid, eventID, action string) {
	if r.rabbit == nil {
		return
	}
	msg := models.FavoriteMsg{UserID: uid, EventID: eventID, Action: action}
	body, _ := json.Marshal(msg)
	if err := r.rabbit.Publish("favorite_queue", body); err != nil {
		// 审计消息尽力而为，不影响收藏本身
		zap.L().Warn("publish favorite msg failed", zap.Error(err))
	}
}

func decodeFavorites(owner string, snap remote.Snapshot) []models.Favorite {
	favorites := make([]models.Favorite, 0, len(snap))
	for _, d := range snap {
		favorites = append(favorites, decodeFavorite(owner, d))
	}
	// 收藏页按收藏时间倒序
	sort.Slice(favorites, func(i, j int) bool {
		return favorites[i].CreatedAt.After(favorites[j].CreatedAt)
	})
	return favorites
}

func decodeFavorite(owner string, d remote.Doc) models.Favorite {
	fav := models.Favorite{EventID: d.ID, OwnerID: owner}
	fav.Title, _ = d.Fields["title"].(string)
	fav.Description, _ = d.Fields["description"].(string)
	fav.Date = parseTime(d.Fields["date"])
	fav.CreatedAt = parseTime(d.Fields["createdAt"])
	return fav
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
