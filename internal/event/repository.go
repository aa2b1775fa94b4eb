package event

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harshpatel0909/event-organizer-app/internal/apperr"
	"github.com/harshpatel0909/event-organizer-app/internal/models"
	"github.com/harshpatel0909/event-organizer-app/internal/remote"
)

// Cascader 活动删除后负责清理同 id 收藏
type Cascader interface {
	RemoveCascade(ctx context.Context, principalID, eventID string) error
}

// Repository 活动仓库，统一走 users/{uid}/events 嵌套集合
// 旧版本有些界面读的是全局 events 集合，那是越权 bug，这里不保留
type Repository struct {
	store   remote.Store
	cascade Cascader
}

func NewRepository(store remote.Store, cascade Cascader) *Repository {
	return &Repository{store: store, cascade: cascade}
}

func eventsCollection(uid string) string {
	return "users/" + uid + "/events"
}

func eventPath(uid, id string) string {
	return eventsCollection(uid) + "/" + id
}

// Feed 活动集合的实时快照流，Close 幂等
type Feed struct {
	ch   chan []models.Event
	once sync.Once
	stop func()
}

func (f *Feed) C() <-chan []models.Event {
	return f.ch
}

func (f *Feed) Close() {
	f.once.Do(f.stop)
}

func (f *Feed) push(events []models.Event) {
	for {
		select {
		case f.ch <- events:
			return
		default:
			select {
			case <-f.ch:
			default:
			}
		}
	}
}

// Subscribe 订阅某个用户的全部活动
// principalID 为空时不算错误，给一份空快照（未登录界面照常渲染空列表）
func (r *Repository) Subscribe(ctx context.Context, principalID string) (*Feed, error) {
	f := &Feed{ch: make(chan []models.Event, 8)}

	if principalID == "" {
		f.ch <- []models.Event{}
		f.stop = func() { close(f.ch) }
		return f, nil
	}

	inner, err := r.store.Subscribe(ctx, eventsCollection(principalID))
	if err != nil {
		return nil, err
	}
	f.stop = inner.Close

	go func() {
		defer close(f.ch)
		for snap := range inner.C() {
			f.push(decodeEvents(principalID, snap))
		}
	}()
	return f, nil
}

func (r *Repository) Get(ctx context.Context, principalID, id string) (models.Event, error) {
	if principalID == "" {
		return models.Event{}, apperr.ErrAuth
	}

	fields, err := r.store.Get(ctx, eventPath(principalID, id))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Event{}, apperr.NotFound("event %s", id)
		}
		return models.Event{}, err
	}
	return decodeEvent(principalID, remote.Doc{ID: id, Fields: fields}), nil
}

func (r *Repository) Create(ctx context.Context, principalID string, draft models.EventDraft) (string, error) {
	if principalID == "" {
		return "", apperr.ErrAuth
	}

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return "", apperr.Validation("title is required")
	}

	id := uuid.NewString()
	fields := map[string]interface{}{
		"title":       title,
		"description": draft.Description,
		"date":        formatTime(draft.Date),
		"createdAt":   formatTime(time.Now()),
	}
	if err := r.store.Set(ctx, eventPath(principalID, id), fields); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) Update(ctx context.Context, principalID, id string, draft models.EventDraft) error {
	if principalID == "" {
		return apperr.ErrAuth
	}

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return apperr.Validation("title is required")
	}

	fields := map[string]interface{}{
		"title":       title,
		"description": draft.Description,
		"date":        formatTime(draft.Date),
		"updatedAt":   formatTime(time.Now()),
	}
	err := r.store.Update(ctx, eventPath(principalID, id), fields)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// 并发删除或者压根不是自己的活动，统一按不存在处理
			return apperr.NotFound("event %s", id)
		}
		return err
	}
	return nil
}

// Delete 删除活动并级联清理收藏
// 级联失败不回滚活动删除，返回 ErrCascade 由上层发补偿消息
func (r *Repository) Delete(ctx context.Context, principalID, id string) error {
	if principalID == "" {
		return apperr.ErrAuth
	}

	if err := r.store.Delete(ctx, eventPath(principalID, id)); err != nil {
		return err
	}

	if r.cascade != nil {
		if err := r.cascade.RemoveCascade(ctx, principalID, id); err != nil {
			return fmt.Errorf("%w: favorite for event %s: %v", apperr.ErrCascade, id, err)
		}
	}
	return nil
}

func decodeEvents(owner string, snap remote.Snapshot) []models.Event {
	events := make([]models.Event, 0, len(snap))
	for _, d := range snap {
		events = append(events, decodeEvent(owner, d))
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events
}

func decodeEvent(owner string, d remote.Doc) models.Event {
	ev := models.Event{ID: d.ID, OwnerID: owner}
	ev.Title, _ = d.Fields["title"].(string)
	ev.Description, _ = d.Fields["description"].(string)
	ev.Date = parseTime(d.Fields["date"])
	ev.CreatedAt = parseTime(d.Fields["createdAt"])
	if s, ok := d.Fields["updatedAt"].(string); ok && s != "" {
		t := parseTime(s)
		ev.UpdatedAt = &t
	}
	return ev
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
