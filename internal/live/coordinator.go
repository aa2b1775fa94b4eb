package live

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/harshpatel0909/event-organizer-app/internal/apperr"
	"github.com/harshpatel0909/event-organizer-app/internal/event"
	"github.com/harshpatel0909/event-organizer-app/internal/favorite"
	"github.com/harshpatel0909/event-organizer-app/internal/models"
)

// FavoritePhase 单个活动收藏状态机
//
//	unfavorited --toggle--> favoriting --成功--> favorited
//	favorited --toggle--> unfavoriting --成功--> unfavorited
//
// 失败回到切换前的状态；favoriting/unfavoriting 期间新的切换直接丢弃
type FavoritePhase string

const (
	PhaseUnfavorited  FavoritePhase = "unfavorited"
	PhaseFavoriting   FavoritePhase = "favoriting"
	PhaseFavorited    FavoritePhase = "favorited"
	PhaseUnfavoriting FavoritePhase = "unfavoriting"
)

type Publisher interface {
	Publish(queue string, body []byte) error
}

// Coordinator 把活动流和收藏流合成一个带收藏标记的视图流，
// 并对每个活动的收藏切换做进行中守卫（防连点）
type Coordinator struct {
	events    *event.Repository
	favorites *favorite.Repository
	rabbit    Publisher

	mu       sync.Mutex
	inflight map[string]FavoritePhase
}

func NewCoordinator(events *event.Repository, favorites *favorite.Repository, rabbit Publisher) *Coordinator {
	return &Coordinator{
		events:    events,
		favorites: favorites,
		rabbit:    rabbit,
		inflight:  make(map[string]FavoritePhase),
	}
}

// Watch 订阅合成后的视图流
// 任意一路推送都会重算整个列表；两路首帧都到齐才开始输出，
// 避免活动先到、收藏标记闪一下全灭
// 返回的 cancel 必须调用，负责把两路订阅都退掉（幂等）
func (c *Coordinator) Watch(ctx context.Context, principalID string) (<-chan []models.ViewItem, func(), error) {
	evFeed, err := c.events.Subscribe(ctx, principalID)
	if err != nil {
		return nil, nil, err
	}
	favFeed, err := c.favorites.Subscribe(ctx, principalID)
	if err != nil {
		evFeed.Close()
		return nil, nil, err
	}

	out := make(chan []models.ViewItem, 8)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			evFeed.Close()
			favFeed.Close()
		})
	}

	go func() {
		defer close(out)

		evC, favC := evFeed.C(), favFeed.C()
		var events []models.Event
		favs := map[string]bool{}
		haveEvents, haveFavs := false, false

		for evC != nil || favC != nil {
			select {
			case snap, ok := <-evC:
				if !ok {
					evC = nil
					continue
				}
				events, haveEvents = snap, true
			case snap, ok := <-favC:
				if !ok {
					favC = nil
					continue
				}
				favs = make(map[string]bool, len(snap))
				for _, f := range snap {
					favs[f.EventID] = true
				}
				haveFavs = true
			}

			if !haveEvents || !haveFavs {
				continue
			}
			pushItems(out, joinView(events, favs))
		}
	}()

	return out, cancel, nil
}

// Snapshot 取当前视图的一次性快照（GET 列表用）
func (c *Coordinator) Snapshot(ctx context.Context, principalID string) ([]models.ViewItem, error) {
	out, cancel, err := c.Watch(ctx, principalID)
	if err != nil {
		return nil, err
	}
	defer cancel()

	select {
	case items, ok := <-out:
		if !ok {
			return []models.ViewItem{}, nil
		}
		return items, nil
	case <-ctx.Done():
		return nil, apperr.Remote(ctx.Err())
	}
}

func (c *Coordinator) CreateEvent(ctx context.Context, principalID string, draft models.EventDraft) (string, error) {
	return c.events.Create(ctx, principalID, draft)
}

func (c *Coordinator) UpdateEvent(ctx context.Context, principalID, id string, draft models.EventDraft) error {
	return c.events.Update(ctx, principalID, id, draft)
}

func (c *Coordinator) GetEvent(ctx context.Context, principalID, id string) (models.Event, error) {
	return c.events.Get(ctx, principalID, id)
}

// DeleteEvent 删除活动；级联清理失败时活动本身已删掉，
// 发补偿消息让消费者重试收藏清理，错误照样往上抛给界面提示
func (c *Coordinator) DeleteEvent(ctx context.Context, principalID, id string) error {
	err := c.events.Delete(ctx, principalID, id)
	if err != nil && errors.Is(err, apperr.ErrCascade) {
		zap.L().Warn("favorite cascade failed, queueing repair",
			zap.String("user_id", principalID), zap.String("event_id", id), zap.Error(err))
		c.queueCascadeRepair(principalID, id)
	}
	return err
}

// ToggleFavorite 带守卫的收藏切换
// 同一个活动已有一次切换在途时，新请求返回 ErrBusy 直接丢弃，不排队
func (c *Coordinator) ToggleFavorite(ctx context.Context, principalID string, ev models.Event) (models.FavoriteState, error) {
	if principalID == "" {
		return "", apperr.ErrAuth
	}

	key := principalID + "/" + ev.ID
	c.mu.Lock()
	if _, busy := c.inflight[key]; busy {
		c.mu.Unlock()
		return "", apperr.ErrBusy
	}
	c.inflight[key] = PhaseFavoriting
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	// 预读只为标注状态机方向（favoriting 还是 unfavoriting），
	// 真正的判定在仓库的 Toggle 里做
	if cur, err := c.favorites.IsFavorited(ctx, principalID, ev.ID); err == nil && cur {
		c.mu.Lock()
		c.inflight[key] = PhaseUnfavoriting
		c.mu.Unlock()
	}

	state, err := c.favorites.Toggle(ctx, principalID, ev)
	if err != nil {
		// 持久层没写成功，守卫释放后等于回到切换前的状态
		return "", err
	}
	return state, nil
}

// Phase 某个活动当前的收藏状态机状态，isFavorited 是最近一次快照里的值
func (c *Coordinator) Phase(principalID, eventID string, isFavorited bool) FavoritePhase {
	c.mu.Lock()
	defer c.mu.Unlock()

	if phase, ok := c.inflight[principalID+"/"+eventID]; ok {
		return phase
	}
	if isFavorited {
		return PhaseFavorited
	}
	return PhaseUnfavorited
}

func (c *Coordinator) Busy(principalID, eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[principalID+"/"+eventID]
	return ok
}

func (c *Coordinator) queueCascadeRepair(principalID, eventID string) {
	if c.rabbit == nil {
		return
	}
	body, _ := json.Marshal(models.CascadeMsg{UserID: principalID, EventID: eventID})
	if err := c.rabbit.Publish("cascade_queue", body); err != nil {
		zap.L().Error("queue cascade repair failed",
			zap.String("user_id", principalID), zap.String("event_id", eventID), zap.Error(err))
	}
}

// joinView 收藏标记靠 key 查找，不假设两路推送成对到达，
// 所以对到达顺序不敏感
func joinView(events []models.Event, favs map[string]bool) []models.ViewItem {
	items := make([]models.ViewItem, 0, len(events))
	for _, ev := range events {
		items = append(items, models.ViewItem{Event: ev, IsFavorited: favs[ev.ID]})
	}
	// 展示顺序：先按活动时间，再按创建时间
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

func pushItems(ch chan []models.ViewItem, items []models.ViewItem) {
	for {
		select {
		case ch <- items:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
