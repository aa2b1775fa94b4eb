package mq

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harshpatel0909/event-organizer-app/internal/infra/cache"
	"github.com/harshpatel0909/event-organizer-app/internal/models"
)

const maxCascadeAttempts = 5

// CascadeRemover 收藏级联清理，favorite.Repository 实现了它
type CascadeRemover interface {
	RemoveCascade(ctx context.Context, principalID, eventID string) error
}

// Consumer 持有消费侧依赖
type Consumer struct {
	rabbit    *RabbitMQ
	cache     *cache.RedisCache
	favorites CascadeRemover
}

func NewConsumer(rabbit *RabbitMQ, cache *cache.RedisCache, favorites CascadeRemover) *Consumer {
	return &Consumer{
		rabbit:    rabbit,
		cache:     cache,
		favorites: favorites,
	}
}

// Start 启动所有消费者监听
func (c *Consumer) Start() {
	go c.consumeCascade()
	go c.consumeFavorite()
}

// consumeCascade 活动删掉了但收藏清理失败时的补偿通道
// RemoveCascade 是幂等的，重试多少次都安全
func (c *Consumer) consumeCascade() {
	msgs, err := c.rabbit.Consume("cascade_queue")
	if err != nil {
		slog.Error("Failed to start cascade consumer", "error", err)
		return
	}

	slog.Info("Waiting for cascade repair messages...")

	for d := range msgs {
		var msg models.CascadeMsg
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			slog.Error("Failed to unmarshal msg", "error", err)
			continue // 格式错误直接丢弃
		}

		if err := c.favorites.RemoveCascade(context.Background(), msg.UserID, msg.EventID); err != nil {
			msg.Attempts++
			if msg.Attempts >= maxCascadeAttempts {
				slog.Error("Cascade repair giving up",
					"user_id", msg.UserID, "event_id", msg.EventID, "attempts", msg.Attempts, "error", err)
				continue
			}
			slog.Warn("Cascade repair failed, requeueing",
				"user_id", msg.UserID, "event_id", msg.EventID, "attempts", msg.Attempts)
			body, _ := json.Marshal(msg)
			_ = c.rabbit.Publish("cascade_queue", body)
			continue
		}

		slog.Info("Orphaned favorite cleaned up", "user_id", msg.UserID, "event_id", msg.EventID)
	}
}

// consumeFavorite 收藏动作的审计流，写进每个用户的最近动态
func (c *Consumer) consumeFavorite() {
	msgs, err := c.rabbit.Consume("favorite_queue")
	if err != nil {
		slog.Error("Failed to start favorite consumer", "error", err)
		return
	}

	slog.Info("Waiting for favorite messages...")

	for d := range msgs {
		var msg models.FavoriteMsg
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			slog.Error("Failed to unmarshal msg", "error", err)
			continue
		}

		if c.cache == nil {
			continue
		}

		ctx := context.Background()
		key := "favorites:activity:" + msg.UserID
		member := msg.EventID + ":" + msg.Action
		if _, err := c.cache.ZAdd(ctx, key, redis.Z{
			Score:  float64(time.Now().Unix()),
			Member: member,
		}); err != nil {
			slog.Warn("Failed to record favorite activity", "error", err)
			continue
		}
		// 只留最近 100 条
		_, _ = c.cache.ZRemRangeByRank(ctx, key, 0, -101)
	}
}
