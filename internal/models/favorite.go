package models

import "time"

// Favorite 收藏标记，id 与被收藏的活动相同
// title/description/date 是收藏那一刻的快照，活动后续被编辑也不回填
type Favorite struct {
	EventID     string    `json:"event_id"`
	OwnerID     string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

type FavoriteState string

const (
	FavoriteOn  FavoriteState = "on"
	FavoriteOff FavoriteState = "off"
)

type FavoriteMsg struct {
	UserID  string `json:"user_id"`
	EventID string `json:"event_id"`
	Action  string `json:"action"` // "add" or "remove"
}

// CascadeMsg 活动删除后收藏清理失败时发出，由消费者补偿重试
type CascadeMsg struct {
	UserID   string `json:"user_id"`
	EventID  string `json:"event_id"`
	Attempts int    `json:"attempts"`
}
