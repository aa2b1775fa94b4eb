package models

import "time"

// Event 活动文档，按用户隔离存储在 users/{uid}/events/{id} 下
type Event struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        time.Time  `json:"date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// EventDraft 创建/更新活动时提交的字段
type EventDraft struct {
	Title       string
	Description string
	Date        time.Time
}

// ViewItem 活动加上收藏标记，只用于展示，不落库
type ViewItem struct {
	Event
	IsFavorited bool `json:"is_favorited"`
}
