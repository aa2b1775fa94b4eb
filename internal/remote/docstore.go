package remote

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harshpatel0909/event-organizer-app/internal/apperr"
	"github.com/harshpatel0909/event-organizer-app/internal/infra/cache"
)

const changesChannel = "docstore:changes"

// Document 一行一个文档，fields 序列化成 JSON 存
type Document struct {
	Path       string                 `gorm:"primaryKey;size:512"`
	Collection string                 `gorm:"index;size:512"`
	Fields     map[string]interface{} `gorm:"serializer:json"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Document) TableName() string {
	return "documents"
}

// DocStore MySQL 落库 + Redis 广播变更
// 同实例的订阅者也走广播回路，Redis 不可用时退化为进程内直接分发
type DocStore struct {
	db    *gorm.DB
	cache *cache.RedisCache

	mu       sync.Mutex
	watchers map[string][]*Feed

	cancel context.CancelFunc
}

func NewDocStore(gdb *gorm.DB, rdb *cache.RedisCache) (*DocStore, error) {
	if err := gdb.AutoMigrate(&Document{}); err != nil {
		return nil, err
	}

	s := &DocStore{
		db:       gdb,
		cache:    rdb,
		watchers: make(map[string][]*Feed),
	}

	if rdb != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.listen(ctx)
	}
	return s, nil
}

func (s *DocStore) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *DocStore) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	var doc Document
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("document %s", path)
		}
		return nil, apperr.Remote(err)
	}
	return doc.Fields, nil
}

func (s *DocStore) Set(ctx context.Context, path string, fields map[string]interface{}) error {
	doc := Document{
		Path:       path,
		Collection: parentCollection(path),
		Fields:     fields,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&doc).Error
	if err != nil {
		return apperr.Remote(err)
	}
	s.notify(ctx, doc.Collection)
	return nil
}

func (s *DocStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc Document
		if err := tx.Where("path = ?", path).First(&doc).Error; err != nil {
			return err
		}
		for k, v := range fields {
			doc.Fields[k] = v
		}
		return tx.Save(&doc).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("document %s", path)
		}
		return apperr.Remote(err)
	}
	s.notify(ctx, parentCollection(path))
	return nil
}

func (s *DocStore) Delete(ctx context.Context, path string) error {
	result := s.db.WithContext(ctx).Where("path = ?", path).Delete(&Document{})
	if result.Error != nil {
		return apperr.Remote(result.Error)
	}
	if result.RowsAffected > 0 {
		s.notify(ctx, parentCollection(path))
	}
	return nil
}

func (s *DocStore) Subscribe(ctx context.Context, collection string) (*Feed, error) {
	snap, err := s.query(collection)
	if err != nil {
		return nil, apperr.Remote(err)
	}

	feed := newFeed(8)
	feed.stop = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.removeWatcherLocked(collection, feed)
		close(feed.ch)
	}

	s.mu.Lock()
	s.watchers[collection] = append(s.watchers[collection], feed)
	feed.push(snap)
	s.mu.Unlock()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			feed.Close()
		}()
	}
	return feed, nil
}

func (s *DocStore) listen(ctx context.Context) {
	sub := s.cache.Subscribe(ctx, changesChannel)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			s.dispatch(msg.Payload)
		}
	}
}

func (s *DocStore) notify(ctx context.Context, collection string) {
	if s.cache != nil {
		if err := s.cache.Publish(ctx, changesChannel, collection); err == nil {
			return
		} else {
			zap.L().Warn("docstore publish failed, dispatching locally", zap.Error(err))
		}
	}
	s.dispatch(collection)
}

func (s *DocStore) dispatch(collection string) {
	s.mu.Lock()
	feeds := append([]*Feed(nil), s.watchers[collection]...)
	s.mu.Unlock()
	if len(feeds) == 0 {
		return
	}

	snap, err := s.query(collection)
	if err != nil {
		zap.L().Error("docstore snapshot query failed", zap.String("collection", collection), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.watchers[collection] {
		f.push(snap)
	}
}

func (s *DocStore) query(collection string) (Snapshot, error) {
	var docs []Document
	if err := s.db.Where("collection = ?", collection).Find(&docs).Error; err != nil {
		return nil, err
	}

	snap := make(Snapshot, 0, len(docs))
	for _, d := range docs {
		snap = append(snap, Doc{ID: docID(d.Path), Fields: d.Fields})
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].ID < snap[j].ID })
	return snap, nil
}

func (s *DocStore) removeWatcherLocked(collection string, feed *Feed) {
	feeds := s.watchers[collection]
	for i, f := range feeds {
		if f == feed {
			s.watchers[collection] = append(feeds[:i], feeds[i+1:]...)
			return
		}
	}
}
