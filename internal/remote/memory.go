package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/harshpatel0909/event-organizer-app/internal/apperr"
)

// MemStore 内存版文档存储，语义和 DocStore 一致
// 测试用，DB_HOST 没配置时本地跑服务也用它
type MemStore struct {
	mu       sync.Mutex
	docs     map[string]map[string]interface{}
	watchers map[string][]*Feed
}

func NewMemStore() *MemStore {
	return &MemStore{
		docs:     make(map[string]map[string]interface{}),
		watchers: make(map[string][]*Feed),
	}
}

func (s *MemStore) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.docs[path]
	if !ok {
		return nil, apperr.NotFound("document %s", path)
	}
	return copyFields(fields), nil
}

func (s *MemStore) Set(ctx context.Context, path string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[path] = copyFields(fields)
	s.notifyLocked(parentCollection(path))
	return nil
}

func (s *MemStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[path]
	if !ok {
		return apperr.NotFound("document %s", path)
	}
	for k, v := range fields {
		existing[k] = v
	}
	s.notifyLocked(parentCollection(path))
	return nil
}

func (s *MemStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[path]; !ok {
		return nil
	}
	delete(s.docs, path)
	s.notifyLocked(parentCollection(path))
	return nil
}

func (s *MemStore) Subscribe(ctx context.Context, collection string) (*Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed := newFeed(8)
	feed.stop = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.removeWatcherLocked(collection, feed)
		close(feed.ch)
	}
	s.watchers[collection] = append(s.watchers[collection], feed)
	feed.push(s.snapshotLocked(collection))

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			feed.Close()
		}()
	}
	return feed, nil
}

func (s *MemStore) notifyLocked(collection string) {
	feeds := s.watchers[collection]
	if len(feeds) == 0 {
		return
	}
	snap := s.snapshotLocked(collection)
	for _, f := range feeds {
		f.push(snap)
	}
}

func (s *MemStore) snapshotLocked(collection string) Snapshot {
	var snap Snapshot
	for path, fields := range s.docs {
		if parentCollection(path) != collection {
			continue
		}
		snap = append(snap, Doc{ID: docID(path), Fields: copyFields(fields)})
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].ID < snap[j].ID })
	return snap
}

func (s *MemStore) removeWatcherLocked(collection string, feed *Feed) {
	feeds := s.watchers[collection]
	for i, f := range feeds {
		if f == feed {
			s.watchers[collection] = append(feeds[:i], feeds[i+1:]...)
			return
		}
	}
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
