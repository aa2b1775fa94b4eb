package remote

import (
	"context"
	"strings"
	"sync"
)

// 文档存储契约，路径是层级式的，比如 users/{uid}/events/{id}
// Subscribe 订阅一个集合，每次变更都推一份全量快照，不是增量

type Doc struct {
	ID     string
	Fields map[string]interface{}
}

type Snapshot []Doc

type Store interface {
	// Get 读取单个文档，不存在时返回 apperr.ErrNotFound
	Get(ctx context.Context, path string) (map[string]interface{}, error)
	// Set 整体写入（覆盖）
	Set(ctx context.Context, path string, fields map[string]interface{}) error
	// Update 部分更新，文档不存在时返回 apperr.ErrNotFound
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	// Delete 幂等删除
	Delete(ctx context.Context, path string) error
	// Subscribe 返回集合的实时快照流，首个快照立即送达
	Subscribe(ctx context.Context, collection string) (*Feed, error)
}

// Feed 一个集合的实时快照流
// Close 幂等，页面退订只需要调一次，多调不报错
type Feed struct {
	ch   chan Snapshot
	once sync.Once
	stop func()
}

func newFeed(buf int) *Feed {
	return &Feed{ch: make(chan Snapshot, buf)}
}

func (f *Feed) C() <-chan Snapshot {
	return f.ch
}

func (f *Feed) Close() {
	f.once.Do(func() {
		if f.stop != nil {
			f.stop()
		}
	})
}

// push 推送最新快照，消费方来不及读时丢掉旧的
// 每份快照都是全量，只有最新一份有意义
func (f *Feed) push(s Snapshot) {
	for {
		select {
		case f.ch <- s:
			return
		default:
			select {
			case <-f.ch:
			default:
			}
		}
	}
}

func parentCollection(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

func docID(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return path
	}
	return path[i+1:]
}
