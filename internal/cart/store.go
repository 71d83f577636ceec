package cart

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/foodcart/internal/constants"
)

// IdentityKey 购物车持久化作用域键
type IdentityKey string

// String 实现 fmt.Stringer
func (k IdentityKey) String() string {
	return string(k)
}

// UserKey 已登录用户的键：<prefix><userID>
func UserKey(prefix string, userID uint) IdentityKey {
	if strings.TrimSpace(prefix) == "" {
		prefix = constants.CartUserKeyPrefix
	}
	if userID == 0 {
		return ""
	}
	return IdentityKey(prefix + strconv.FormatUint(uint64(userID), 10))
}

// GuestKey 访客键；服务端托管多个访客会话时追加会话 ID
func GuestKey(base, sessionID string) IdentityKey {
	base = strings.TrimSpace(base)
	if base == "" {
		base = constants.CartGuestKey
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return IdentityKey(base)
	}
	return IdentityKey(base + constants.CartGuestKeySep + sessionID)
}

// Record 持久化记录；Deleted 为清空后留下的墓碑，只保留版本号
type Record struct {
	Key       IdentityKey
	Revision  int64
	Payload   []byte
	Deleted   bool
	UpdatedAt time.Time
}

// Store 购物车键值存储
// Load 在记录不存在时返回 nil, nil，墓碑以 Deleted=true 返回
// Save/Delete 需忽略比已存储版本更旧的写入；Delete 写墓碑而不是移除键，旧版本的 Save 不能复活购物车
type Store interface {
	Load(ctx context.Context, key IdentityKey) (*Record, error)
	Save(ctx context.Context, record Record) error
	Delete(ctx context.Context, key IdentityKey, revision int64) error
}

// MemoryStore 进程内存储，用于测试与无数据库部署
type MemoryStore struct {
	mu      sync.RWMutex
	records map[IdentityKey]Record
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[IdentityKey]Record)}
}

// Load 读取记录
func (s *MemoryStore) Load(_ context.Context, key IdentityKey) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	record.Payload = append([]byte(nil), record.Payload...)
	return &record, nil
}

// Save 写入记录
func (s *MemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[record.Key]; ok && supersedes(existing, record.Revision) {
		return nil
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	record.Payload = append([]byte(nil), record.Payload...)
	s.records[record.Key] = record
	return nil
}

// Delete 写入墓碑
func (s *MemoryStore) Delete(_ context.Context, key IdentityKey, revision int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[key]; ok && supersedes(existing, revision) {
		return nil
	}
	s.records[key] = Record{Key: key, Revision: revision, Deleted: true, UpdatedAt: time.Now()}
	return nil
}

// supersedes 已存储记录是否优先于该版本的写入；同版本时墓碑优先
func supersedes(existing Record, revision int64) bool {
	if existing.Revision > revision {
		return true
	}
	return existing.Deleted && existing.Revision == revision
}

// Len 有效记录数，不含墓碑
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, record := range s.records {
		if !record.Deleted {
			n++
		}
	}
	return n
}
