package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dujiao-next/foodcart/internal/cart"

	"github.com/redis/go-redis/v9"
)

// ErrRedisDisabled Redis 未启用
var ErrRedisDisabled = errors.New("redis is not enabled")

const (
	cartFieldRevision  = "revision"
	cartFieldPayload   = "payload"
	cartFieldDeleted   = "deleted"
	cartFieldUpdatedAt = "updated_at"
)

// 仅当已存储版本不更新时写入，同版本时墓碑优先；ARGV: revision, payload, deleted, updated_at, ttl
// 删除同样走这段脚本写入墓碑，旧版本的写入因此无法复活购物车
var saveCartScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], 'revision') or '-1')
local revision = tonumber(ARGV[1])
if current > revision then
	return 0
end
if current == revision and redis.call('HGET', KEYS[1], 'deleted') == '1' then
	return 0
end
redis.call('HSET', KEYS[1], 'revision', ARGV[1], 'payload', ARGV[2], 'deleted', ARGV[3], 'updated_at', ARGV[4])
if tonumber(ARGV[5]) > 0 then
	redis.call('EXPIRE', KEYS[1], ARGV[5])
end
return 1
`)

// RedisCartStore 基于 Redis 哈希的购物车存储，记录按 TTL 过期
type RedisCartStore struct {
	ttl time.Duration
}

// NewRedisCartStore 创建 Redis 购物车存储，ttl<=0 表示不过期
func NewRedisCartStore(ttl time.Duration) *RedisCartStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCartStore{ttl: ttl}
}

func cartRecordKey(key cart.IdentityKey) string {
	return buildKey(fmt.Sprintf("cart:snapshot:%s", key.String()))
}

// Load 读取快照
func (s *RedisCartStore) Load(ctx context.Context, key cart.IdentityKey) (*cart.Record, error) {
	if !Enabled() {
		return nil, ErrRedisDisabled
	}
	fields, err := redisClient.HGetAll(ctx, cartRecordKey(key)).Result()
	if err != nil {
		return nil, err
	}
	return recordFromFields(key, fields)
}

// Save 写入快照，旧版本被忽略
func (s *RedisCartStore) Save(ctx context.Context, record cart.Record) error {
	return s.write(ctx, record.Key, record.Revision, string(record.Payload), false, record.UpdatedAt)
}

// Delete 写入墓碑，已存储版本更新时保留
func (s *RedisCartStore) Delete(ctx context.Context, key cart.IdentityKey, revision int64) error {
	return s.write(ctx, key, revision, "", true, time.Time{})
}

func (s *RedisCartStore) write(ctx context.Context, key cart.IdentityKey, revision int64, payload string, deleted bool, updatedAt time.Time) error {
	if !Enabled() {
		return ErrRedisDisabled
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	deletedFlag := "0"
	if deleted {
		deletedFlag = "1"
	}
	return saveCartScript.Run(ctx, redisClient, []string{cartRecordKey(key)},
		revision,
		payload,
		deletedFlag,
		updatedAt.UTC().Format(time.RFC3339Nano),
		int64(s.ttl/time.Second),
	).Err()
}

func recordFromFields(key cart.IdentityKey, fields map[string]string) (*cart.Record, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	revision, err := strconv.ParseInt(fields[cartFieldRevision], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cart revision %q: %w", fields[cartFieldRevision], err)
	}
	record := &cart.Record{
		Key:      key,
		Revision: revision,
		Deleted:  fields[cartFieldDeleted] == "1",
	}
	if !record.Deleted {
		record.Payload = []byte(fields[cartFieldPayload])
	}
	if raw := fields[cartFieldUpdatedAt]; raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			record.UpdatedAt = parsed
		}
	}
	return record, nil
}
