package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired 未能在等待时间内拿到锁
var ErrNotAcquired = errors.New("lock not acquired")

// unlockScript 只释放自己持有的锁，防止误删他人持有的锁
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// OrderLocker 基于 Redis SET NX 的按订单互斥锁。
// 订单的读-改-写（回调确权、发货、售后处理）在存储层没有事务保护，
// 同一订单的并发写必须在这里串行化。
type OrderLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewOrderLocker(rdb *redis.Client) *OrderLocker {
	return &OrderLocker{rdb: rdb, ttl: 10 * time.Second}
}

// Lock 获取订单锁，最多等待 wait 时长，返回释放函数
func (l *OrderLocker) Lock(ctx context.Context, orderID string, wait time.Duration) (func(), error) {
	key := "lock:order:" + orderID
	token := uuid.New().String()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			release := func() {
				// 释放失败只能等 TTL 过期，不影响正确性
				l.rdb.Eval(context.Background(), unlockScript, []string{key}, token)
			}
			return release, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
