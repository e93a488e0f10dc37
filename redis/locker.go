package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/opdss/tabexport/contracts/locker"
	"github.com/redis/go-redis/v9"
)

var ErrTimeout = errors.New("try lock time out")
var ErrFailure = errors.New("get lock failure")
var ErrNotLocked = errors.New("lock not held")

// KeyPrefix 锁的 key 前缀
const KeyPrefix = "tabexport:lock:"

const delLua = `if redis.call("get",KEYS[1]) == ARGV[1] then return redis.call("del",KEYS[1]) end return 0`

var _ locker.Locker = (*Locker)(nil)

// Locker 基于redis实现的分布式锁，同一个导出文件同时只允许一个进程上传
type Locker struct {
	client       *redis.Client
	unlockScript *redis.Script
	key          string
	token        string
	deadline     time.Time
}

func NewLocker(key string, rdb *redis.Client) *Locker {
	return &Locker{
		client:       rdb,
		key:          KeyPrefix + key,
		token:        uuid.New().String(),
		unlockScript: redis.NewScript(delLua),
	}
}

// Key 实际使用的 redis key
func (l *Locker) Key() string {
	return l.key
}

// Lock 非阻塞锁
func (l *Locker) Lock(exp time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), exp)
	defer cancel()
	ok, err := l.client.SetNX(ctx, l.key, l.token, exp).Result()
	if err != nil {
		return ErrRedis.Wrap(err)
	}
	if !ok {
		return ErrFailure
	}
	l.deadline = time.Now().Add(exp)
	return nil
}

// TryLock 自旋锁，等待时间与锁时间相同
func (l *Locker) TryLock(wait time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	var lastErr error
	for {
		ok, err := l.client.SetNX(ctx, l.key, l.token, wait).Result()
		switch {
		case err == nil && ok:
			l.deadline = time.Now().Add(wait)
			return nil
		case err != nil:
			lastErr = err
		}
		select {
		case <-ctx.Done():
			if lastErr != nil && !errors.Is(lastErr, context.DeadlineExceeded) {
				return ErrRedis.Wrap(lastErr)
			}
			return ErrTimeout
		case <-time.After(time.Millisecond * 20):
		}
	}
}

// Unlock 只删除自己持有的锁
func (l *Locker) Unlock() error {
	if l.deadline.IsZero() {
		return ErrNotLocked
	}
	defer func() {
		l.deadline = time.Time{}
	}()
	if time.Now().After(l.deadline) {
		// 已经过期，锁可能被别人拿走了
		return nil
	}
	ctx, cancel := context.WithDeadline(context.Background(), l.deadline)
	defer cancel()
	return ErrRedis.Wrap(l.unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Err())
}
