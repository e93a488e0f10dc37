package locker

import "time"

// Locker 上传导出文件时对同一个对象 key 加锁，避免并发覆盖
type Locker interface {
	//Lock 尝试加锁一次，exp 为锁的过期时间，已被占用时立即返回错误
	Lock(exp time.Duration) error
	//TryLock 在 wait 时间内重复尝试加锁，超时返回错误
	TryLock(wait time.Duration) error
	//Unlock 只释放自己持有的锁，未持有时返回错误
	Unlock() error
}
