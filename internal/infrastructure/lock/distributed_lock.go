package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 【为什么需要分布式锁？】
//
// 场景1：同一个会员ID被并发注册（前端重复提交、导入任务重跑）
//   不加锁时两个请求都可能通过"是否已存在"检查，各写一份闭包表记录。
//   加锁后同一 member_id 的注册串行化，后到的请求会看到已存在并报重复。
//
// 场景2：同一笔交易被并发结算
//   台账有唯一索引兜底不会重复出账，但加锁可以让后到的请求
//   直接读到先到请求落库的结果，而不是撞唯一索引再回查。
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：使用 Lua 脚本保证"检查+删除"的原子性
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
// Lua 脚本先校验 value 再删除，避免删掉别人持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// 便捷函数：业务维度的锁
// ============================================================================

// NewEnrollLock 创建注册锁（按新会员ID维度）
// 不同会员可以并发注册；同一推荐人下的并发注册只读推荐人链路，
// 互不冲突，所以锁粒度是"被注册的会员"而不是推荐人
func NewEnrollLock(client *redis.Client, memberID int64) *DistributedLock {
	key := fmt.Sprintf("referral:lock:enroll:%d", memberID)
	value := fmt.Sprintf("%d", time.Now().UnixNano())
	return NewDistributedLock(client, key, value, 30*time.Second)
}

// NewSettleLock 创建结算锁（按交易号维度）
// 不同交易的返佣计算完全并行；同一交易的并发结算串行化
func NewSettleLock(client *redis.Client, transactionNo string) *DistributedLock {
	key := fmt.Sprintf("referral:lock:settle:%s", transactionNo)
	value := fmt.Sprintf("%d", time.Now().UnixNano())
	return NewDistributedLock(client, key, value, 30*time.Second)
}
