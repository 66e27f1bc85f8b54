// Package ratelimit 实现基于滑动窗口的请求限流。
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"socialspark-backend/internal/errors"
)

// Counter 统计某用户在给定时间之后创建的请求数
type Counter interface {
	CountRequestsSince(userID string, since time.Time) (int, error)
}

// CounterFunc 将普通函数适配为 Counter
type CounterFunc func(userID string, since time.Time) (int, error)

func (f CounterFunc) CountRequestsSince(userID string, since time.Time) (int, error) {
	return f(userID, since)
}

// Window 在 Period 内最多允许 Limit 次请求
type Window struct {
	Limit  int
	Period time.Duration
	Now    func() time.Time
}

// NewWindow 创建一个使用系统时钟的限流窗口
func NewWindow(limit int, period time.Duration) *Window {
	return &Window{Limit: limit, Period: period, Now: time.Now}
}

func (w *Window) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

// Since 返回当前窗口的起点，窗口不包含该时刻
func (w *Window) Since() time.Time {
	return w.now().Add(-w.Period)
}

// Check 在用户已达到上限时返回 ErrRateLimited
func (w *Window) Check(ctx context.Context, counter Counter, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	count, err := counter.CountRequestsSince(userID, w.Since())
	if err != nil {
		return errors.Database("统计连接请求失败", err)
	}
	if count >= w.Limit {
		return errors.New(errors.ErrRateLimited,
			fmt.Sprintf("you have sent more than %d connection requests in the last %s", w.Limit, w.Period))
	}
	return nil
}
