package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"socialspark-backend/internal/util"

	"go.uber.org/zap"
)

// sinkTimeout 单个 sink 处理一条事件的最长时间
const sinkTimeout = 30 * time.Second

// Queue 是带缓冲的事件队列，由单个 worker 将事件依次分发给所有 sink
type Queue struct {
	ch      chan Event
	sinks   []Sink
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

// NewQueue 创建队列并启动 worker
func NewQueue(size int, sinks ...Sink) *Queue {
	if size <= 0 {
		size = 1
	}
	q := &Queue{
		ch:    make(chan Event, size),
		sinks: sinks,
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

// Emit 将事件放入队列；队列已满或已关闭时丢弃并记录警告
func (q *Queue) Emit(ctx context.Context, event Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		util.Logger.Warn("事件队列已关闭，丢弃事件", zap.String("event", event.Name), zap.String("event_id", event.ID))
		return
	}

	select {
	case q.ch <- event:
	default:
		q.dropped.Add(1)
		util.Logger.Warn("事件队列已满，丢弃事件", zap.String("event", event.Name), zap.String("event_id", event.ID))
	}
}

// Dropped 返回因队列已满丢弃的事件数
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

func (q *Queue) run() {
	defer close(q.done)
	for event := range q.ch {
		q.dispatch(event)
	}
}

func (q *Queue) dispatch(event Event) {
	for _, sink := range q.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := q.handle(ctx, sink, event)
		cancel()
		if err != nil {
			util.Logger.Error("事件处理失败",
				zap.Error(err),
				zap.String("event", event.Name),
				zap.String("event_id", event.ID))
		}
	}
}

func (q *Queue) handle(ctx context.Context, sink Sink, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return sink.Handle(ctx, event)
}

// Close 停止接收新事件，等待已入队事件处理完毕或 ctx 结束
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
