// Package events 提供领域事件的异步分发。
//
// 事件在数据提交之后发出，投递为尽力而为：失败只记录日志，不回滚状态。
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ConnectionRequested = "connection-requested"
	ConnectionAccepted  = "connection-accepted"
)

// Event 是一条出站事件
type Event struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data"`
}

// New 创建带唯一ID的事件
func New(name string, data map[string]string) Event {
	return Event{
		ID:         uuid.New().String(),
		Name:       name,
		OccurredAt: time.Now(),
		Data:       data,
	}
}

// Recipient 返回事件的接收者用户ID
func (e Event) Recipient() string {
	switch e.Name {
	case ConnectionRequested:
		return e.Data["to_user_id"]
	case ConnectionAccepted:
		return e.Data["from_user_id"]
	}
	return ""
}

// Emitter 发出事件，不阻塞调用方
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Sink 消费事件
type Sink interface {
	Handle(ctx context.Context, event Event) error
}

// SinkFunc 将函数适配为 Sink
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Discard 丢弃所有事件
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(context.Context, Event) {}
