// Package notify 通过 websocket 向在线用户推送实时事件。
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"socialspark-backend/internal/events"
	"socialspark-backend/internal/util"

	"go.uber.org/zap"
)

// Message 是推送给客户端的消息
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub 维护用户与其 websocket 连接的映射
type Hub struct {
	userConns  map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		userConns:  make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
	}
}

// Run 处理连接注册与注销，直到 ctx 结束
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.userConns[client.UserID] == nil {
				h.userConns[client.UserID] = make(map[*Client]bool)
			}
			h.userConns[client.UserID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.Lock()
			for userID, clients := range h.userConns {
				for client := range clients {
					close(client.Send)
				}
				delete(h.userConns, userID)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.userConns[client.UserID]
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.userConns, client.UserID)
	}
	close(client.Send)
}

// SendToUser 向用户的所有连接推送消息，发送缓冲已满的连接会被断开
func (h *Hub) SendToUser(userID string, msg *Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		util.Logger.Error("序列化推送消息失败", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.userConns[userID] {
		select {
		case client.Send <- data:
			delivered++
		default:
			select {
			case h.unregister <- client:
			default:
			}
		}
	}
	return delivered
}

// IsOnline 判断用户是否有活跃连接
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// Handle 实现 events.Sink，将事件推送给接收者
func (h *Hub) Handle(ctx context.Context, event events.Event) error {
	recipient := event.Recipient()
	if recipient == "" {
		return nil
	}
	n := h.SendToUser(recipient, &Message{Event: event.Name, Data: event})
	if n > 0 {
		util.Logger.Debug("实时事件已推送", zap.String("event", event.Name), zap.String("user_id", recipient), zap.Int("connections", n))
	}
	return nil
}

var _ events.Sink = (*Hub)(nil)
