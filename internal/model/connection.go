package model

import (
	"strconv"
	"time"
)

// ConnectionStatus 连接请求状态
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
)

// ConnectionRequest 表示一对用户之间的连接请求，每个无序用户对最多一条
type ConnectionRequest struct {
	ID         string           `json:"_id"`
	FromUserID string           `json:"from_user_id"`
	ToUserID   string           `json:"to_user_id"`
	Status     ConnectionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Involves 判断请求是否属于给定的无序用户对
func (r *ConnectionRequest) Involves(a, b string) bool {
	return (r.FromUserID == a && r.ToUserID == b) || (r.FromUserID == b && r.ToUserID == a)
}

// RelationshipCounts 关注/连接操作后的计数视图
type RelationshipCounts struct {
	UserID          string `json:"user_id"`
	TargetID        string `json:"target_id"`
	Following       int    `json:"following_count"`
	TargetFollowers int    `json:"target_followers_count"`
	IsFollowing     bool   `json:"is_following"`
}

// PendingConnection 待处理的入站连接请求及请求者资料
type PendingConnection struct {
	Request *ConnectionRequest `json:"request"`
	From    UserSummary        `json:"from_user"`
}

// ConnectionsView 用户的关系总览
type ConnectionsView struct {
	Connections        []UserSummary       `json:"connections"`
	Followers          []UserSummary       `json:"followers"`
	Following          []UserSummary       `json:"following"`
	PendingConnections []PendingConnection `json:"pendingConnections"`
}

// PairKey 返回无序用户对的规范键，较小的ID带长度前缀
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strconv.Itoa(len(a)) + ":" + a + ":" + b
}
