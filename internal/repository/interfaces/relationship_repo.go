package interfaces

import (
	"context"
	"time"

	"socialspark-backend/internal/model"
)

// RelationshipRepository 定义关注、连接及连接请求的存储操作
type RelationshipRepository interface {
	// WithinTx 在单个事务内执行 fn；userIDs 中存在的用户在事务期间被加锁，
	// fn 返回错误时全部修改回滚。
	WithinTx(ctx context.Context, userIDs []string, fn func(tx RelationshipTx) error) error

	ListFollowers(ctx context.Context, userID string) ([]string, error)
	ListFollowing(ctx context.Context, userID string) ([]string, error)
	ListConnections(ctx context.Context, userID string) ([]string, error)
	ListPendingInbound(ctx context.Context, userID string) ([]*model.ConnectionRequest, error)
}

// RelationshipTx 是事务内可用的操作，只能访问加锁的用户
type RelationshipTx interface {
	UserExists(id string) (bool, error)

	IsFollowing(followerID, followedID string) (bool, error)
	AddFollow(followerID, followedID string, at time.Time) error
	RemoveFollow(followerID, followedID string) (bool, error)
	CountFollowing(userID string) (int, error)
	CountFollowers(userID string) (int, error)

	// CountRequestsSince 统计 fromUserID 在 since 之后发出的连接请求数
	CountRequestsSince(fromUserID string, since time.Time) (int, error)
	// FindRequestBetween 查找无序用户对 {a, b} 的连接请求，不存在返回 (nil, nil)
	FindRequestBetween(a, b string) (*model.ConnectionRequest, error)
	CreateRequest(req *model.ConnectionRequest) error
	MarkAccepted(requestID string, at time.Time) error
	AddConnection(a, b string, at time.Time) error
}
