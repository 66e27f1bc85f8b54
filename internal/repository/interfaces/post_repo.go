package interfaces

import (
	"context"
	"time"

	"socialspark-backend/internal/model"
)

// PostRepository 定义帖子本身的存储操作
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	// FindByID 返回带互动计数的帖子，不存在返回 (nil, nil)
	FindByID(ctx context.Context, id, viewerID string) (*model.Post, error)
	// ListByAuthors 按创建时间倒序分页列出给定作者的帖子
	ListByAuthors(ctx context.Context, authorIDs []string, viewerID string, offset, limit int) ([]*model.Post, int, error)
}

// EngagementRepository 定义点赞、评论、分享的存储操作
type EngagementRepository interface {
	// WithinPostTx 锁定帖子后执行 fn，帖子不存在返回 ErrNotFound
	WithinPostTx(ctx context.Context, postID string, fn func(tx EngagementTx) error) error
	ListComments(ctx context.Context, postID string) ([]*model.Comment, error)
}

// EngagementTx 是帖子事务内可用的操作
type EngagementTx interface {
	Post() *model.Post
	HasLiked(userID string) (bool, error)
	AddLike(userID string, at time.Time) error
	RemoveLike(userID string) error
	Likes() ([]string, error)
	AppendComment(comment *model.Comment) error
	CommentCount() (int, error)
	IncrementShares() (int, error)
}
