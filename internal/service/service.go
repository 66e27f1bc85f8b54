package service

import (
	"context"
	stderrors "errors"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/model"
	"socialspark-backend/internal/repository/interfaces"
	"socialspark-backend/internal/storage"
)

// UserServiceInterface 用户服务接口
type UserServiceInterface interface {
	EnsureUser(ctx context.Context, identity model.Identity) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate, media ProfileMedia) (*model.User, error)
	Discover(ctx context.Context, actorID, query string) ([]*model.User, error)
	GetProfile(ctx context.Context, profileID, viewerID string) (*model.ProfileView, error)
}

// RelationshipServiceInterface 关注与连接服务接口
type RelationshipServiceInterface interface {
	Follow(ctx context.Context, actorID, targetID string) (*model.RelationshipCounts, error)
	Unfollow(ctx context.Context, actorID, targetID string) (*model.RelationshipCounts, error)
	RequestConnection(ctx context.Context, actorID, targetID string) (*model.ConnectionRequest, error)
	AcceptConnection(ctx context.Context, recipientID, requesterID string) (*model.ConnectionRequest, error)
	ListConnections(ctx context.Context, userID string) (*model.ConnectionsView, error)
}

// EngagementServiceInterface 点赞、评论、分享服务接口
type EngagementServiceInterface interface {
	ToggleLike(ctx context.Context, actorID, postID string) (*model.LikeState, error)
	AddComment(ctx context.Context, actorID, postID, text string) (*model.CommentResult, error)
	SharePost(ctx context.Context, actorID, postID string) (*model.ShareResult, error)
}

// PostServiceInterface 帖子服务接口
type PostServiceInterface interface {
	CreatePost(ctx context.Context, actorID, content string, images []storage.Object) (*model.Post, error)
	Feed(ctx context.Context, actorID string, page, pageSize int) (*model.Feed, error)
	ListComments(ctx context.Context, postID string) ([]*model.Comment, error)
}

var (
	_ UserServiceInterface         = (*UserService)(nil)
	_ RelationshipServiceInterface = (*RelationshipService)(nil)
	_ EngagementServiceInterface   = (*EngagementService)(nil)
	_ PostServiceInterface         = (*PostService)(nil)
)

// storeError 保留业务错误，其余包装为数据库错误
func storeError(message string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrInternal, "请求已取消", err)
	}
	return errors.Database(message, err)
}

// attachAuthors 为帖子填充作者简要信息
func attachAuthors(ctx context.Context, users interfaces.UserRepository, posts []*model.Post) error {
	ids := make([]string, 0, len(posts))
	seen := make(map[string]bool, len(posts))
	for _, p := range posts {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			ids = append(ids, p.UserID)
		}
	}
	summaries, err := users.FindSummaries(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]model.UserSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}
	for _, p := range posts {
		if s, ok := byID[p.UserID]; ok {
			p.User = &s
		}
	}
	return nil
}
