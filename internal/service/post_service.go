package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/model"
	"socialspark-backend/internal/repository/interfaces"
	"socialspark-backend/internal/storage"
	"socialspark-backend/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PostService 处理帖子的发布与浏览
type PostService struct {
	users      interfaces.UserRepository
	posts      interfaces.PostRepository
	engagement interfaces.EngagementRepository
	storage    storage.Storage
	now        func() time.Time
}

func NewPostService(users interfaces.UserRepository, posts interfaces.PostRepository, engagement interfaces.EngagementRepository, store storage.Storage) *PostService {
	return &PostService{
		users:      users,
		posts:      posts,
		engagement: engagement,
		storage:    store,
		now:        time.Now,
	}
}

// CreatePost 发布帖子，最多四张图片，内容和图片至少有一项
func (s *PostService) CreatePost(ctx context.Context, actorID, content string, images []storage.Object) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if len(images) > model.MaxPostImages {
		return nil, errors.New(errors.ErrInvalidPost, fmt.Sprintf("A post can have at most %d images", model.MaxPostImages))
	}
	if content == "" && len(images) == 0 {
		return nil, errors.New(errors.ErrInvalidPost, "Post content or images are required")
	}

	urls := make([]string, 0, len(images))
	for _, img := range images {
		url, err := s.storage.Upload(ctx, img, storage.Key("posts", actorID, img.Filename))
		if err != nil {
			return nil, errors.Wrap(errors.ErrStorage, "上传图片失败", err)
		}
		urls = append(urls, url)
	}

	post := &model.Post{
		ID:        uuid.New().String(),
		UserID:    actorID,
		Content:   content,
		ImageURLs: urls,
		PostType:  model.PostTypeFor(content, len(urls)),
		CreatedAt: s.now(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, storeError("创建帖子失败", err)
	}
	if err := attachAuthors(ctx, s.users, []*model.Post{post}); err != nil {
		util.Logger.Warn("获取作者信息失败", zap.Error(err), zap.String("post_id", post.ID))
	}

	util.Logger.Info("帖子已发布", zap.String("post_id", post.ID), zap.String("user_id", actorID))
	return post, nil
}

// Feed 返回本人、连接和关注用户的帖子，按时间倒序分页
func (s *PostService) Feed(ctx context.Context, actorID string, page, pageSize int) (*model.Feed, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	user, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, storeError("获取用户失败", err)
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "User not found")
	}

	authors := make([]string, 0, 1+len(user.Connections)+len(user.Following))
	authors = append(authors, actorID)
	authors = append(authors, user.Connections...)
	authors = append(authors, user.Following...)

	posts, total, err := s.posts.ListByAuthors(ctx, dedupe(authors), actorID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, storeError("获取信息流失败", err)
	}
	if err := attachAuthors(ctx, s.users, posts); err != nil {
		return nil, storeError("获取作者信息失败", err)
	}
	return &model.Feed{Posts: posts, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListComments 按时间顺序返回帖子的评论
func (s *PostService) ListComments(ctx context.Context, postID string) ([]*model.Comment, error) {
	comments, err := s.engagement.ListComments(ctx, postID)
	if err != nil {
		if stderrors.Is(err, interfaces.ErrNotFound) {
			return nil, errors.New(errors.ErrPostNotFound, "Post not found")
		}
		return nil, storeError("获取评论失败", err)
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	summaries, err := s.users.FindSummaries(ctx, dedupe(ids))
	if err != nil {
		return nil, storeError("获取评论者信息失败", err)
	}
	byID := make(map[string]model.UserSummary, len(summaries))
	for _, u := range summaries {
		byID[u.ID] = u
	}
	for _, c := range comments {
		if u, ok := byID[c.UserID]; ok {
			c.User = &u
		}
	}
	return comments, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
