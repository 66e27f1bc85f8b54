package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"
	"unicode/utf8"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/model"
	"socialspark-backend/internal/repository/interfaces"
	"socialspark-backend/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxCommentLength 评论的最大字符数
const MaxCommentLength = 1000

// EngagementService 处理帖子的点赞、评论和分享
type EngagementService struct {
	users       interfaces.UserRepository
	engagement  interfaces.EngagementRepository
	frontendURL string
	now         func() time.Time
}

func NewEngagementService(users interfaces.UserRepository, engagement interfaces.EngagementRepository, frontendURL string) *EngagementService {
	return &EngagementService{
		users:       users,
		engagement:  engagement,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
		now:         time.Now,
	}
}

func postError(message string, err error) error {
	if stderrors.Is(err, interfaces.ErrNotFound) {
		return errors.New(errors.ErrPostNotFound, "Post not found")
	}
	return storeError(message, err)
}

// ToggleLike 已点赞则取消，否则点赞
func (s *EngagementService) ToggleLike(ctx context.Context, actorID, postID string) (*model.LikeState, error) {
	state := &model.LikeState{PostID: postID}
	err := s.engagement.WithinPostTx(ctx, postID, func(tx interfaces.EngagementTx) error {
		liked, err := tx.HasLiked(actorID)
		if err != nil {
			return err
		}
		if liked {
			err = tx.RemoveLike(actorID)
		} else {
			err = tx.AddLike(actorID, s.now())
		}
		if err != nil {
			return err
		}

		likes, err := tx.Likes()
		if err != nil {
			return err
		}
		state.Liked = !liked
		state.Likes = likes
		state.LikeCount = len(likes)
		return nil
	})
	if err != nil {
		return nil, postError("更新点赞失败", err)
	}
	return state, nil
}

// AddComment 追加一条评论，文本去除首尾空白后不能为空
func (s *EngagementService) AddComment(ctx context.Context, actorID, postID, text string) (*model.CommentResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New(errors.ErrInvalidComment, "Comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, errors.New(errors.ErrInvalidComment, "Comment is too long")
	}

	result := &model.CommentResult{}
	err := s.engagement.WithinPostTx(ctx, postID, func(tx interfaces.EngagementTx) error {
		comment := &model.Comment{
			ID:        uuid.New().String(),
			PostID:    postID,
			UserID:    actorID,
			Text:      text,
			CreatedAt: s.now(),
		}
		if err := tx.AppendComment(comment); err != nil {
			return err
		}
		count, err := tx.CommentCount()
		if err != nil {
			return err
		}
		result.Comment = comment
		result.CommentCount = count
		return nil
	})
	if err != nil {
		return nil, postError("添加评论失败", err)
	}

	if summaries, err := s.users.FindSummaries(ctx, []string{actorID}); err != nil {
		util.Logger.Warn("获取评论者信息失败", zap.Error(err), zap.String("user_id", actorID))
	} else if len(summaries) == 1 {
		result.Comment.User = &summaries[0]
	}
	return result, nil
}

// SharePost 分享次数加一并返回作者主页链接
func (s *EngagementService) SharePost(ctx context.Context, actorID, postID string) (*model.ShareResult, error) {
	result := &model.ShareResult{PostID: postID}
	err := s.engagement.WithinPostTx(ctx, postID, func(tx interfaces.EngagementTx) error {
		shares, err := tx.IncrementShares()
		if err != nil {
			return err
		}
		result.Shares = shares
		result.ShareURL = s.frontendURL + "/profile/" + tx.Post().UserID
		return nil
	})
	if err != nil {
		return nil, postError("分享帖子失败", err)
	}

	util.Logger.Info("帖子已分享", zap.String("post_id", postID), zap.String("user_id", actorID))
	return result, nil
}
