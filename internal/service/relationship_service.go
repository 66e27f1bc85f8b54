package service

import (
	"context"
	stderrors "errors"
	"time"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/events"
	"socialspark-backend/internal/model"
	"socialspark-backend/internal/ratelimit"
	"socialspark-backend/internal/repository/interfaces"
	"socialspark-backend/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RelationshipService 处理关注与连接请求
//
// 每个操作在一个仓库事务内完成，涉及的用户在事务期间被锁定；
// 事件仅在事务提交后发出。
type RelationshipService struct {
	users   interfaces.UserRepository
	rels    interfaces.RelationshipRepository
	window  *ratelimit.Window
	emitter events.Emitter
	now     func() time.Time
}

// NewRelationshipService 创建关系服务，window 的时钟同时用于请求创建时间
func NewRelationshipService(users interfaces.UserRepository, rels interfaces.RelationshipRepository, window *ratelimit.Window, emitter events.Emitter) *RelationshipService {
	now := time.Now
	if window.Now != nil {
		now = window.Now
	}
	if emitter == nil {
		emitter = events.Discard
	}
	return &RelationshipService{
		users:   users,
		rels:    rels,
		window:  window,
		emitter: emitter,
		now:     now,
	}
}

func requireUsers(tx interfaces.RelationshipTx, ids ...string) error {
	for _, id := range ids {
		ok, err := tx.UserExists(id)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(errors.ErrUserNotFound, "User not found")
		}
	}
	return nil
}

// Follow 关注目标用户，重复关注返回 ErrAlreadyFollowing
func (s *RelationshipService) Follow(ctx context.Context, actorID, targetID string) (*model.RelationshipCounts, error) {
	if actorID == targetID {
		return nil, errors.New(errors.ErrSelfRelation, "You cannot follow yourself")
	}

	var counts *model.RelationshipCounts
	err := s.rels.WithinTx(ctx, []string{actorID, targetID}, func(tx interfaces.RelationshipTx) error {
		if err := requireUsers(tx, targetID, actorID); err != nil {
			return err
		}
		following, err := tx.IsFollowing(actorID, targetID)
		if err != nil {
			return err
		}
		if following {
			return errors.New(errors.ErrAlreadyFollowing, "You are already following this user")
		}
		if err := tx.AddFollow(actorID, targetID, s.now()); err != nil {
			if stderrors.Is(err, interfaces.ErrDuplicate) {
				return errors.New(errors.ErrAlreadyFollowing, "You are already following this user")
			}
			return err
		}
		counts, err = relationshipCounts(tx, actorID, targetID, true)
		return err
	})
	if err != nil {
		return nil, storeError("关注用户失败", err)
	}

	util.Logger.Info("关注成功", zap.String("user_id", actorID), zap.String("target_id", targetID))
	return counts, nil
}

// Unfollow 取消关注；未关注时同样视为成功
func (s *RelationshipService) Unfollow(ctx context.Context, actorID, targetID string) (*model.RelationshipCounts, error) {
	if actorID == targetID {
		return nil, errors.New(errors.ErrSelfRelation, "You cannot unfollow yourself")
	}

	var counts *model.RelationshipCounts
	err := s.rels.WithinTx(ctx, []string{actorID, targetID}, func(tx interfaces.RelationshipTx) error {
		removed, err := tx.RemoveFollow(actorID, targetID)
		if err != nil {
			return err
		}
		if removed {
			util.Logger.Info("取消关注成功", zap.String("user_id", actorID), zap.String("target_id", targetID))
		}
		counts, err = relationshipCounts(tx, actorID, targetID, false)
		return err
	})
	if err != nil {
		return nil, storeError("取消关注失败", err)
	}
	return counts, nil
}

func relationshipCounts(tx interfaces.RelationshipTx, actorID, targetID string, following bool) (*model.RelationshipCounts, error) {
	nFollowing, err := tx.CountFollowing(actorID)
	if err != nil {
		return nil, err
	}
	nFollowers, err := tx.CountFollowers(targetID)
	if err != nil {
		return nil, err
	}
	return &model.RelationshipCounts{
		UserID:          actorID,
		TargetID:        targetID,
		Following:       nFollowing,
		TargetFollowers: nFollowers,
		IsFollowing:     following,
	}, nil
}

// RequestConnection 发起连接请求
//
// 检查顺序：自身、目标存在、限流、已有请求。
func (s *RelationshipService) RequestConnection(ctx context.Context, actorID, targetID string) (*model.ConnectionRequest, error) {
	if actorID == targetID {
		return nil, errors.New(errors.ErrSelfRelation, "You cannot connect with yourself")
	}

	var created *model.ConnectionRequest
	err := s.rels.WithinTx(ctx, []string{actorID, targetID}, func(tx interfaces.RelationshipTx) error {
		if err := requireUsers(tx, targetID, actorID); err != nil {
			return err
		}

		// 发起者已被锁定，并发请求在此串行化
		if err := s.window.Check(ctx, tx, actorID); err != nil {
			return err
		}

		existing, err := tx.FindRequestBetween(actorID, targetID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == model.ConnectionAccepted {
				return errors.New(errors.ErrAlreadyConnected, "You are already connected with this user")
			}
			return errors.New(errors.ErrRequestPending, "Connection request pending")
		}

		now := s.now()
		req := &model.ConnectionRequest{
			ID:         uuid.New().String(),
			FromUserID: actorID,
			ToUserID:   targetID,
			Status:     model.ConnectionPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.CreateRequest(req); err != nil {
			if stderrors.Is(err, interfaces.ErrDuplicate) {
				return errors.New(errors.ErrRequestPending, "Connection request pending")
			}
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		if errors.HasCode(err, errors.ErrRateLimited) {
			util.Logger.Warn("连接请求被限流", zap.String("user_id", actorID))
		}
		return nil, storeError("发送连接请求失败", err)
	}

	util.Logger.Info("连接请求已创建",
		zap.String("connection_id", created.ID),
		zap.String("from_user_id", actorID),
		zap.String("to_user_id", targetID))

	s.emitter.Emit(ctx, events.New(events.ConnectionRequested, map[string]string{
		"connection_id": created.ID,
		"from_user_id":  created.FromUserID,
		"to_user_id":    created.ToUserID,
	}))
	return created, nil
}

// AcceptConnection 接受 requesterID 发给 recipientID 的待处理请求
func (s *RelationshipService) AcceptConnection(ctx context.Context, recipientID, requesterID string) (*model.ConnectionRequest, error) {
	if recipientID == requesterID {
		return nil, errors.New(errors.ErrSelfRelation, "You cannot connect with yourself")
	}

	var accepted *model.ConnectionRequest
	err := s.rels.WithinTx(ctx, []string{recipientID, requesterID}, func(tx interfaces.RelationshipTx) error {
		req, err := tx.FindRequestBetween(requesterID, recipientID)
		if err != nil {
			return err
		}
		if req == nil || req.FromUserID != requesterID || req.Status != model.ConnectionPending {
			return errors.New(errors.ErrRequestNotFound, "Connection not found")
		}

		now := s.now()
		if err := tx.AddConnection(recipientID, requesterID, now); err != nil {
			return err
		}
		if err := tx.MarkAccepted(req.ID, now); err != nil {
			if stderrors.Is(err, interfaces.ErrNotFound) {
				return errors.New(errors.ErrRequestNotFound, "Connection not found")
			}
			return err
		}
		req.Status = model.ConnectionAccepted
		req.UpdatedAt = now
		accepted = req
		return nil
	})
	if err != nil {
		return nil, storeError("接受连接请求失败", err)
	}

	util.Logger.Info("连接请求已接受", zap.String("connection_id", accepted.ID), zap.String("user_id", recipientID))

	s.emitter.Emit(ctx, events.New(events.ConnectionAccepted, map[string]string{
		"connection_id": accepted.ID,
		"from_user_id":  accepted.FromUserID,
		"to_user_id":    accepted.ToUserID,
	}))
	return accepted, nil
}

// ListConnections 返回用户的连接、粉丝、关注及待处理的入站请求
func (s *RelationshipService) ListConnections(ctx context.Context, userID string) (*model.ConnectionsView, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError("获取用户失败", err)
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "User not found")
	}

	view := &model.ConnectionsView{}
	if view.Connections, err = s.users.FindSummaries(ctx, user.Connections); err != nil {
		return nil, storeError("获取连接列表失败", err)
	}
	if view.Followers, err = s.users.FindSummaries(ctx, user.Followers); err != nil {
		return nil, storeError("获取粉丝列表失败", err)
	}
	if view.Following, err = s.users.FindSummaries(ctx, user.Following); err != nil {
		return nil, storeError("获取关注列表失败", err)
	}

	pending, err := s.rels.ListPendingInbound(ctx, userID)
	if err != nil {
		return nil, storeError("获取待处理请求失败", err)
	}
	fromIDs := make([]string, len(pending))
	for i, req := range pending {
		fromIDs[i] = req.FromUserID
	}
	senders, err := s.users.FindSummaries(ctx, fromIDs)
	if err != nil {
		return nil, storeError("获取请求者信息失败", err)
	}
	byID := make(map[string]model.UserSummary, len(senders))
	for _, u := range senders {
		byID[u.ID] = u
	}

	view.PendingConnections = make([]model.PendingConnection, 0, len(pending))
	for _, req := range pending {
		from, ok := byID[req.FromUserID]
		if !ok {
			continue
		}
		view.PendingConnections = append(view.PendingConnections, model.PendingConnection{Request: req, From: from})
	}
	return view, nil
}
