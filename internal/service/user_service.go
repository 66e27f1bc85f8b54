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

	"go.uber.org/zap"
)

const (
	// MaxDiscoverResults 搜索用户返回的最大数量
	MaxDiscoverResults = 50
	maxHandleAttempts  = 20
)

// ProfileMedia 更新资料时上传的图片，nil 表示不修改
type ProfileMedia struct {
	Profile *storage.Object
	Cover   *storage.Object
}

// UserService 处理与用户相关的业务逻辑
type UserService struct {
	userRepo interfaces.UserRepository
	postRepo interfaces.PostRepository
	storage  storage.Storage
	now      func() time.Time
}

// NewUserService 创建一个新的 UserService 实例
func NewUserService(userRepo interfaces.UserRepository, postRepo interfaces.PostRepository, store storage.Storage) *UserService {
	return &UserService{
		userRepo: userRepo,
		postRepo: postRepo,
		storage:  store,
		now:      time.Now,
	}
}

// EnsureUser 返回身份对应的用户，不存在时创建
func (s *UserService) EnsureUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, storeError("查找用户失败", err)
	}
	if user != nil {
		return user, nil
	}

	base := util.DeriveUsername(identity.UserID, identity.Email, identity.FullName)
	now := s.now()
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		username := base
		if attempt > 1 {
			username = fmt.Sprintf("%s_%d", base, attempt)
		}

		taken, err := s.userRepo.FindByUsername(ctx, username)
		if err != nil {
			return nil, storeError("检查用户名失败", err)
		}
		if taken != nil {
			continue
		}

		user = &model.User{
			ID:             identity.UserID,
			Email:          identity.Email,
			FullName:       identity.FullName,
			Username:       username,
			ProfilePicture: identity.Picture,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err = s.userRepo.Create(ctx, user)
		if err == nil {
			util.Logger.Info("新用户已创建", zap.String("user_id", user.ID), zap.String("username", username))
			user.Followers, user.Following, user.Connections = []string{}, []string{}, []string{}
			return user, nil
		}
		if !stderrors.Is(err, interfaces.ErrDuplicate) {
			return nil, storeError("创建用户失败", err)
		}

		// 可能是同一用户的并发请求已完成创建
		existing, err := s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, storeError("查找用户失败", err)
		}
		if existing != nil {
			return existing, nil
		}
	}
	return nil, errors.New(errors.ErrInternal, "无法分配用户名")
}

// GetUser 获取用户
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("获取用户失败", err)
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "User not found")
	}
	return user, nil
}

// UpdateProfile 更新用户资料；请求的用户名已被占用时保留原用户名
func (s *UserService) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate, media ProfileMedia) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	oldUsername := user.Username

	if username := strings.TrimSpace(update.Username); username != "" && username != user.Username {
		owner, err := s.userRepo.FindByUsername(ctx, username)
		if err != nil {
			return nil, storeError("检查用户名失败", err)
		}
		if owner == nil {
			user.Username = username
		}
	}
	if update.FullName != "" {
		user.FullName = update.FullName
	}
	if update.Bio != "" {
		user.Bio = update.Bio
	}
	if update.Location != "" {
		user.Location = update.Location
	}

	if media.Profile != nil {
		url, err := s.storage.Upload(ctx, *media.Profile, storage.Key("profiles", id, media.Profile.Filename))
		if err != nil {
			return nil, errors.Wrap(errors.ErrStorage, "上传头像失败", err)
		}
		user.ProfilePicture = url
	}
	if media.Cover != nil {
		url, err := s.storage.Upload(ctx, *media.Cover, storage.Key("covers", id, media.Cover.Filename))
		if err != nil {
			return nil, errors.Wrap(errors.ErrStorage, "上传封面失败", err)
		}
		user.CoverPhoto = url
	}
	user.UpdatedAt = s.now()

	err = s.userRepo.Update(ctx, user)
	if stderrors.Is(err, interfaces.ErrDuplicate) && user.Username != oldUsername {
		// 用户名在检查之后被他人占用
		user.Username = oldUsername
		err = s.userRepo.Update(ctx, user)
	}
	if err != nil {
		return nil, storeError("更新用户资料失败", err)
	}

	util.Logger.Info("用户资料已更新", zap.String("user_id", id))
	return user, nil
}

// Discover 按关键字搜索用户，不包含调用者本人
func (s *UserService) Discover(ctx context.Context, actorID, query string) ([]*model.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.User{}, nil
	}
	users, err := s.userRepo.Search(ctx, query, actorID, MaxDiscoverResults)
	if err != nil {
		return nil, storeError("搜索用户失败", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// GetProfile 返回用户资料及其全部帖子，按时间倒序
func (s *UserService) GetProfile(ctx context.Context, profileID, viewerID string) (*model.ProfileView, error) {
	user, err := s.GetUser(ctx, profileID)
	if err != nil {
		return nil, err
	}

	posts, _, err := s.postRepo.ListByAuthors(ctx, []string{profileID}, viewerID, 0, 0)
	if err != nil {
		return nil, storeError("获取用户帖子失败", err)
	}
	summary := user.Summary()
	for _, p := range posts {
		p.User = &summary
	}
	return &model.ProfileView{Profile: user, Posts: posts}, nil
}
