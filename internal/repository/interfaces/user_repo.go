package interfaces

import (
	"context"

	"socialspark-backend/internal/model"
)

// UserRepository 接口定义了用户仓库应该实现的方法
//
// 查找方法在记录不存在时返回 (nil, nil)。
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Search(ctx context.Context, query, excludeID string, limit int) ([]*model.User, error)
	FindSummaries(ctx context.Context, ids []string) ([]model.UserSummary, error)
}
