package mysql

import (
	"context"
	"database/sql"

	"socialspark-backend/internal/model"
	"socialspark-backend/internal/repository/interfaces"
	"socialspark-backend/internal/util"

	"go.uber.org/zap"
)

// userRepository 实现了 UserRepository 接口
type userRepository struct {
	db *sql.DB
}

// NewUserRepository 创建一个新的 userRepository 实例
func NewUserRepository(db *sql.DB) interfaces.UserRepository {
	return &userRepository{db}
}

const userColumns = `id, email, full_name, username, COALESCE(bio, ''), profile_picture, cover_photo, location, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Email, &user.FullName, &user.Username, &user.Bio,
		&user.ProfilePicture, &user.CoverPhoto, &user.Location,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create 创建一个新用户，ID 或用户名冲突返回 ErrDuplicate
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, email, full_name, username, bio, profile_picture, cover_photo, location, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.FullName, user.Username, user.Bio,
		user.ProfilePicture, user.CoverPhoto, user.Location, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		err = translateError(err)
		if err != interfaces.ErrDuplicate {
			util.Logger.Error("创建用户失败", zap.Error(err), zap.String("user_id", user.ID))
		}
		return err
	}
	util.Logger.Info("用户创建成功", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return nil
}

// FindByID 通过ID查找用户，同时加载关注、粉丝与连接列表
func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		util.Logger.Error("查找用户失败", zap.Error(err), zap.String("user_id", id))
		return nil, err
	}

	if user.Following, err = queryIDs(ctx, r.db, `SELECT followed_id FROM follows WHERE follower_id = ? ORDER BY created_at DESC`, id); err != nil {
		return nil, err
	}
	if user.Followers, err = queryIDs(ctx, r.db, `SELECT follower_id FROM follows WHERE followed_id = ? ORDER BY created_at DESC`, id); err != nil {
		return nil, err
	}
	if user.Connections, err = queryIDs(ctx, r.db, `SELECT connected_id FROM connections WHERE user_id = ? ORDER BY created_at DESC`, id); err != nil {
		return nil, err
	}
	return user, nil
}

// FindByUsername 通过用户名查找用户
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, username).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Update 更新用户资料
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET username = ?, full_name = ?, bio = ?, location = ?,
              profile_picture = ?, cover_photo = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		user.Username, user.FullName, user.Bio, user.Location,
		user.ProfilePicture, user.CoverPhoto, user.UpdatedAt, user.ID)
	if err != nil {
		err = translateError(err)
		if err != interfaces.ErrDuplicate {
			util.Logger.Error("更新用户失败", zap.Error(err), zap.String("user_id", user.ID))
		}
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, user.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return interfaces.ErrNotFound
		}
	}
	return nil
}

// Search 按用户名、邮箱、姓名、地区模糊搜索用户
func (r *userRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]*model.User, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id != ? AND (username LIKE ? OR email LIKE ? OR full_name LIKE ? OR location LIKE ?)
        ORDER BY username
        LIMIT ?`, excludeID, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		util.Logger.Error("搜索用户失败", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// FindSummaries 批量获取用户简要信息，保持输入顺序，忽略不存在的用户
func (r *userRepository) FindSummaries(ctx context.Context, ids []string) ([]model.UserSummary, error) {
	if len(ids) == 0 {
		return []model.UserSummary{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, full_name, username, profile_picture, COALESCE(bio, ''), location
        FROM users WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		util.Logger.Error("批量获取用户失败", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]model.UserSummary, len(ids))
	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.FullName, &s.Username, &s.ProfilePicture, &s.Bio, &s.Location); err != nil {
			return nil, err
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summaries := make([]model.UserSummary, 0, len(byID))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			summaries = append(summaries, s)
		}
	}
	return summaries, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func queryIDs(ctx context.Context, q queryer, query string, args ...interface{}) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
