package mysql

import (
	"context"
	"database/sql"
	"time"

	"socialspark-backend/internal/model"
	"socialspark-backend/internal/repository/interfaces"
	"socialspark-backend/internal/util"

	"go.uber.org/zap"
)

type relationshipRepository struct {
	db *sql.DB
}

// NewRelationshipRepository 创建基于 MySQL 的关系仓库
func NewRelationshipRepository(db *sql.DB) interfaces.RelationshipRepository {
	return &relationshipRepository{db: db}
}

// WithinTx 开启事务并按ID顺序锁定用户行
func (r *relationshipRepository) WithinTx(ctx context.Context, userIDs []string, fn func(tx interfaces.RelationshipTx) error) (err error) {
	ids := sortedUnique(userIDs)

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				util.Logger.Error("回滚事务失败", zap.Error(rbErr))
			}
			return
		}
		err = sqlTx.Commit()
	}()

	existing := make(map[string]bool, len(ids))
	if len(ids) > 0 {
		rows, err := sqlTx.QueryContext(ctx,
			`SELECT id FROM users WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id FOR UPDATE`,
			stringArgs(ids)...)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			existing[id] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}

	return fn(&relationshipTx{ctx: ctx, tx: sqlTx, existing: existing})
}

func (r *relationshipRepository) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	return queryIDs(ctx, r.db, `SELECT follower_id FROM follows WHERE followed_id = ? ORDER BY created_at DESC`, userID)
}

func (r *relationshipRepository) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	return queryIDs(ctx, r.db, `SELECT followed_id FROM follows WHERE follower_id = ? ORDER BY created_at DESC`, userID)
}

func (r *relationshipRepository) ListConnections(ctx context.Context, userID string) ([]string, error) {
	return queryIDs(ctx, r.db, `SELECT connected_id FROM connections WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (r *relationshipRepository) ListPendingInbound(ctx context.Context, userID string) ([]*model.ConnectionRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, from_user_id, to_user_id, status, created_at, updated_at
        FROM connection_requests
        WHERE to_user_id = ? AND status = 'pending'
        ORDER BY created_at DESC`, userID)
	if err != nil {
		util.Logger.Error("查询待处理连接请求失败", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}
	defer rows.Close()

	requests := []*model.ConnectionRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(row interface{ Scan(...interface{}) error }) (*model.ConnectionRequest, error) {
	var req model.ConnectionRequest
	var status string
	if err := row.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &status, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	req.Status = model.ConnectionStatus(status)
	return &req, nil
}

type relationshipTx struct {
	ctx      context.Context
	tx       *sql.Tx
	existing map[string]bool
}

func (t *relationshipTx) UserExists(id string) (bool, error) {
	if t.existing[id] {
		return true, nil
	}
	var exists bool
	err := t.tx.QueryRowContext(t.ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists)
	return exists, err
}

func (t *relationshipTx) IsFollowing(followerID, followedID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = ? AND followed_id = ?)`,
		followerID, followedID).Scan(&exists)
	return exists, err
}

func (t *relationshipTx) AddFollow(followerID, followedID string, at time.Time) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO follows (follower_id, followed_id, created_at) VALUES (?, ?, ?)`,
		followerID, followedID, at)
	return translateError(err)
}

func (t *relationshipTx) RemoveFollow(followerID, followedID string) (bool, error) {
	result, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followed_id = ?`, followerID, followedID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (t *relationshipTx) CountFollowing(userID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx, `SELECT COUNT(*) FROM follows WHERE follower_id = ?`, userID).Scan(&n)
	return n, err
}

func (t *relationshipTx) CountFollowers(userID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx, `SELECT COUNT(*) FROM follows WHERE followed_id = ?`, userID).Scan(&n)
	return n, err
}

func (t *relationshipTx) CountRequestsSince(fromUserID string, since time.Time) (int, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT COUNT(*) FROM connection_requests WHERE from_user_id = ? AND created_at > ?`,
		fromUserID, since).Scan(&n)
	return n, err
}

func (t *relationshipTx) FindRequestBetween(a, b string) (*model.ConnectionRequest, error) {
	req, err := scanRequest(t.tx.QueryRowContext(t.ctx, `
        SELECT id, from_user_id, to_user_id, status, created_at, updated_at
        FROM connection_requests WHERE pair_key = ? FOR UPDATE`, model.PairKey(a, b)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return req, err
}

func (t *relationshipTx) CreateRequest(req *model.ConnectionRequest) error {
	_, err := t.tx.ExecContext(t.ctx, `
        INSERT INTO connection_requests (id, from_user_id, to_user_id, pair_key, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.FromUserID, req.ToUserID, model.PairKey(req.FromUserID, req.ToUserID),
		string(req.Status), req.CreatedAt, req.UpdatedAt)
	return translateError(err)
}

// MarkAccepted 仅当请求仍处于 pending 时更新
func (t *relationshipTx) MarkAccepted(requestID string, at time.Time) error {
	result, err := t.tx.ExecContext(t.ctx,
		`UPDATE connection_requests SET status = 'accepted', updated_at = ? WHERE id = ? AND status = 'pending'`,
		at, requestID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (t *relationshipTx) AddConnection(a, b string, at time.Time) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT IGNORE INTO connections (user_id, connected_id, created_at) VALUES (?, ?, ?), (?, ?, ?)`,
		a, b, at, b, a, at)
	return translateError(err)
}
