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

type engagementRepository struct {
	db *sql.DB
}

// NewEngagementRepository 创建基于 MySQL 的互动仓库
func NewEngagementRepository(db *sql.DB) interfaces.EngagementRepository {
	return &engagementRepository{db: db}
}

// WithinPostTx 以 FOR UPDATE 锁定帖子行，串行化同一帖子上的互动
func (r *engagementRepository) WithinPostTx(ctx context.Context, postID string, fn func(tx interfaces.EngagementTx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	var post model.Post
	err = sqlTx.QueryRowContext(ctx,
		`SELECT id, user_id, COALESCE(content, ''), post_type, share_count, created_at FROM posts WHERE id = ? FOR UPDATE`,
		postID).Scan(&post.ID, &post.UserID, &post.Content, &post.PostType, &post.ShareCount, &post.CreatedAt)
	if err != nil {
		return translateError(err)
	}

	if err := fn(&engagementTx{ctx: ctx, tx: sqlTx, post: post}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		util.Logger.Error("提交互动事务失败", zap.Error(err), zap.String("post_id", postID))
		return err
	}
	return nil
}

func (r *engagementRepository) ListComments(ctx context.Context, postID string) ([]*model.Comment, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = ?)`, postID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, post_id, user_id, text, created_at
        FROM post_comments WHERE post_id = ?
        ORDER BY created_at ASC, id ASC`, postID)
	if err != nil {
		util.Logger.Error("查询评论失败", zap.Error(err), zap.String("post_id", postID))
		return nil, err
	}
	defer rows.Close()

	comments := []*model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

type engagementTx struct {
	ctx  context.Context
	tx   *sql.Tx
	post model.Post
}

func (t *engagementTx) Post() *model.Post {
	p := t.post
	return &p
}

func (t *engagementTx) HasLiked(userID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT EXISTS(SELECT 1 FROM post_likes WHERE post_id = ? AND user_id = ?)`,
		t.post.ID, userID).Scan(&exists)
	return exists, err
}

func (t *engagementTx) AddLike(userID string, at time.Time) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO post_likes (post_id, user_id, created_at) VALUES (?, ?, ?)`, t.post.ID, userID, at)
	return translateError(err)
}

func (t *engagementTx) RemoveLike(userID string) error {
	result, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, t.post.ID, userID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (t *engagementTx) Likes() ([]string, error) {
	return queryIDs(t.ctx, t.tx,
		`SELECT user_id FROM post_likes WHERE post_id = ? ORDER BY created_at ASC, user_id ASC`, t.post.ID)
}

func (t *engagementTx) AppendComment(comment *model.Comment) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO post_comments (id, post_id, user_id, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		comment.ID, t.post.ID, comment.UserID, comment.Text, comment.CreatedAt)
	return translateError(err)
}

func (t *engagementTx) CommentCount() (int, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx, `SELECT COUNT(*) FROM post_comments WHERE post_id = ?`, t.post.ID).Scan(&n)
	return n, err
}

func (t *engagementTx) IncrementShares() (int, error) {
	if _, err := t.tx.ExecContext(t.ctx,
		`UPDATE posts SET share_count = share_count + 1 WHERE id = ?`, t.post.ID); err != nil {
		return 0, err
	}
	var n int
	err := t.tx.QueryRowContext(t.ctx, `SELECT share_count FROM posts WHERE id = ?`, t.post.ID).Scan(&n)
	return n, err
}
