package mysql

import (
	"context"
	"database/sql"

	"socialspark-backend/internal/model"
	"socialspark-backend/internal/repository/interfaces"
	"socialspark-backend/internal/util"

	"go.uber.org/zap"
)

type postRepository struct {
	db *sql.DB
}

// NewPostRepository 创建基于 MySQL 的帖子仓库
func NewPostRepository(db *sql.DB) interfaces.PostRepository {
	return &postRepository{db: db}
}

// postSelect 的第一个参数为查看者ID
const postSelect = `
    SELECT p.id, p.user_id, COALESCE(p.content, ''), p.post_type, p.share_count, p.created_at,
        (SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id) AS like_count,
        (SELECT COUNT(*) FROM post_comments c WHERE c.post_id = p.id) AS comment_count,
        EXISTS(SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = ?) AS is_liked
    FROM posts p`

func scanPost(row interface{ Scan(...interface{}) error }) (*model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.UserID, &p.Content, &p.PostType, &p.ShareCount, &p.CreatedAt,
		&p.LikeCount, &p.CommentCount, &p.IsLiked)
	if err != nil {
		return nil, err
	}
	p.ImageURLs = []string{}
	return &p, nil
}

// Create 在事务中写入帖子及图片
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, content, post_type, share_count, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		post.ID, post.UserID, post.Content, post.PostType, post.CreatedAt)
	if err != nil {
		util.Logger.Error("创建帖子失败", zap.Error(err), zap.String("user_id", post.UserID))
		return translateError(err)
	}

	for i, url := range post.ImageURLs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_images (post_id, position, image_url) VALUES (?, ?, ?)`,
			post.ID, i, url); err != nil {
			util.Logger.Error("保存帖子图片失败", zap.Error(err), zap.String("post_id", post.ID))
			return translateError(err)
		}
	}

	return tx.Commit()
}

func (r *postRepository) FindByID(ctx context.Context, id, viewerID string) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, viewerID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		util.Logger.Error("查找帖子失败", zap.Error(err), zap.String("post_id", id))
		return nil, err
	}
	if err := r.attachImages(ctx, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []string, viewerID string, offset, limit int) ([]*model.Post, int, error) {
	if len(authorIDs) == 0 {
		return []*model.Post{}, 0, nil
	}
	in := placeholders(len(authorIDs))
	authorArgs := stringArgs(authorIDs)

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE user_id IN (`+in+`)`, authorArgs...).Scan(&total); err != nil {
		util.Logger.Error("统计帖子数量失败", zap.Error(err))
		return nil, 0, err
	}

	query := postSelect + ` WHERE p.user_id IN (` + in + `) ORDER BY p.created_at DESC, p.id DESC`
	args := append([]interface{}{viewerID}, authorArgs...)
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		util.Logger.Error("查询帖子列表失败", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachImages(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) attachImages(ctx context.Context, posts []*model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[string]*model.Post, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT post_id, image_url FROM post_images WHERE post_id IN (`+placeholders(len(ids))+`) ORDER BY post_id, position`,
		stringArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var postID, url string
		if err := rows.Scan(&postID, &url); err != nil {
			return err
		}
		if p, ok := byID[postID]; ok {
			p.ImageURLs = append(p.ImageURLs, url)
		}
	}
	return rows.Err()
}
