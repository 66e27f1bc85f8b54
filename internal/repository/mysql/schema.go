package mysql

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"socialspark-backend/internal/repository/interfaces"
	"socialspark-backend/internal/util"

	driver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// mysqlErrDuplicateEntry 是 MySQL 唯一键冲突错误号
const mysqlErrDuplicateEntry = 1062

var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              VARCHAR(64) PRIMARY KEY,
		email           VARCHAR(255) NOT NULL DEFAULT '',
		full_name       VARCHAR(255) NOT NULL DEFAULT '',
		username        VARCHAR(100) NOT NULL,
		bio             TEXT,
		profile_picture VARCHAR(512) NOT NULL DEFAULT '',
		cover_photo     VARCHAR(512) NOT NULL DEFAULT '',
		location        VARCHAR(255) NOT NULL DEFAULT '',
		created_at      DATETIME(6) NOT NULL,
		updated_at      DATETIME(6) NOT NULL,
		UNIQUE KEY uk_username (username)
	)`,
	`CREATE TABLE IF NOT EXISTS follows (
		follower_id VARCHAR(64) NOT NULL,
		followed_id VARCHAR(64) NOT NULL,
		created_at  DATETIME(6) NOT NULL,
		PRIMARY KEY (follower_id, followed_id),
		INDEX idx_followed (followed_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS connections (
		user_id      VARCHAR(64) NOT NULL,
		connected_id VARCHAR(64) NOT NULL,
		created_at   DATETIME(6) NOT NULL,
		PRIMARY KEY (user_id, connected_id)
	)`,
	`CREATE TABLE IF NOT EXISTS connection_requests (
		id           VARCHAR(36) PRIMARY KEY,
		from_user_id VARCHAR(64) NOT NULL,
		to_user_id   VARCHAR(64) NOT NULL,
		pair_key     VARCHAR(140) NOT NULL,
		status       ENUM('pending', 'accepted') NOT NULL DEFAULT 'pending',
		created_at   DATETIME(6) NOT NULL,
		updated_at   DATETIME(6) NOT NULL,
		UNIQUE KEY uk_pair (pair_key),
		INDEX idx_from_created (from_user_id, created_at),
		INDEX idx_to_status (to_user_id, status)
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id          VARCHAR(36) PRIMARY KEY,
		user_id     VARCHAR(64) NOT NULL,
		content     TEXT,
		post_type   ENUM('text', 'image', 'text_with_image') NOT NULL,
		share_count INT NOT NULL DEFAULT 0,
		created_at  DATETIME(6) NOT NULL,
		INDEX idx_user_created (user_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS post_images (
		post_id   VARCHAR(36) NOT NULL,
		position  TINYINT NOT NULL,
		image_url VARCHAR(512) NOT NULL,
		PRIMARY KEY (post_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS post_likes (
		post_id    VARCHAR(36) NOT NULL,
		user_id    VARCHAR(64) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		PRIMARY KEY (post_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS post_comments (
		id         VARCHAR(36) PRIMARY KEY,
		post_id    VARCHAR(36) NOT NULL,
		user_id    VARCHAR(64) NOT NULL,
		text       TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_post_created (post_id, created_at)
	)`,
}

// CreateTables 创建所需的数据表
func CreateTables(ctx context.Context, db *sql.DB) error {
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			util.Logger.Error("创建数据表失败", zap.Error(err))
			return err
		}
	}
	util.Logger.Info("数据表创建完成")
	return nil
}

// translateError 将驱动错误转换为仓库层的哨兵错误
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.ErrNotFound
	}
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
		return interfaces.ErrDuplicate
	}
	return err
}

// placeholders 生成 n 个 ? 占位符
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// escapeLike 转义 LIKE 模式中的通配符
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// sortedUnique 去重并排序，保证加锁顺序一致
func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
