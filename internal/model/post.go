package model

import "time"

// MaxPostImages 每个帖子最多的图片数量
const MaxPostImages = 4

// Post 帖子模型，创建后内容不可修改
type Post struct {
	ID           string       `json:"_id"`
	UserID       string       `json:"user_id"`
	Content      string       `json:"content"`
	ImageURLs    []string     `json:"image_urls"`
	PostType     string       `json:"post_type"`
	CreatedAt    time.Time    `json:"createdAt"`
	User         *UserSummary `json:"user,omitempty"`
	LikeCount    int          `json:"like_count"`
	CommentCount int          `json:"comment_count"`
	ShareCount   int          `json:"shares_count"`
	IsLiked      bool         `json:"is_liked"`
}

// PostTypeFor 根据内容和图片推断帖子类型
func PostTypeFor(content string, images int) string {
	switch {
	case images > 0 && content != "":
		return "text_with_image"
	case images > 0:
		return "image"
	default:
		return "text"
	}
}

// Comment 评论，只追加不修改
type Comment struct {
	ID        string       `json:"_id"`
	PostID    string       `json:"post_id"`
	UserID    string       `json:"user_id"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"createdAt"`
	User      *UserSummary `json:"user,omitempty"`
}

// LikeState 点赞切换后的状态
type LikeState struct {
	PostID    string   `json:"post_id"`
	Liked     bool     `json:"liked"`
	LikeCount int      `json:"like_count"`
	Likes     []string `json:"likes"`
}

// CommentResult 添加评论后的结果
type CommentResult struct {
	Comment      *Comment `json:"comment"`
	CommentCount int      `json:"comment_count"`
}

// ShareResult 分享后的结果
type ShareResult struct {
	PostID   string `json:"post_id"`
	Shares   int    `json:"shares"`
	ShareURL string `json:"share_url"`
}

// Feed 分页的信息流
type Feed struct {
	Posts    []*Post `json:"posts"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}
