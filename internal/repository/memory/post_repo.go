package memory

import (
	"context"
	"sort"
	"time"

	"socialspark-backend/internal/model"
	"socialspark-backend/internal/repository/interfaces"
)

type postRepository struct {
	s *Store
}

// NewPostRepository 创建内存帖子仓库
func NewPostRepository(s *Store) interfaces.PostRepository {
	return &postRepository{s: s}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[post.ID]; ok {
		return interfaces.ErrDuplicate
	}
	stored := *post
	stored.ImageURLs = append([]string(nil), post.ImageURLs...)
	stored.User = nil
	r.s.posts[post.ID] = &postState{
		post:  stored,
		likes: make(map[string]time.Time),
	}
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id, viewerID string) (*model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := r.s.postState(id)
	if st == nil {
		return nil, nil
	}
	return st.view(viewerID), nil
}

func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []string, viewerID string, offset, limit int) ([]*model.Post, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	authors := make(map[string]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = struct{}{}
	}

	// post 字段创建后不可变，可在不持有帖子锁时读取
	r.s.mu.RLock()
	var matched []*postState
	for _, st := range r.s.posts {
		if _, ok := authors[st.post.UserID]; ok {
			matched = append(matched, st)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		pi, pj := matched[i].post, matched[j].post
		if !pi.CreatedAt.Equal(pj.CreatedAt) {
			return pi.CreatedAt.After(pj.CreatedAt)
		}
		return pi.ID > pj.ID
	})

	total := len(matched)
	if offset >= total {
		return []*model.Post{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	posts := make([]*model.Post, 0, end-offset)
	for _, st := range matched[offset:end] {
		posts = append(posts, st.view(viewerID))
	}
	return posts, total, nil
}

func (st *postState) view(viewerID string) *model.Post {
	st.mu.Lock()
	defer st.mu.Unlock()

	p := st.post
	p.ImageURLs = append([]string{}, st.post.ImageURLs...)
	p.LikeCount = len(st.likes)
	p.CommentCount = len(st.comments)
	p.ShareCount = st.shares
	_, p.IsLiked = st.likes[viewerID]
	return &p
}
