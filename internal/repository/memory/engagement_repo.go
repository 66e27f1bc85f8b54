package memory

import (
	"context"
	"sort"
	"time"

	"socialspark-backend/internal/model"
	"socialspark-backend/internal/repository/interfaces"
)

type engagementRepository struct {
	s *Store
}

// NewEngagementRepository 创建内存互动仓库
func NewEngagementRepository(s *Store) interfaces.EngagementRepository {
	return &engagementRepository{s: s}
}

func (r *engagementRepository) WithinPostTx(ctx context.Context, postID string, fn func(tx interfaces.EngagementTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st := r.s.postState(postID)
	if st == nil {
		return interfaces.ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	tx := &engagementTx{st: st}
	if err := fn(tx); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

func (r *engagementRepository) ListComments(ctx context.Context, postID string) ([]*model.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := r.s.postState(postID)
	if st == nil {
		return nil, interfaces.ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	comments := make([]*model.Comment, 0, len(st.comments))
	for _, c := range st.comments {
		cp := *c
		comments = append(comments, &cp)
	}
	return comments, nil
}

type engagementTx struct {
	st   *postState
	undo []func()
}

func (t *engagementTx) Post() *model.Post {
	p := t.st.post
	return &p
}

func (t *engagementTx) HasLiked(userID string) (bool, error) {
	_, ok := t.st.likes[userID]
	return ok, nil
}

func (t *engagementTx) AddLike(userID string, at time.Time) error {
	if _, ok := t.st.likes[userID]; ok {
		return interfaces.ErrDuplicate
	}
	t.st.likes[userID] = at
	t.undo = append(t.undo, func() { delete(t.st.likes, userID) })
	return nil
}

func (t *engagementTx) RemoveLike(userID string) error {
	at, ok := t.st.likes[userID]
	if !ok {
		return interfaces.ErrNotFound
	}
	delete(t.st.likes, userID)
	t.undo = append(t.undo, func() { t.st.likes[userID] = at })
	return nil
}

func (t *engagementTx) Likes() ([]string, error) {
	likes := make([]string, 0, len(t.st.likes))
	for id := range t.st.likes {
		likes = append(likes, id)
	}
	sort.Slice(likes, func(i, j int) bool {
		ti, tj := t.st.likes[likes[i]], t.st.likes[likes[j]]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return likes[i] < likes[j]
	})
	return likes, nil
}

func (t *engagementTx) AppendComment(comment *model.Comment) error {
	cp := *comment
	cp.User = nil
	t.st.comments = append(t.st.comments, &cp)
	n := len(t.st.comments)
	t.undo = append(t.undo, func() { t.st.comments = t.st.comments[:n-1] })
	return nil
}

func (t *engagementTx) CommentCount() (int, error) {
	return len(t.st.comments), nil
}

func (t *engagementTx) IncrementShares() (int, error) {
	t.st.shares++
	t.undo = append(t.undo, func() { t.st.shares-- })
	return t.st.shares, nil
}
