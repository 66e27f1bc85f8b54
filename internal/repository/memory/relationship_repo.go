package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"socialspark-backend/internal/model"
	"socialspark-backend/internal/repository/interfaces"
)

type relationshipRepository struct {
	s *Store
}

// NewRelationshipRepository 创建内存关系仓库
func NewRelationshipRepository(s *Store) interfaces.RelationshipRepository {
	return &relationshipRepository{s: s}
}

func (r *relationshipRepository) WithinTx(ctx context.Context, userIDs []string, fn func(tx interfaces.RelationshipTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ids := sortedUnique(userIDs)
	locked := make(map[string]*userState, len(ids))

	r.s.mu.RLock()
	for _, id := range ids {
		if st, ok := r.s.users[id]; ok {
			locked[id] = st
		}
	}
	r.s.mu.RUnlock()

	// 按ID顺序加锁，避免死锁
	for _, id := range ids {
		if st, ok := locked[id]; ok {
			st.mu.Lock()
			defer st.mu.Unlock()
		}
	}

	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}
	tx := &relationshipTx{s: r.s, locked: locked, requested: requested}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (r *relationshipRepository) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	return r.listSet(ctx, userID, func(st *userState) map[string]time.Time { return st.followers })
}

func (r *relationshipRepository) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	return r.listSet(ctx, userID, func(st *userState) map[string]time.Time { return st.following })
}

func (r *relationshipRepository) ListConnections(ctx context.Context, userID string) ([]string, error) {
	return r.listSet(ctx, userID, func(st *userState) map[string]time.Time { return st.connections })
}

func (r *relationshipRepository) listSet(ctx context.Context, userID string, pick func(*userState) map[string]time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := r.s.userState(userID)
	if st == nil {
		return []string{}, nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return idsByRecency(pick(st)), nil
}

func (r *relationshipRepository) ListPendingInbound(ctx context.Context, userID string) ([]*model.ConnectionRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := r.s.userState(userID)
	if st == nil {
		return []*model.ConnectionRequest{}, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	requests := []*model.ConnectionRequest{}
	for _, req := range st.requests {
		if req.ToUserID == userID && req.Status == model.ConnectionPending {
			cp := *req
			requests = append(requests, &cp)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

type relationshipTx struct {
	s         *Store
	locked    map[string]*userState
	requested map[string]bool
	undo      []func()
}

func (t *relationshipTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// lookup 返回已加锁的用户状态；用户不存在返回 nil，存在但未加锁返回错误。
// 事务开始时不存在的用户在整个事务内视为不存在。
func (t *relationshipTx) lookup(id string) (*userState, error) {
	if st, ok := t.locked[id]; ok {
		return st, nil
	}
	if t.requested[id] {
		return nil, nil
	}
	if t.s.userState(id) != nil {
		return nil, fmt.Errorf("memory: user %s is not locked by this transaction", id)
	}
	return nil, nil
}

func (t *relationshipTx) pair(a, b string) (*userState, *userState, error) {
	as, err := t.lookup(a)
	if err != nil {
		return nil, nil, err
	}
	bs, err := t.lookup(b)
	if err != nil {
		return nil, nil, err
	}
	if as == nil || bs == nil {
		return nil, nil, interfaces.ErrNotFound
	}
	return as, bs, nil
}

func (t *relationshipTx) UserExists(id string) (bool, error) {
	st, err := t.lookup(id)
	return st != nil, err
}

func (t *relationshipTx) IsFollowing(followerID, followedID string) (bool, error) {
	st, err := t.lookup(followerID)
	if err != nil || st == nil {
		return false, err
	}
	_, ok := st.following[followedID]
	return ok, nil
}

func (t *relationshipTx) AddFollow(followerID, followedID string, at time.Time) error {
	fs, ts, err := t.pair(followerID, followedID)
	if err != nil {
		return err
	}
	if _, ok := fs.following[followedID]; ok {
		return interfaces.ErrDuplicate
	}
	fs.following[followedID] = at
	ts.followers[followerID] = at
	t.undo = append(t.undo, func() {
		delete(fs.following, followedID)
		delete(ts.followers, followerID)
	})
	return nil
}

func (t *relationshipTx) RemoveFollow(followerID, followedID string) (bool, error) {
	fs, ts, err := t.pair(followerID, followedID)
	if err == interfaces.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	at, ok := fs.following[followedID]
	if !ok {
		return false, nil
	}
	delete(fs.following, followedID)
	delete(ts.followers, followerID)
	t.undo = append(t.undo, func() {
		fs.following[followedID] = at
		ts.followers[followerID] = at
	})
	return true, nil
}

func (t *relationshipTx) CountFollowing(userID string) (int, error) {
	st, err := t.lookup(userID)
	if err != nil || st == nil {
		return 0, err
	}
	return len(st.following), nil
}

func (t *relationshipTx) CountFollowers(userID string) (int, error) {
	st, err := t.lookup(userID)
	if err != nil || st == nil {
		return 0, err
	}
	return len(st.followers), nil
}

func (t *relationshipTx) CountRequestsSince(fromUserID string, since time.Time) (int, error) {
	st, err := t.lookup(fromUserID)
	if err != nil || st == nil {
		return 0, err
	}
	count := 0
	for _, req := range st.requests {
		if req.FromUserID == fromUserID && req.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (t *relationshipTx) FindRequestBetween(a, b string) (*model.ConnectionRequest, error) {
	st, err := t.lookup(a)
	if err != nil || st == nil {
		return nil, err
	}
	req, ok := st.requests[b]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (t *relationshipTx) CreateRequest(req *model.ConnectionRequest) error {
	fs, ts, err := t.pair(req.FromUserID, req.ToUserID)
	if err != nil {
		return err
	}
	if _, ok := fs.requests[req.ToUserID]; ok {
		return interfaces.ErrDuplicate
	}
	stored := *req
	fs.requests[req.ToUserID] = &stored
	ts.requests[req.FromUserID] = &stored
	t.undo = append(t.undo, func() {
		delete(fs.requests, req.ToUserID)
		delete(ts.requests, req.FromUserID)
	})
	return nil
}

func (t *relationshipTx) MarkAccepted(requestID string, at time.Time) error {
	for _, st := range t.locked {
		for _, req := range st.requests {
			if req.ID != requestID {
				continue
			}
			if req.Status != model.ConnectionPending {
				return interfaces.ErrNotFound
			}
			if _, ok := t.locked[req.FromUserID]; !ok {
				return fmt.Errorf("memory: user %s is not locked by this transaction", req.FromUserID)
			}
			if _, ok := t.locked[req.ToUserID]; !ok {
				return fmt.Errorf("memory: user %s is not locked by this transaction", req.ToUserID)
			}
			prevStatus, prevUpdated := req.Status, req.UpdatedAt
			req.Status = model.ConnectionAccepted
			req.UpdatedAt = at
			stored := req
			t.undo = append(t.undo, func() {
				stored.Status = prevStatus
				stored.UpdatedAt = prevUpdated
			})
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (t *relationshipTx) AddConnection(a, b string, at time.Time) error {
	as, bs, err := t.pair(a, b)
	if err != nil {
		return err
	}
	if _, ok := as.connections[b]; ok {
		return nil
	}
	as.connections[b] = at
	bs.connections[a] = at
	t.undo = append(t.undo, func() {
		delete(as.connections, b)
		delete(bs.connections, a)
	})
	return nil
}

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
