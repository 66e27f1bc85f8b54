package memory

import (
	"context"
	"sort"
	"strings"

	"socialspark-backend/internal/model"
	"socialspark-backend/internal/repository/interfaces"
)

type userRepository struct {
	s *Store
}

// NewUserRepository 创建内存用户仓库
func NewUserRepository(s *Store) interfaces.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return interfaces.ErrDuplicate
	}
	key := usernameKey(user.Username)
	if _, ok := r.s.usernames[key]; ok {
		return interfaces.ErrDuplicate
	}

	stored := *user
	stored.Followers, stored.Following, stored.Connections = nil, nil, nil
	r.s.users[user.ID] = newUserState(stored)
	r.s.usernames[key] = user.ID
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := r.s.userState(id)
	if st == nil {
		return nil, nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot(), nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.usernames[usernameKey(username)]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st := r.s.userState(user.ID)
	if st == nil {
		return interfaces.ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	oldKey := usernameKey(st.user.Username)
	newKey := usernameKey(user.Username)
	if newKey != oldKey {
		if owner, ok := r.s.usernames[newKey]; ok && owner != user.ID {
			return interfaces.ErrDuplicate
		}
		delete(r.s.usernames, oldKey)
		r.s.usernames[newKey] = user.ID
	}

	st.user.Username = user.Username
	st.user.FullName = user.FullName
	st.user.Bio = user.Bio
	st.user.Location = user.Location
	st.user.ProfilePicture = user.ProfilePicture
	st.user.CoverPhoto = user.CoverPhoto
	st.user.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *userRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	states := make([]*userState, 0, len(r.s.users))
	for id, st := range r.s.users {
		if id != excludeID {
			states = append(states, st)
		}
	}
	r.s.mu.RUnlock()

	q := strings.ToLower(query)
	var users []*model.User
	for _, st := range states {
		st.mu.Lock()
		u := st.user
		match := strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.Email), q) ||
			strings.Contains(strings.ToLower(u.FullName), q) ||
			strings.Contains(strings.ToLower(u.Location), q)
		if match {
			users = append(users, st.snapshot())
		}
		st.mu.Unlock()
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *userRepository) FindSummaries(ctx context.Context, ids []string) ([]model.UserSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	summaries := make([]model.UserSummary, 0, len(ids))
	for _, id := range ids {
		st := r.s.userState(id)
		if st == nil {
			continue
		}
		st.mu.Lock()
		summaries = append(summaries, st.user.Summary())
		st.mu.Unlock()
	}
	return summaries, nil
}
