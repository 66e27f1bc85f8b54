package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/events"
	"socialspark-backend/internal/model"
	"socialspark-backend/internal/ratelimit"
	"socialspark-backend/internal/repository/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFollow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	counts, err := env.relationships.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Following)
	assert.Equal(t, 1, counts.TargetFollowers)
	assert.True(t, counts.IsFollowing)

	assert.Contains(t, env.user(t, "alice").Following, "bob")
	assert.Contains(t, env.user(t, "bob").Followers, "alice")

	// 重复关注不产生修改
	_, err = env.relationships.Follow(ctx, "alice", "bob")
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyFollowing))
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
	assert.Len(t, env.user(t, "alice").Following, 1)
	assert.Len(t, env.user(t, "bob").Followers, 1)
}

func TestFollowValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice")

	_, err := env.relationships.Follow(ctx, "alice", "alice")
	assert.True(t, errors.HasCode(err, errors.ErrSelfRelation))
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))

	_, err = env.relationships.Follow(ctx, "alice", "ghost")
	assert.True(t, errors.HasCode(err, errors.ErrUserNotFound))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestUnfollow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	_, err := env.relationships.Follow(ctx, "alice", "bob")
	require.NoError(t, err)

	counts, err := env.relationships.Unfollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Following)
	assert.Equal(t, 0, counts.TargetFollowers)
	assert.Empty(t, env.user(t, "alice").Following)
	assert.Empty(t, env.user(t, "bob").Followers)

	// 未关注时同样成功
	_, err = env.relationships.Unfollow(ctx, "alice", "bob")
	assert.NoError(t, err)
	_, err = env.relationships.Unfollow(ctx, "alice", "ghost")
	assert.NoError(t, err)
}

func TestConcurrentFollowSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.relationships.Follow(ctx, "alice", "bob")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.HasCode(err, errors.ErrAlreadyFollowing))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, []string{"bob"}, env.user(t, "alice").Following)
	assert.Equal(t, []string{"alice"}, env.user(t, "bob").Followers)
}

func TestConcurrentFollowUnfollowKeepsInverse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = env.relationships.Follow(ctx, "alice", "bob")
		}()
		go func() {
			defer wg.Done()
			_, _ = env.relationships.Unfollow(ctx, "alice", "bob")
		}()
	}
	wg.Wait()

	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	assert.Equal(t, len(alice.Following), len(bob.Followers))
	assert.LessOrEqual(t, len(alice.Following), 1)
}

func TestRequestConnection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	req, err := env.relationships.RequestConnection(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionPending, req.Status)
	assert.Equal(t, "alice", req.FromUserID)
	assert.Equal(t, "bob", req.ToUserID)
	assert.Equal(t, env.clock.Now(), req.CreatedAt)

	emitted := env.emitter.Events()
	require.Len(t, emitted, 1)
	assert.Equal(t, events.ConnectionRequested, emitted[0].Name)
	assert.Equal(t, req.ID, emitted[0].Data["connection_id"])
	assert.Equal(t, "bob", emitted[0].Recipient())

	// 同方向与反方向都视为已有请求
	_, err = env.relationships.RequestConnection(ctx, "alice", "bob")
	assert.True(t, errors.HasCode(err, errors.ErrRequestPending))
	_, err = env.relationships.RequestConnection(ctx, "bob", "alice")
	assert.True(t, errors.HasCode(err, errors.ErrRequestPending))
	assert.Len(t, env.emitter.Events(), 1)

	view, err := env.relationships.ListConnections(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, view.PendingConnections, 1)
	assert.Equal(t, "alice", view.PendingConnections[0].From.ID)
}

func TestRequestConnectionValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice")

	_, err := env.relationships.RequestConnection(ctx, "alice", "alice")
	assert.True(t, errors.HasCode(err, errors.ErrSelfRelation))

	_, err = env.relationships.RequestConnection(ctx, "alice", "ghost")
	assert.True(t, errors.HasCode(err, errors.ErrUserNotFound))
	assert.Empty(t, env.emitter.Events())
}

func TestRequestConnectionRateLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice")
	for i := 0; i < 22; i++ {
		env.addUser(t, fmt.Sprintf("target%02d", i))
	}

	for i := 0; i < 20; i++ {
		_, err := env.relationships.RequestConnection(ctx, "alice", fmt.Sprintf("target%02d", i))
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
	}

	_, err := env.relationships.RequestConnection(ctx, "alice", "target20")
	assert.True(t, errors.HasCode(err, errors.ErrRateLimited))
	assert.Equal(t, errors.KindRateLimited, errors.KindOf(err))
	assert.Len(t, env.emitter.Events(), 20)

	// 第一条请求发出 24 小时后移出窗口
	env.clock.Advance(24*time.Hour - 20*time.Minute)
	_, err = env.relationships.RequestConnection(ctx, "alice", "target20")
	assert.NoError(t, err)

	_, err = env.relationships.RequestConnection(ctx, "alice", "target21")
	assert.True(t, errors.HasCode(err, errors.ErrRateLimited))
}

func TestConcurrentRequestsRespectRateLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice")
	for i := 0; i < 30; i++ {
		env.addUser(t, fmt.Sprintf("target%02d", i))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := env.relationships.RequestConnection(ctx, "alice", fmt.Sprintf("target%02d", i)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, succeeded)
}

func TestAcceptConnection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	_, err := env.relationships.RequestConnection(ctx, "alice", "bob")
	require.NoError(t, err)

	// 只有接收者可以接受
	_, err = env.relationships.AcceptConnection(ctx, "alice", "bob")
	assert.True(t, errors.HasCode(err, errors.ErrRequestNotFound))

	req, err := env.relationships.AcceptConnection(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionAccepted, req.Status)

	assert.Equal(t, []string{"bob"}, env.user(t, "alice").Connections)
	assert.Equal(t, []string{"alice"}, env.user(t, "bob").Connections)

	emitted := env.emitter.Events()
	require.Len(t, emitted, 2)
	assert.Equal(t, events.ConnectionAccepted, emitted[1].Name)
	assert.Equal(t, "alice", emitted[1].Recipient())

	_, err = env.relationships.AcceptConnection(ctx, "bob", "alice")
	assert.True(t, errors.HasCode(err, errors.ErrRequestNotFound))
	assert.Len(t, env.user(t, "alice").Connections, 1)

	_, err = env.relationships.RequestConnection(ctx, "bob", "alice")
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyConnected))

	view, err := env.relationships.ListConnections(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, view.PendingConnections)
	require.Len(t, view.Connections, 1)
	assert.Equal(t, "alice", view.Connections[0].ID)
}

func TestAcceptWithoutRequest(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")

	_, err := env.relationships.AcceptConnection(context.Background(), "bob", "alice")
	assert.True(t, errors.HasCode(err, errors.ErrRequestNotFound))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
	assert.Empty(t, env.user(t, "bob").Connections)
}

func TestListConnections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob", "carol")

	_, err := env.relationships.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = env.relationships.Follow(ctx, "carol", "alice")
	require.NoError(t, err)

	view, err := env.relationships.ListConnections(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, view.Following, 1)
	assert.Equal(t, "bob", view.Following[0].ID)
	require.Len(t, view.Followers, 1)
	assert.Equal(t, "carol", view.Followers[0].ID)
	assert.Empty(t, view.Connections)

	_, err = env.relationships.ListConnections(ctx, "ghost")
	assert.True(t, errors.HasCode(err, errors.ErrUserNotFound))
}

// MockRelationshipRepository 用于模拟存储失败
type MockRelationshipRepository struct {
	mock.Mock
}

func (m *MockRelationshipRepository) WithinTx(ctx context.Context, userIDs []string, fn func(tx interfaces.RelationshipTx) error) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

func (m *MockRelationshipRepository) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRelationshipRepository) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRelationshipRepository) ListConnections(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRelationshipRepository) ListPendingInbound(ctx context.Context, userID string) ([]*model.ConnectionRequest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ConnectionRequest), args.Error(1)
}

func TestStorageFailureIsReported(t *testing.T) {
	env := newTestEnv(t)
	cause := stderrors.New("connection reset")
	repo := new(MockRelationshipRepository)
	repo.On("WithinTx", mock.Anything, mock.Anything).Return(cause)

	emitter := &recordingEmitter{}
	svc := NewRelationshipService(env.users, repo, ratelimit.NewWindow(20, 24*time.Hour), emitter)

	_, err := svc.RequestConnection(context.Background(), "alice", "bob")
	assert.True(t, errors.HasCode(err, errors.ErrDatabase))
	assert.Equal(t, errors.KindInternal, errors.KindOf(err))
	assert.True(t, stderrors.Is(err, cause))
	assert.Empty(t, emitter.Events())

	_, err = svc.Follow(context.Background(), "alice", "bob")
	assert.True(t, stderrors.Is(err, cause))
	repo.AssertExpectations(t)
}
