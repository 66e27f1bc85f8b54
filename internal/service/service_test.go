package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"socialspark-backend/internal/events"
	"socialspark-backend/internal/model"
	"socialspark-backend/internal/ratelimit"
	"socialspark-backend/internal/repository/interfaces"
	"socialspark-backend/internal/repository/memory"
	"socialspark-backend/internal/storage"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(ctx context.Context, event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// MockStorage 是 storage.Storage 的模拟实现
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, obj storage.Object, key string) (string, error) {
	args := m.Called(ctx, obj, key)
	return args.String(0), args.Error(1)
}

type testEnv struct {
	store      *memory.Store
	users      interfaces.UserRepository
	rels       interfaces.RelationshipRepository
	posts      interfaces.PostRepository
	engagement interfaces.EngagementRepository
	clock      *fakeClock
	emitter    *recordingEmitter
	storage    *MockStorage

	relationships *RelationshipService
	engage        *EngagementService
	userService   *UserService
	postService   *PostService
}

func newTestEnv(t *testing.T, userIDs ...string) *testEnv {
	t.Helper()
	store := memory.NewStore()
	env := &testEnv{
		store:      store,
		users:      memory.NewUserRepository(store),
		rels:       memory.NewRelationshipRepository(store),
		posts:      memory.NewPostRepository(store),
		engagement: memory.NewEngagementRepository(store),
		clock:      &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		emitter:    &recordingEmitter{},
		storage:    new(MockStorage),
	}

	window := &ratelimit.Window{Limit: 20, Period: 24 * time.Hour, Now: env.clock.Now}
	env.relationships = NewRelationshipService(env.users, env.rels, window, env.emitter)
	env.engage = NewEngagementService(env.users, env.engagement, "https://social.example.com")
	env.engage.now = env.clock.Now
	env.userService = NewUserService(env.users, env.posts, env.storage)
	env.userService.now = env.clock.Now
	env.postService = NewPostService(env.users, env.posts, env.engagement, env.storage)
	env.postService.now = env.clock.Now

	for _, id := range userIDs {
		env.addUser(t, id)
	}
	return env
}

func (e *testEnv) addUser(t *testing.T, id string) {
	t.Helper()
	now := e.clock.Now()
	require.NoError(t, e.users.Create(context.Background(), &model.User{
		ID:        id,
		Email:     id + "@example.com",
		FullName:  "User " + id,
		Username:  id,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func (e *testEnv) addPost(t *testing.T, id, author string) {
	t.Helper()
	require.NoError(t, e.posts.Create(context.Background(), &model.Post{
		ID: id, UserID: author, Content: "post " + id, PostType: "text", CreatedAt: e.clock.Now(),
	}))
	e.clock.Advance(time.Second)
}

func (e *testEnv) user(t *testing.T, id string) *model.User {
	t.Helper()
	u, err := e.users.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}
