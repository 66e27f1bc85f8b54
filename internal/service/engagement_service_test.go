package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"socialspark-backend/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLikeIsSelfInverse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.addPost(t, "p1", "bob")

	state, err := env.engage.ToggleLike(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, 1, state.LikeCount)
	assert.Equal(t, []string{"alice"}, state.Likes)

	state, err = env.engage.ToggleLike(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Equal(t, 0, state.LikeCount)
	assert.Empty(t, state.Likes)

	post, err := env.posts.FindByID(ctx, "p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, post.LikeCount)
	assert.False(t, post.IsLiked)
}

func TestToggleLikeMissingPost(t *testing.T) {
	env := newTestEnv(t, "alice")

	_, err := env.engage.ToggleLike(context.Background(), "alice", "ghost")
	assert.True(t, errors.HasCode(err, errors.ErrPostNotFound))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestConcurrentLikesFromDistinctUsers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "bob")
	env.addPost(t, "p1", "bob")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = env.engage.ToggleLike(ctx, "user"+strings.Repeat("x", i), "p1")
		}(i)
	}
	wg.Wait()

	post, err := env.posts.FindByID(ctx, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, 50, post.LikeCount)
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.addPost(t, "p1", "bob")

	result, err := env.engage.AddComment(ctx, "alice", "p1", "  nice post  ")
	require.NoError(t, err)
	assert.Equal(t, "nice post", result.Comment.Text)
	assert.Equal(t, 1, result.CommentCount)
	require.NotNil(t, result.Comment.User)
	assert.Equal(t, "alice", result.Comment.User.Username)

	result, err = env.engage.AddComment(ctx, "bob", "p1", "thanks")
	require.NoError(t, err)
	assert.Equal(t, 2, result.CommentCount)

	comments, err := env.postService.ListComments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "nice post", comments[0].Text)
	assert.Equal(t, "thanks", comments[1].Text)
	assert.Equal(t, "bob", comments[1].User.ID)
}

func TestAddCommentRejectsInvalidText(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.addPost(t, "p1", "bob")

	_, err := env.engage.AddComment(ctx, "alice", "p1", "   ")
	assert.True(t, errors.HasCode(err, errors.ErrInvalidComment))
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))

	_, err = env.engage.AddComment(ctx, "alice", "p1", strings.Repeat("字", MaxCommentLength+1))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidComment))

	_, err = env.engage.AddComment(ctx, "alice", "p1", strings.Repeat("字", MaxCommentLength))
	assert.NoError(t, err)

	_, err = env.engage.AddComment(ctx, "alice", "ghost", "hello")
	assert.True(t, errors.HasCode(err, errors.ErrPostNotFound))

	post, err := env.posts.FindByID(ctx, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, post.CommentCount)
}

func TestSharePost(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.addPost(t, "p1", "bob")

	result, err := env.engage.SharePost(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Shares)
	assert.Equal(t, "https://social.example.com/profile/bob", result.ShareURL)

	_, err = env.engage.SharePost(ctx, "alice", "ghost")
	assert.True(t, errors.HasCode(err, errors.ErrPostNotFound))
}

func TestConcurrentSharesAreNotLost(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.addPost(t, "p1", "bob")

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.engage.SharePost(ctx, "alice", "p1")
		}()
	}
	wg.Wait()

	post, err := env.posts.FindByID(ctx, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, n, post.ShareCount)
}
