package service

import (
	"context"
	"strings"
	"testing"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func images(n int) []storage.Object {
	objs := make([]storage.Object, n)
	for i := range objs {
		objs[i] = storage.Object{Filename: "img.jpg", ContentType: "image/jpeg", Body: strings.NewReader("x")}
	}
	return objs
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice")
	env.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("https://cdn.example.com/img.jpg", nil)

	post, err := env.postService.CreatePost(ctx, "alice", " hello ", images(2))
	require.NoError(t, err)
	assert.Equal(t, "hello", post.Content)
	assert.Equal(t, "text_with_image", post.PostType)
	assert.Len(t, post.ImageURLs, 2)
	require.NotNil(t, post.User)
	assert.Equal(t, "alice", post.User.Username)

	post, err = env.postService.CreatePost(ctx, "alice", "just text", nil)
	require.NoError(t, err)
	assert.Equal(t, "text", post.PostType)

	post, err = env.postService.CreatePost(ctx, "alice", "", images(1))
	require.NoError(t, err)
	assert.Equal(t, "image", post.PostType)
}

func TestCreatePostValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice")

	_, err := env.postService.CreatePost(ctx, "alice", "too many", images(5))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidPost))

	_, err = env.postService.CreatePost(ctx, "alice", "   ", nil)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidPost))
	env.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestFeed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob", "carol", "dave")

	_, err := env.relationships.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = env.relationships.RequestConnection(ctx, "carol", "alice")
	require.NoError(t, err)
	_, err = env.relationships.AcceptConnection(ctx, "alice", "carol")
	require.NoError(t, err)

	env.addPost(t, "p1", "alice")
	env.addPost(t, "p2", "bob")
	env.addPost(t, "p3", "dave")
	env.addPost(t, "p4", "carol")

	_, err = env.engage.ToggleLike(ctx, "alice", "p2")
	require.NoError(t, err)

	feed, err := env.postService.Feed(ctx, "alice", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, feed.Total)
	require.Len(t, feed.Posts, 3)
	assert.Equal(t, "p4", feed.Posts[0].ID)
	assert.Equal(t, "p2", feed.Posts[1].ID)
	assert.Equal(t, "p1", feed.Posts[2].ID)
	assert.True(t, feed.Posts[1].IsLiked)
	assert.Equal(t, 1, feed.Posts[1].LikeCount)
	assert.Equal(t, "bob", feed.Posts[1].User.ID)

	feed, err = env.postService.Feed(ctx, "alice", 2, 2)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "p1", feed.Posts[0].ID)
}

func TestListCommentsMissingPost(t *testing.T) {
	env := newTestEnv(t, "alice")

	_, err := env.postService.ListComments(context.Background(), "ghost")
	assert.True(t, errors.HasCode(err, errors.ErrPostNotFound))
}
