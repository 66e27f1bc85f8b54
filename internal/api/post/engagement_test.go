package post

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/model"
	"socialspark-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEngagementService 是 EngagementServiceInterface 的模拟实现
type MockEngagementService struct {
	mock.Mock
}

func (m *MockEngagementService) ToggleLike(ctx context.Context, actorID, postID string) (*model.LikeState, error) {
	args := m.Called(ctx, actorID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LikeState), args.Error(1)
}

func (m *MockEngagementService) AddComment(ctx context.Context, actorID, postID, text string) (*model.CommentResult, error) {
	args := m.Called(ctx, actorID, postID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommentResult), args.Error(1)
}

func (m *MockEngagementService) SharePost(ctx context.Context, actorID, postID string) (*model.ShareResult, error) {
	args := m.Called(ctx, actorID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareResult), args.Error(1)
}

var _ service.EngagementServiceInterface = (*MockEngagementService)(nil)

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLikePost(t *testing.T) {
	mockService := new(MockEngagementService)
	handler := NewEngagementHandler(mockService)
	router := newRouter()
	router.POST("/api/post/like", handler.LikePost)

	mockService.On("ToggleLike", mock.Anything, "alice", "p1").
		Return(&model.LikeState{PostID: "p1", Liked: true, LikeCount: 1, Likes: []string{"alice"}}, nil)
	mockService.On("ToggleLike", mock.Anything, "alice", "ghost").
		Return(nil, errors.New(errors.ErrPostNotFound, "Post not found"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, postJSON("/api/post/like", `{"postId":"p1"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Post liked")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, postJSON("/api/post/like", `{"postId":"ghost"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, postJSON("/api/post/like", `not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddCommentHandler(t *testing.T) {
	mockService := new(MockEngagementService)
	handler := NewEngagementHandler(mockService)
	router := newRouter()
	router.POST("/api/post/comment", handler.AddComment)

	mockService.On("AddComment", mock.Anything, "alice", "p1", "  ").
		Return(nil, errors.New(errors.ErrInvalidComment, "Comment text is required"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, postJSON("/api/post/comment", `{"postId":"p1","text":"  "}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_input")
	mockService.AssertExpectations(t)
}

func TestSharePostHandler(t *testing.T) {
	mockService := new(MockEngagementService)
	handler := NewEngagementHandler(mockService)
	router := newRouter()
	router.POST("/api/post/share", handler.SharePost)

	mockService.On("SharePost", mock.Anything, "alice", "p1").
		Return(&model.ShareResult{PostID: "p1", Shares: 3, ShareURL: "https://social.example.com/profile/bob"}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, postJSON("/api/post/share", `{"postId":"p1"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://social.example.com/profile/bob")
}
