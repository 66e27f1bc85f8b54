package post

import (
	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/middleware"
	"socialspark-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// EngagementHandler 处理点赞、评论与分享
type EngagementHandler struct {
	engagementService service.EngagementServiceInterface
}

func NewEngagementHandler(engagementService service.EngagementServiceInterface) *EngagementHandler {
	return &EngagementHandler{engagementService}
}

type postRequest struct {
	PostID string `json:"postId" binding:"required,notblank"`
}

type commentRequest struct {
	PostID string `json:"postId" binding:"required,notblank"`
	Text   string `json:"text"`
}

func (h *EngagementHandler) LikePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的帖子ID", err))
		return
	}

	state, err := h.engagementService.ToggleLike(c.Request.Context(), middleware.CurrentUserID(c), req.PostID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	message := "Post unliked"
	if state.Liked {
		message = "Post liked"
	}
	errors.HandleSuccess(c, state, message)
}

func (h *EngagementHandler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	result, err := h.engagementService.AddComment(c.Request.Context(), middleware.CurrentUserID(c), req.PostID, req.Text)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, result, "Comment added")
}

func (h *EngagementHandler) SharePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的帖子ID", err))
		return
	}

	result, err := h.engagementService.SharePost(c.Request.Context(), middleware.CurrentUserID(c), req.PostID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, result, "Post shared")
}
