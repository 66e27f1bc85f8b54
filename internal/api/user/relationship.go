package user

import (
	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/middleware"
	"socialspark-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// RelationshipHandler 处理关注与连接请求
type RelationshipHandler struct {
	relationshipService service.RelationshipServiceInterface
}

func NewRelationshipHandler(relationshipService service.RelationshipServiceInterface) *RelationshipHandler {
	return &RelationshipHandler{relationshipService}
}

type targetRequest struct {
	ID string `json:"id" binding:"required,notblank"`
}

func bindTarget(c *gin.Context) (string, bool) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的用户ID", err))
		return "", false
	}
	return req.ID, true
}

func (h *RelationshipHandler) Follow(c *gin.Context) {
	targetID, ok := bindTarget(c)
	if !ok {
		return
	}
	counts, err := h.relationshipService.Follow(c.Request.Context(), middleware.CurrentUserID(c), targetID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, counts, "Now you are following this user")
}

func (h *RelationshipHandler) Unfollow(c *gin.Context) {
	targetID, ok := bindTarget(c)
	if !ok {
		return
	}
	counts, err := h.relationshipService.Unfollow(c.Request.Context(), middleware.CurrentUserID(c), targetID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, counts, "You are no longer following this user")
}

func (h *RelationshipHandler) SendConnectionRequest(c *gin.Context) {
	targetID, ok := bindTarget(c)
	if !ok {
		return
	}
	req, err := h.relationshipService.RequestConnection(c.Request.Context(), middleware.CurrentUserID(c), targetID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, req, "Connection request sent successfully")
}

func (h *RelationshipHandler) AcceptConnectionRequest(c *gin.Context) {
	requesterID, ok := bindTarget(c)
	if !ok {
		return
	}
	req, err := h.relationshipService.AcceptConnection(c.Request.Context(), middleware.CurrentUserID(c), requesterID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, req, "Connection accepted successfully")
}

func (h *RelationshipHandler) GetUserConnections(c *gin.Context) {
	view, err := h.relationshipService.ListConnections(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, view, "")
}
