package user

import (
	stderrors "errors"
	"io"
	"net/http"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/middleware"
	"socialspark-backend/internal/model"
	"socialspark-backend/internal/service"
	"socialspark-backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// UserHandler 处理用户资料与搜索
type UserHandler struct {
	userService service.UserServiceInterface
}

func NewUserHandler(userService service.UserServiceInterface) *UserHandler {
	return &UserHandler{userService}
}

type discoverRequest struct {
	Input string `json:"input"`
}

type profileRequest struct {
	ProfileID string `json:"profileId" binding:"required,notblank"`
}

// GetUserData 返回当前用户
func (h *UserHandler) GetUserData(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"user": user}, "")
}

// UpdateUserData 更新资料，multipart 字段：username, bio, location, full_name, profile, cover
func (h *UserHandler) UpdateUserData(c *gin.Context) {
	update := model.ProfileUpdate{
		Username: c.PostForm("username"),
		FullName: c.PostForm("full_name"),
		Bio:      c.PostForm("bio"),
		Location: c.PostForm("location"),
	}

	var media service.ProfileMedia
	var closers []io.Closer
	defer func() {
		for _, cl := range closers {
			cl.Close()
		}
	}()

	open := func(field string) (*storage.Object, error) {
		fh, err := c.FormFile(field)
		if stderrors.Is(err, http.ErrMissingFile) || stderrors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrBadRequest, "无法读取上传文件", err)
		}
		obj, closer, err := storage.OpenMultipart(fh)
		if err != nil {
			return nil, errors.Wrap(errors.ErrBadRequest, "无法读取上传文件", err)
		}
		closers = append(closers, closer)
		return &obj, nil
	}

	var err error
	if media.Profile, err = open("profile"); err != nil {
		errors.HandleError(c, err)
		return
	}
	if media.Cover, err = open("cover"); err != nil {
		errors.HandleError(c, err)
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), update, media)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"user": user}, "Profile updated successfully")
}

// DiscoverUsers 按关键字搜索用户
func (h *UserHandler) DiscoverUsers(c *gin.Context) {
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	users, err := h.userService.Discover(c.Request.Context(), middleware.CurrentUserID(c), req.Input)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"users": users}, "")
}

// GetUserProfiles 返回指定用户的资料及帖子
func (h *UserHandler) GetUserProfiles(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	view, err := h.userService.GetProfile(c.Request.Context(), req.ProfileID, middleware.CurrentUserID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, view, "")
}
