package post

import (
	"io"
	"strconv"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/middleware"
	"socialspark-backend/internal/model"
	"socialspark-backend/internal/service"
	"socialspark-backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// maxUploadMemory 解析 multipart 表单时驻留内存的上限
const maxUploadMemory = 32 << 20

// PostHandler 处理帖子发布、信息流与评论列表
type PostHandler struct {
	postService service.PostServiceInterface
}

func NewPostHandler(postService service.PostServiceInterface) *PostHandler {
	return &PostHandler{postService}
}

// AddPost multipart 字段：content, images（最多四张）
func (h *PostHandler) AddPost(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrBadRequest, "无效的表单数据", err))
		return
	}
	form := c.Request.MultipartForm
	content := c.PostForm("content")
	files := form.File["images"]
	if len(files) > model.MaxPostImages {
		errors.HandleError(c, errors.New(errors.ErrInvalidPost, "A post can have at most 4 images"))
		return
	}

	images := make([]storage.Object, 0, len(files))
	var closers []io.Closer
	defer func() {
		for _, cl := range closers {
			cl.Close()
		}
	}()
	for _, fh := range files {
		obj, closer, err := storage.OpenMultipart(fh)
		if err != nil {
			errors.HandleError(c, errors.Wrap(errors.ErrBadRequest, "无法读取上传文件", err))
			return
		}
		closers = append(closers, closer)
		images = append(images, obj)
	}

	post, err := h.postService.CreatePost(c.Request.Context(), middleware.CurrentUserID(c), content, images)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"post": post}, "Post created successfully")
}

// GetFeedPosts 支持 page 与 page_size 查询参数
func (h *PostHandler) GetFeedPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	feed, err := h.postService.Feed(c.Request.Context(), middleware.CurrentUserID(c), page, pageSize)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, feed, "")
}

func (h *PostHandler) GetComments(c *gin.Context) {
	comments, err := h.postService.ListComments(c.Request.Context(), c.Param("postId"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"comments": comments}, "")
}
