package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
}

// SuccessResponse 定义成功响应结构
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// 错误类别与HTTP状态码映射
var kindStatusMap = map[Kind]int{
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindRateLimited:  http.StatusTooManyRequests,
	KindInvalidInput: http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindInternal:     http.StatusInternalServerError,
}

// StatusOf 返回错误对应的HTTP状态码
func StatusOf(err error) int {
	if status, ok := kindStatusMap[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError 统一处理错误响应
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)

	if appErr, ok := As(err); ok {
		resp := ErrorResponse{
			Code:    appErr.Code,
			Kind:    appErr.Code.Kind(),
			Message: appErr.Message,
		}
		c.JSON(StatusOf(appErr), resp)
		return
	}

	// 处理非 AppError 类型的错误，不向客户端暴露内部细节
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    ErrInternal,
		Kind:    KindInternal,
		Message: "Internal Server Error",
	})
}

// HandleSuccess 统一处理成功响应
func HandleSuccess(c *gin.Context, data interface{}, message string) {
	HandleSuccessWithStatus(c, http.StatusOK, data, message)
}

// HandleSuccessWithStatus 使用指定状态码返回成功响应
func HandleSuccessWithStatus(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, SuccessResponse{
		Code:    status,
		Message: message,
		Data:    data,
	})
}
