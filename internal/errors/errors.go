package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode 定义错误码类型
type ErrorCode int

// 定义系统级错误码 (1000-1999)
const (
	ErrInternal ErrorCode = 1000 + iota
	ErrDatabase
	ErrStorage
)

// 定义认证相关错误码 (2000-2999)
const (
	ErrUnauthorized ErrorCode = 2000 + iota
	ErrInvalidToken
)

// 定义请求相关错误码 (3000-3999)
const (
	ErrBadRequest ErrorCode = 3000 + iota
	ErrValidation
)

// 定义业务相关错误码 (4000-4999)
const (
	ErrUserNotFound ErrorCode = 4000 + iota
	ErrPostNotFound
	ErrRequestNotFound
	ErrAlreadyFollowing
	ErrAlreadyConnected
	ErrRequestPending
	ErrRateLimited
	ErrSelfRelation
	ErrInvalidComment
	ErrInvalidPost
)

// Kind 是调用方可判定的错误类别
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindRateLimited  Kind = "rate_limited"
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

var errorKindMap = map[ErrorCode]Kind{
	ErrInternal: KindInternal,
	ErrDatabase: KindInternal,
	ErrStorage:  KindInternal,

	ErrUnauthorized: KindUnauthorized,
	ErrInvalidToken: KindUnauthorized,

	ErrBadRequest: KindInvalidInput,
	ErrValidation: KindInvalidInput,

	ErrUserNotFound:     KindNotFound,
	ErrPostNotFound:     KindNotFound,
	ErrRequestNotFound:  KindNotFound,
	ErrAlreadyFollowing: KindConflict,
	ErrAlreadyConnected: KindConflict,
	ErrRequestPending:   KindConflict,
	ErrRateLimited:      KindRateLimited,
	ErrSelfRelation:     KindInvalidInput,
	ErrInvalidComment:   KindInvalidInput,
	ErrInvalidPost:      KindInvalidInput,
}

// Kind 返回错误码对应的类别
func (c ErrorCode) Kind() Kind {
	if k, ok := errorKindMap[c]; ok {
		return k
	}
	return KindInternal
}

// AppError 定义应用错误结构
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is(err, errors.New(ErrRateLimited, ""))
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装已有错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Database 包装存储层错误，原始错误保持可追溯
func Database(message string, err error) *AppError {
	return Wrap(ErrDatabase, message, err)
}

// As 从错误链中取出 AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf 获取错误码，非 AppError 视为内部错误
func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrInternal
}

// KindOf 获取错误类别
func KindOf(err error) Kind {
	return CodeOf(err).Kind()
}

// HasCode 判断错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
