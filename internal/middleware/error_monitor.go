package middleware

import (
	"sync"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorMonitor 按错误码统计请求错误
type ErrorMonitor struct {
	errorCounts map[errors.ErrorCode]int
	mu          sync.RWMutex
}

func NewErrorMonitor() *ErrorMonitor {
	return &ErrorMonitor{
		errorCounts: make(map[errors.ErrorCode]int),
	}
}

func (m *ErrorMonitor) RecordError(err error) {
	m.mu.Lock()
	m.errorCounts[errors.CodeOf(err)]++
	m.mu.Unlock()
}

func (m *ErrorMonitor) GetErrorCounts() map[errors.ErrorCode]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[errors.ErrorCode]int, len(m.errorCounts))
	for code, count := range m.errorCounts {
		counts[code] = count
	}
	return counts
}

func ErrorMonitorMiddleware(monitor *ErrorMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			monitor.RecordError(e.Err)

			fields := []zap.Field{
				zap.Int("error_code", int(errors.CodeOf(e.Err))),
				zap.String("kind", string(errors.KindOf(e.Err))),
				zap.Error(e.Err),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			}
			// 业务错误只记为警告
			if errors.KindOf(e.Err) == errors.KindInternal {
				util.Logger.Error("请求处理错误", fields...)
			} else {
				util.Logger.Warn("请求处理错误", fields...)
			}
		}
	}
}
