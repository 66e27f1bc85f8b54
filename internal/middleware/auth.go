package middleware

import (
	"context"
	"strings"
	"time"

	"socialspark-backend/internal/errors"
	"socialspark-backend/internal/model"
	"socialspark-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserIDKey 是认证后写入 gin.Context 的用户ID键
const UserIDKey = "user_id"

// UserEnsurer 在首次访问时创建用户记录
type UserEnsurer interface {
	EnsureUser(ctx context.Context, identity model.Identity) (*model.User, error)
}

// AuthMiddleware 校验 Bearer 令牌，并确保调用者在本地有用户记录
func AuthMiddleware(secret []byte, users UserEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		util.Logger.Debug("进入认证中间件",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method))

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			errors.HandleError(c, errors.New(errors.ErrUnauthorized, "需要认证"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			errors.HandleError(c, errors.New(errors.ErrUnauthorized, "无效的认证格式"))
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(secret, parts[1])
		if err != nil {
			errors.HandleError(c, errors.Wrap(errors.ErrInvalidToken, "无效或过期的令牌", err))
			c.Abort()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err = users.EnsureUser(ctx, model.Identity{
			UserID:   claims.Subject,
			Email:    claims.Email,
			FullName: claims.Name,
			Picture:  claims.Picture,
		})
		if err != nil {
			errors.HandleError(c, err)
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

// CurrentUserID 返回认证中间件写入的用户ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
