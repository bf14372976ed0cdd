package middleware

import (
	"net/http"
	"time"

	"econet/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// ContextLogger - ключ запросного логгера в gin-контексте.
	ContextLogger = "logger"
	// ContextUserID - ключ идентификатора пользователя в gin-контексте.
	ContextUserID = "user_id"
	// ContextIsAdmin - ключ признака администратора в gin-контексте.
	ContextIsAdmin = "is_admin"

	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	roleAdmin      = "admin"
)

// LoggingMiddleware кладет в контекст логгер с request_id и логирует каждый запрос.
func LoggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestLog := log.With(
			zap.String("request_id", uuid.NewString()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Set(ContextLogger, requestLog)

		c.Next()

		requestLog.Info("Request handled",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// IdentityMiddleware извлекает личность пользователя из заголовков,
// которые выставляет внешний слой аутентификации. Сама аутентификация
// за пределами этого сервиса.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader(headerUserID); raw != "" {
			if userID, err := uuid.Parse(raw); err == nil {
				c.Set(ContextUserID, userID)
				c.Set(ContextIsAdmin, c.GetHeader(headerUserRole) == roleAdmin)
			}
		}
		c.Next()
	}
}

// RequireUser закрывает маршруты, которым нужна личность пользователя.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextUserID); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: dto.ErrorBody{
					Code:    "UNAUTHORIZED",
					Message: "user identity is required",
				},
			})
			return
		}
		c.Next()
	}
}

// UserFromContext возвращает личность пользователя, установленную IdentityMiddleware.
func UserFromContext(c *gin.Context) (uuid.UUID, bool, bool) {
	value, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false, false
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil, false, false
	}
	return userID, c.GetBool(ContextIsAdmin), true
}
