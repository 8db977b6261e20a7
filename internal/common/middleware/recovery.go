package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/errors"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
)

// RequestID добавляет ID запроса в контекст и заголовок ответа
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Recovery перехватывает панику в обработчике и возвращает 500
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error().
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
	})
}

// StatusCode возвращает HTTP статус код для ошибки приложения
func StatusCode(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest, errors.ErrCodeMalformed:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeChannelNotFound,
		errors.ErrCodeMessageNotFound, errors.ErrCodeInviteLinkNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized, errors.ErrCodeWebhookAuth:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden, errors.ErrCodeChannelNotVerified:
		return http.StatusForbidden
	case errors.ErrCodeCacheError:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTelegramAPI, errors.ErrCodeWebhookSetup:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetRequestID получает ID запроса из контекста
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return "unknown"
}
