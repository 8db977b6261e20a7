package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// Ключи контекста для полей, извлечённых из Telegram init-data.
const (
	UserIDCtxParam    = "user_id"
	UsernameCtxParam  = "username"
	FirstNameCtxParam = "first_name"
)

// InitData валидирует Telegram Mini Apps init-data для API дашборда.
// Данные ожидаются в заголовке "X-Telegram-Init-Data" либо в query "init_data".
func InitData(botToken string, expIn time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if botToken == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "init-data validation is not configured"})
			return
		}

		raw := c.GetHeader("X-Telegram-Init-Data")
		if raw == "" {
			raw = c.Query("init_data")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing init_data"})
			return
		}

		if err := initdata.Validate(raw, botToken, expIn); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid init_data"})
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid init_data format"})
			return
		}

		if parsed.User.ID != 0 {
			c.Set(UserIDCtxParam, parsed.User.ID)
			c.Set(UsernameCtxParam, parsed.User.Username)
			c.Set(FirstNameCtxParam, parsed.User.FirstName)
		}

		c.Next()
	}
}
