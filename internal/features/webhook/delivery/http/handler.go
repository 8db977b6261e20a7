package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mrAr2rD/contentForceTG-sub000/internal/common/errors"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	channelmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
	channelrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository"
	channelsvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/service"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/webhook/models"
	webhooksvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/webhook/service"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Handler принимает входящие webhook-и Telegram.
type Handler struct {
	channels   channelsvc.ChannelService
	dispatcher *webhooksvc.Dispatcher
}

func NewHandler(channels channelsvc.ChannelService, dispatcher *webhooksvc.Dispatcher) *Handler {
	return &Handler{channels: channels, dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/webhooks/telegram/:token", h.HandleUpdate)
}

// HandleUpdate аутентифицирует и обрабатывает одно обновление Bot API.
// После успешной аутентификации ответ всегда 200: иначе Telegram будет
// бесконечно ретраить обновление, которое мы не можем обработать.
func (h *Handler) HandleUpdate(c *gin.Context) {
	token := c.Param("token")

	channel, err := h.channels.Resolve(c.Request.Context(), token)
	if err != nil && !isUnknownChannel(err) {
		// Временный сбой хранилища: пусть Telegram доставит повторно
		logger.Error().Err(err).
			Str("token_prefix", tokenPrefix(token)).
			Msg("Failed to resolve webhook channel")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	if err != nil || channel == nil {
		logger.Warn().
			Str("token_prefix", tokenPrefix(token)).
			Str("client_ip", c.ClientIP()).
			Msg("Webhook for unknown bot token")
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}

	if !h.authenticate(c, channel.WebhookSecret, channel.ID.String()) {
		return
	}

	var upd models.Update
	if err := json.NewDecoder(c.Request.Body).Decode(&upd); err != nil {
		// Повтор не поможет: подтверждаем и выбрасываем
		logger.Warn().Err(err).
			Str("channel_id", channel.ID.String()).
			Msg("Malformed webhook payload")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	h.dispatch(c, channel, &upd)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// dispatch изолирует панику обработчиков обновления. После аутентификации
// ответ остаётся 200: иначе Telegram устроит шторм повторных доставок
// обновления, которое падает на каждой попытке.
func (h *Handler) dispatch(c *gin.Context, channel *channelmodels.ExternalChannel, upd *models.Update) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error().
				Str("channel_id", channel.ID.String()).
				Int64("update_id", upd.UpdateID).
				Interface("panic", recovered).
				Str("stack", string(debug.Stack())).
				Msg("Panic recovered while processing update")
		}
	}()
	h.dispatcher.Dispatch(c.Request.Context(), channel, upd)
}

// authenticate сверяет секрет заголовка с секретом канала.
// Канал без секрета это legacy-канал, ещё не прошедший ротацию:
// пропускаем с предупреждением.
func (h *Handler) authenticate(c *gin.Context, secret, channelID string) bool {
	if secret == "" {
		logger.Warn().
			Str("channel_id", channelID).
			Msg("Webhook accepted in migration mode: channel has no secret configured")
		return true
	}

	provided := c.GetHeader(secretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		logger.Warn().
			Str("channel_id", channelID).
			Str("client_ip", c.ClientIP()).
			Msg("Webhook secret mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

func isUnknownChannel(err error) bool {
	if errors.Is(err, channelrepo.ErrChannelNotFound) {
		return true
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.IsNotFound()
	}
	return false
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
