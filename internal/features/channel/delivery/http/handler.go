package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/mrAr2rD/contentForceTG-sub000/internal/common/errors"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/middleware"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/service"
)

// Handler управляет подключёнными каналами через API дашборда.
type Handler struct {
	channels service.ChannelService
	repo     repository.ChannelRepository
}

func NewHandler(channels service.ChannelService, repo repository.ChannelRepository) *Handler {
	return &Handler{channels: channels, repo: repo}
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/channels/:id", h.GetChannel)
	api.POST("/channels/:id/verify", h.VerifyChannel)
	api.POST("/channels/:id/webhook", h.RotateWebhook)
	api.DELETE("/channels/:id/webhook", h.DropWebhook)
}

func (h *Handler) GetChannel(c *gin.Context) {
	channel, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, channelResponse(channel))
}

// VerifyChannel проверяет права бота в канале и включает приём webhook-ов.
func (h *Handler) VerifyChannel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	if err := h.channels.Verify(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	channel, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, channelResponse(channel))
}

// RotateWebhook перерегистрирует webhook с новым секретом.
func (h *Handler) RotateWebhook(c *gin.Context) {
	channel, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.channels.RegisterWebhook(c.Request.Context(), channel); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) DropWebhook(c *gin.Context) {
	channel, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.channels.DropWebhook(c.Request.Context(), channel); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) load(c *gin.Context) (*models.ExternalChannel, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return nil, false
	}

	channel, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if err == repository.ErrChannelNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return channel, true
}

// channelResponse никогда не включает токен бота и секрет webhook-а.
func channelResponse(ch *models.ExternalChannel) gin.H {
	return gin.H{
		"id":             ch.ID,
		"project_id":     ch.ProjectID,
		"title":          ch.Title,
		"username":       ch.Username,
		"bot_username":   ch.BotUsername,
		"chat_id":        ch.ChatID,
		"verified":       ch.Verified,
		"verified_at":    ch.VerifiedAt,
		"webhook_secret": ch.HasWebhookSecret(),
		"last_synced_at": ch.LastSyncedAt,
		"created_at":     ch.CreatedAt,
	}
}

func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(middleware.StatusCode(appErr), gin.H{"error": appErr.Message})
		return
	}
	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled API error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
