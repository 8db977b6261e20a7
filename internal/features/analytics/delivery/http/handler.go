package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/mrAr2rD/contentForceTG-sub000/internal/common/errors"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/middleware"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/service"
	subscriberssvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/service"
)

const (
	defaultRangeDays  = 7
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// Handler отдаёт метрики и журнал событий для дашборда.
type Handler struct {
	aggregator  *service.Aggregator
	subscribers *subscriberssvc.Service
}

func NewHandler(aggregator *service.Aggregator, subscribers *subscriberssvc.Service) *Handler {
	return &Handler{aggregator: aggregator, subscribers: subscribers}
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/channels/:id/metrics/latest", h.ChannelLatest)
	api.GET("/channels/:id/metrics", h.ChannelRange)
	api.GET("/channels/:id/subscribers/events", h.SubscriberEvents)
	api.GET("/messages/:id/metrics/latest", h.MessageLatest)
	api.GET("/messages/:id/metrics", h.MessageRange)
}

func (h *Handler) ChannelLatest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.latest(c, models.ChannelRef(id))
}

func (h *Handler) MessageLatest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.latest(c, models.MessageRef(id))
}

func (h *Handler) ChannelRange(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.listRange(c, models.ChannelRef(id))
}

func (h *Handler) MessageRange(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.listRange(c, models.MessageRef(id))
}

func (h *Handler) latest(c *gin.Context, ref models.EntityRef) {
	snap, err := h.aggregator.Latest(c.Request.Context(), ref)
	if err != nil {
		respondError(c, err)
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no metrics recorded"})
		return
	}
	c.JSON(http.StatusOK, snapshotResponse(snap))
}

func (h *Handler) listRange(c *gin.Context, ref models.EntityRef) {
	from, to, ok := timeRange(c)
	if !ok {
		return
	}

	snaps, err := h.aggregator.Range(c.Request.Context(), ref, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(snaps))
	for i := range snaps {
		items = append(items, snapshotResponse(&snaps[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "from": from, "to": to})
}

// SubscriberEvents возвращает журнал событий подписчиков канала.
func (h *Handler) SubscriberEvents(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	from, to, ok := timeRange(c)
	if !ok {
		return
	}

	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxEventLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit'"})
			return
		}
		limit = parsed
	}

	events, err := h.subscribers.ListEvents(c.Request.Context(), id, from, to, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(events))
	for _, ev := range events {
		items = append(items, gin.H{
			"id":               ev.ID,
			"event_type":       ev.EventType,
			"telegram_user_id": ev.TelegramUserID,
			"username":         ev.Username,
			"first_name":       ev.FirstName,
			"invite_link_id":   ev.InviteLinkID,
			"event_at":         ev.EventAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "from": from, "to": to})
}

func snapshotResponse(s *models.MetricSnapshot) gin.H {
	return gin.H{
		"id":                s.ID,
		"entity_kind":       s.Entity.Kind,
		"entity_id":         s.Entity.ID,
		"views":             s.Views,
		"forwards":          s.Forwards,
		"reactions":         s.Reactions,
		"total_reactions":   s.TotalReactions(),
		"button_clicks":     s.ButtonClicks,
		"subscriber_count":  s.SubscriberCount,
		"subscriber_growth": s.SubscriberGrowth,
		"churn_rate":        s.ChurnRate,
		"engagement_rate":   s.EngagementRate(),
		"measured_at":       s.MeasuredAt,
	}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func timeRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -defaultRangeDays)
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' timestamp"})
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' timestamp"})
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'to' is before 'from'"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func respondError(c *gin.Context, err error) {
	if err == repository.ErrEntityNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
		return
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(middleware.StatusCode(appErr), gin.H{"error": appErr.Message})
		return
	}
	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled API error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
