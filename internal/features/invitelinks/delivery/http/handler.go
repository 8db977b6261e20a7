package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/mrAr2rD/contentForceTG-sub000/internal/common/errors"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/middleware"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/repository"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/service"
)

// Handler управляет пригласительными ссылками через API дашборда.
type Handler struct {
	links service.InviteLinkService
}

func NewHandler(links service.InviteLinkService) *Handler {
	return &Handler{links: links}
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/channels/:id/invite-links", h.List)
	api.POST("/channels/:id/invite-links", h.Create)
	api.POST("/invite-links/:link_id/revoke", h.Revoke)
	api.GET("/invite-links/:link_id/stats", h.Stats)
}

type createLinkRequest struct {
	Name               string     `json:"name"`
	Source             string     `json:"source"`
	MemberLimit        *int64     `json:"member_limit,omitempty"`
	ExpireDate         *time.Time `json:"expire_date,omitempty"`
	CreatesJoinRequest bool       `json:"creates_join_request"`
}

func (h *Handler) Create(c *gin.Context) {
	channelID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.MemberLimit != nil && *req.MemberLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "member_limit must be positive"})
		return
	}

	link, err := h.links.Create(c.Request.Context(), channelID, service.CreateLinkParams{
		Name:               req.Name,
		Source:             req.Source,
		MemberLimit:        req.MemberLimit,
		ExpireDate:         req.ExpireDate,
		CreatesJoinRequest: req.CreatesJoinRequest,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, linkResponse(link))
}

func (h *Handler) Revoke(c *gin.Context) {
	linkID, ok := pathID(c, "link_id")
	if !ok {
		return
	}

	link, err := h.links.Revoke(c.Request.Context(), linkID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, linkResponse(link))
}

func (h *Handler) List(c *gin.Context) {
	channelID, ok := pathID(c, "id")
	if !ok {
		return
	}

	links, err := h.links.List(c.Request.Context(), channelID)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(links))
	for i := range links {
		items = append(items, linkResponse(&links[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Stats(c *gin.Context) {
	linkID, ok := pathID(c, "link_id")
	if !ok {
		return
	}

	stats, err := h.links.Stats(c.Request.Context(), linkID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func linkResponse(l *models.InviteLink) gin.H {
	return gin.H{
		"id":                   l.ID,
		"channel_id":           l.ChannelID,
		"invite_link":          l.InviteLink,
		"name":                 l.Name,
		"source":               l.Source,
		"join_count":           l.JoinCount,
		"member_limit":         l.MemberLimit,
		"expire_date":          l.ExpireDate,
		"creates_join_request": l.CreatesJoinRequest,
		"revoked":              l.Revoked,
		"active":               l.Active(time.Now()),
		"created_at":           l.CreatedAt,
	}
}

func pathID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	if err == repository.ErrInviteLinkNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "invite link not found"})
		return
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(middleware.StatusCode(appErr), gin.H{"error": appErr.Message})
		return
	}
	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled API error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
