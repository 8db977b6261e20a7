package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/mrAr2rD/contentForceTG-sub000/internal/common/errors"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	channelrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/repository"
	subscribersrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/repository"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/platform/telegram"
)

// CreateLinkParams параметры создания пригласительной ссылки.
type CreateLinkParams struct {
	Name               string
	Source             string
	MemberLimit        *int64
	ExpireDate         *time.Time
	CreatesJoinRequest bool
}

// TelegramAPI это часть Bot API, нужная для управления ссылками.
type TelegramAPI interface {
	CreateChatInviteLink(ctx context.Context, token, chatID string, p telegram.InviteLinkParams) (*telegram.ChatInviteLink, error)
	RevokeChatInviteLink(ctx context.Context, token, chatID, inviteLink string) (*telegram.ChatInviteLink, error)
}

// LinkCache кэширует ссылки по URL; nil-результат без ошибки — cache miss.
type LinkCache interface {
	Set(ctx context.Context, link *models.InviteLink) error
	GetByURL(ctx context.Context, url string) (*models.InviteLink, error)
	Invalidate(ctx context.Context, url string) error
}

// InviteLinkService управляет пригласительными ссылками канала.
type InviteLinkService interface {
	Create(ctx context.Context, channelID uuid.UUID, p CreateLinkParams) (*models.InviteLink, error)
	Revoke(ctx context.Context, linkID uuid.UUID) (*models.InviteLink, error)
	List(ctx context.Context, channelID uuid.UUID) ([]models.InviteLink, error)
	// GetByURL используется при атрибуции chat_member событий;
	// nil без ошибки означает неизвестную ссылку.
	GetByURL(ctx context.Context, url string) (*models.InviteLink, error)
	Stats(ctx context.Context, linkID uuid.UUID) (*models.LinkStats, error)
	// SyncJoinCounts пересчитывает join_count ссылок канала из журнала событий.
	SyncJoinCounts(ctx context.Context, channelID uuid.UUID) error
}

type inviteLinkService struct {
	links    repository.InviteLinkRepository
	channels channelrepo.ChannelRepository
	events   subscribersrepo.EventRepository
	tg       TelegramAPI
	cache    LinkCache
}

func NewInviteLinkService(
	links repository.InviteLinkRepository,
	channels channelrepo.ChannelRepository,
	events subscribersrepo.EventRepository,
	tg TelegramAPI,
	cache LinkCache,
) InviteLinkService {
	return &inviteLinkService{
		links:    links,
		channels: channels,
		events:   events,
		tg:       tg,
		cache:    cache,
	}
}

func (s *inviteLinkService) Create(ctx context.Context, channelID uuid.UUID, p CreateLinkParams) (*models.InviteLink, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.Verified {
		return nil, apperrors.New(apperrors.ErrCodeChannelNotVerified, "channel is not verified")
	}

	params := telegram.InviteLinkParams{
		Name:               p.Name,
		CreatesJoinRequest: p.CreatesJoinRequest,
	}
	if p.MemberLimit != nil {
		params.MemberLimit = int(*p.MemberLimit)
	}
	if p.ExpireDate != nil {
		params.ExpireDate = p.ExpireDate.Unix()
	}

	created, err := s.tg.CreateChatInviteLink(ctx, channel.BotToken, chatIDParam(channel.ChatID), params)
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("createChatInviteLink", err)
	}

	link := &models.InviteLink{
		ID:                 uuid.New(),
		ChannelID:          channelID,
		InviteLink:         created.InviteLink,
		Name:               p.Name,
		Source:             p.Source,
		MemberLimit:        p.MemberLimit,
		ExpireDate:         p.ExpireDate,
		CreatesJoinRequest: p.CreatesJoinRequest,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, apperrors.NewDatabaseError("create invite link", err)
	}

	if err := s.cache.Set(ctx, link); err != nil {
		logger.Warn().Err(err).Str("invite_link", link.InviteLink).Msg("Failed to cache invite link")
	}

	logger.Info().
		Str("channel_id", channelID.String()).
		Str("invite_link", link.InviteLink).
		Str("source", link.Source).
		Msg("Invite link created")

	return link, nil
}

func (s *inviteLinkService) Revoke(ctx context.Context, linkID uuid.UUID) (*models.InviteLink, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.Revoked {
		return link, nil
	}

	channel, err := s.channels.GetByID(ctx, link.ChannelID)
	if err != nil {
		return nil, err
	}

	if _, err := s.tg.RevokeChatInviteLink(ctx, channel.BotToken, chatIDParam(channel.ChatID), link.InviteLink); err != nil {
		return nil, apperrors.NewTelegramAPIError("revokeChatInviteLink", err)
	}

	if err := s.links.MarkRevoked(ctx, linkID); err != nil {
		return nil, apperrors.NewDatabaseError("revoke invite link", err)
	}
	link.Revoked = true

	if err := s.cache.Invalidate(ctx, link.InviteLink); err != nil {
		logger.Warn().Err(err).Str("invite_link", link.InviteLink).Msg("Failed to invalidate invite link cache")
	}

	logger.Info().
		Str("channel_id", link.ChannelID.String()).
		Str("invite_link", link.InviteLink).
		Msg("Invite link revoked")

	return link, nil
}

func (s *inviteLinkService) List(ctx context.Context, channelID uuid.UUID) ([]models.InviteLink, error) {
	return s.links.ListByChannel(ctx, channelID)
}

func (s *inviteLinkService) GetByURL(ctx context.Context, url string) (*models.InviteLink, error) {
	if url == "" {
		return nil, nil
	}

	cached, err := s.cache.GetByURL(ctx, url)
	if err != nil {
		logger.Warn().Err(err).Msg("Invite link cache lookup failed, falling back to database")
	} else if cached != nil {
		return cached, nil
	}

	link, err := s.links.GetByURL(ctx, url)
	if err != nil {
		if err == repository.ErrInviteLinkNotFound {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("get invite link by url", err)
	}

	if err := s.cache.Set(ctx, link); err != nil {
		logger.Warn().Err(err).Str("invite_link", link.InviteLink).Msg("Failed to cache invite link")
	}
	return link, nil
}

func (s *inviteLinkService) Stats(ctx context.Context, linkID uuid.UUID) (*models.LinkStats, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}

	counts, err := s.events.CountsByInviteLink(ctx, linkID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count invite link events", err)
	}

	retained := counts.Joined - counts.Left - counts.Kicked
	if retained < 0 {
		retained = 0
	}

	return &models.LinkStats{
		Link:           *link,
		Joined:         counts.Joined,
		Left:           counts.Left,
		Kicked:         counts.Kicked,
		Retained:       retained,
		ConversionRate: link.ConversionRate(counts.Joined, counts.Left+counts.Kicked),
		Active:         link.Active(time.Now()),
	}, nil
}

func (s *inviteLinkService) SyncJoinCounts(ctx context.Context, channelID uuid.UUID) error {
	links, err := s.links.ListByChannel(ctx, channelID)
	if err != nil {
		return apperrors.NewDatabaseError("list invite links", err)
	}

	var synced int
	for i := range links {
		link := &links[i]
		counts, err := s.events.CountsByInviteLink(ctx, link.ID)
		if err != nil {
			logger.Error().Err(err).Str("invite_link", link.InviteLink).Msg("Failed to count invite link events")
			continue
		}
		if counts.Joined == link.JoinCount {
			continue
		}
		if err := s.links.SetJoinCount(ctx, link.ID, counts.Joined); err != nil {
			logger.Error().Err(err).Str("invite_link", link.InviteLink).Msg("Failed to sync invite link join count")
			continue
		}
		if err := s.cache.Invalidate(ctx, link.InviteLink); err != nil {
			logger.Warn().Err(err).Str("invite_link", link.InviteLink).Msg("Failed to invalidate invite link cache")
		}
		synced++
	}

	if synced > 0 {
		logger.Info().
			Str("channel_id", channelID.String()).
			Int("links", synced).
			Msg("Invite link join counts synced")
	}
	return nil
}

func chatIDParam(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
