package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/mrAr2rD/contentForceTG-sub000/internal/common/errors"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository"
)

// Типы обновлений, которые платформа просит Telegram доставлять.
var allowedUpdates = []string{
	"message",
	"channel_post",
	"edited_channel_post",
	"callback_query",
	"my_chat_member",
	"chat_member",
	"message_reaction",
}

type channelService struct {
	repo           repository.ChannelRepository
	cache          ChannelCache
	tg             TelegramAPI
	webhookBaseURL string
}

func NewService(repo repository.ChannelRepository, cache ChannelCache, tg TelegramAPI, webhookBaseURL string) ChannelService {
	return &channelService{
		repo:           repo,
		cache:          cache,
		tg:             tg,
		webhookBaseURL: webhookBaseURL,
	}
}

// Resolve ищет канал по токену бота: кэш, затем база с прогревом кэша.
func (s *channelService) Resolve(ctx context.Context, botToken string) (*models.ExternalChannel, error) {
	if s.cache != nil {
		if ch, err := s.cache.GetByToken(ctx, botToken); err == nil && ch != nil {
			return ch, nil
		}
	}

	ch, err := s.repo.GetByBotToken(ctx, botToken)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, ch); err != nil {
			logger.Warn().Err(err).Str("channel_id", ch.ID.String()).Msg("Failed to cache channel")
		}
	}
	return ch, nil
}

// Verify проверяет токен и права бота в канале, помечает канал проверенным
// и регистрирует webhook.
func (s *channelService) Verify(ctx context.Context, id uuid.UUID) error {
	ch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	me, err := s.tg.GetMe(ctx, ch.BotToken)
	if err != nil {
		return apperrors.NewTelegramAPIError("getMe", err)
	}

	chatID := strconv.FormatInt(ch.ChatID, 10)
	chat, err := s.tg.GetChat(ctx, ch.BotToken, chatID)
	if err != nil {
		return apperrors.NewTelegramAPIError("getChat", err)
	}

	member, err := s.tg.GetChatMember(ctx, ch.BotToken, chatID, me.ID)
	if err != nil {
		return apperrors.NewTelegramAPIError("getChatMember", err)
	}
	if !canPostMessages(member.Status, member.CanPostMessages) {
		return apperrors.New(apperrors.ErrCodeChannelNotVerified,
			"Bot doesn't have permission to post messages in this channel")
	}

	if err := s.repo.MarkVerified(ctx, ch.ID, me.Username, chat.Title, time.Now()); err != nil {
		return apperrors.NewDatabaseError("mark channel verified", err)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, ch.BotToken)
	}

	logger.Info().
		Str("channel_id", ch.ID.String()).
		Str("bot_username", me.Username).
		Msg("Channel verified")

	ch.BotUsername = me.Username
	ch.Title = chat.Title
	return s.RegisterWebhook(ctx, ch)
}

// RegisterWebhook генерирует секрет, регистрирует webhook и сохраняет
// секрет в базе. Секрет ротируется при каждой регистрации.
func (s *channelService) RegisterWebhook(ctx context.Context, ch *models.ExternalChannel) error {
	secret, err := newWebhookSecret()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeWebhookSetup, "Failed to generate webhook secret")
	}

	webhookURL := fmt.Sprintf("%s/webhooks/telegram/%s", s.webhookBaseURL, ch.BotToken)
	if err := s.tg.SetWebhook(ctx, ch.BotToken, webhookURL, secret, allowedUpdates); err != nil {
		return apperrors.NewTelegramAPIError("setWebhook", err)
	}

	// Секрет сохраняется только после успешной регистрации в Telegram
	if err := s.repo.UpdateWebhookSecret(ctx, ch.ID, secret, time.Now()); err != nil {
		return apperrors.NewDatabaseError("update webhook secret", err)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, ch.BotToken)
	}

	logger.Info().
		Str("channel_id", ch.ID.String()).
		Msg("Webhook configured")
	return nil
}

// DropWebhook снимает webhook канала.
func (s *channelService) DropWebhook(ctx context.Context, ch *models.ExternalChannel) error {
	if err := s.tg.DeleteWebhook(ctx, ch.BotToken); err != nil {
		return apperrors.NewTelegramAPIError("deleteWebhook", err)
	}
	return nil
}

// newWebhookSecret возвращает 32 случайных байта в hex (64 символа).
func newWebhookSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func canPostMessages(status string, canPost *bool) bool {
	if status == "creator" {
		return true
	}
	if status != "administrator" {
		return false
	}
	// Отсутствие поля у администратора означает полный набор прав
	return canPost == nil || *canPost
}
