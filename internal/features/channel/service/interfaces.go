package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/platform/telegram"
)

// ChannelService управляет жизненным циклом подключённых каналов.
type ChannelService interface {
	// Resolve ищет канал по токену бота: сперва в кэше, затем в базе.
	Resolve(ctx context.Context, botToken string) (*models.ExternalChannel, error)

	// Verify проверяет токен и права бота в канале и помечает канал
	// проверенным; после успешной проверки регистрирует webhook.
	Verify(ctx context.Context, id uuid.UUID) error

	// RegisterWebhook генерирует новый секрет, регистрирует webhook в
	// Telegram и сохраняет секрет (ротация).
	RegisterWebhook(ctx context.Context, ch *models.ExternalChannel) error

	// DropWebhook снимает webhook канала.
	DropWebhook(ctx context.Context, ch *models.ExternalChannel) error
}

// TelegramAPI это подмножество Bot API, используемое сервисом каналов.
type TelegramAPI interface {
	GetMe(ctx context.Context, token string) (*telegram.User, error)
	GetChat(ctx context.Context, token, chatID string) (*telegram.Chat, error)
	GetChatMember(ctx context.Context, token, chatID string, userID int64) (*telegram.ChatMemberInfo, error)
	SetWebhook(ctx context.Context, token, webhookURL, secretToken string, allowedUpdates []string) error
	DeleteWebhook(ctx context.Context, token string) error
}

// ChannelCache это кэш каналов по токену.
type ChannelCache interface {
	GetByToken(ctx context.Context, botToken string) (*models.ExternalChannel, error)
	Set(ctx context.Context, ch *models.ExternalChannel) error
	Invalidate(ctx context.Context, botToken string) error
}
