package models

import (
	"time"

	"github.com/google/uuid"
)

// ExternalChannel это подключённый Telegram-канал проекта.
// BotToken аутентифицирует путь webhook-а, WebhookSecret — его заголовок.
type ExternalChannel struct {
	ID        uuid.UUID
	ProjectID uuid.UUID

	BotToken    string
	BotUsername string
	ChatID      int64
	Title       string
	Username    string

	// Секрет webhook; пустой — legacy-канал, ещё не прошедший ротацию
	WebhookSecret string

	Verified     bool
	VerifiedAt   *time.Time
	LastSyncedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName возвращает отображаемое имя канала.
func (c *ExternalChannel) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	if c.BotUsername != "" {
		return c.BotUsername
	}
	return "Channel " + c.ID.String()[:8]
}

// HasWebhookSecret сообщает, настроен ли секрет webhook.
func (c *ExternalChannel) HasWebhookSecret() bool {
	return c.WebhookSecret != ""
}
