package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
)

var ErrChannelNotFound = errors.New("channel not found")

// ChannelRepository хранит подключённые каналы.
type ChannelRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ExternalChannel, error)
	GetByBotToken(ctx context.Context, botToken string) (*models.ExternalChannel, error)
	ListVerified(ctx context.Context) ([]models.ExternalChannel, error)
	Create(ctx context.Context, ch *models.ExternalChannel) error
	MarkVerified(ctx context.Context, id uuid.UUID, botUsername, title string, verifiedAt time.Time) error
	UpdateWebhookSecret(ctx context.Context, id uuid.UUID, secret string, syncedAt time.Time) error
	// TouchSynced отмечает момент последней фоновой синхронизации канала.
	TouchSynced(ctx context.Context, id uuid.UUID, syncedAt time.Time) error
}
