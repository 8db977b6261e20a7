package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/messages/models"
)

var ErrMessageNotFound = errors.New("published message not found")

// MessageRepository хранит опубликованные сообщения.
type MessageRepository interface {
	Create(ctx context.Context, m *models.PublishedMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PublishedMessage, error)
	// GetByExternalID ищет сообщение по каналу и внешнему id сообщения.
	GetByExternalID(ctx context.Context, channelID uuid.UUID, externalMessageID int64) (*models.PublishedMessage, error)
}
