package models

import (
	"time"

	"github.com/google/uuid"
)

// PublishedMessage это локальная запись сообщения, опубликованного платформой.
// ExternalMessageID связывает входящую аналитику с постом.
type PublishedMessage struct {
	ID        uuid.UUID
	ChannelID uuid.UUID
	PostID    uuid.UUID

	ExternalMessageID int64
	ChatID            int64

	PublishedAt time.Time
	CreatedAt   time.Time
}
