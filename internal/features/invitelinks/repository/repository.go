package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/models"
)

var ErrInviteLinkNotFound = errors.New("invite link not found")

// InviteLinkRepository хранит пригласительные ссылки.
type InviteLinkRepository interface {
	Create(ctx context.Context, link *models.InviteLink) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InviteLink, error)
	GetByURL(ctx context.Context, url string) (*models.InviteLink, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID) ([]models.InviteLink, error)
	MarkRevoked(ctx context.Context, id uuid.UUID) error
	// SetJoinCount выставляет join_count при фоновой сверке с журналом.
	SetJoinCount(ctx context.Context, id uuid.UUID, joinCount int64) error
}
