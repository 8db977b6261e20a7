package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/messages/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/messages/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.MessageRepository {
	return &postgresRepository{db: db}
}

const messageColumns = `id, channel_id, post_id, external_message_id, chat_id, published_at, created_at`

func (r *postgresRepository) Create(ctx context.Context, m *models.PublishedMessage) error {
	const q = `
	INSERT INTO published_messages (id, channel_id, post_id, external_message_id, chat_id, published_at, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,now())`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.ChannelID, m.PostID, m.ExternalMessageID, m.ChatID, m.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to create published message: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PublishedMessage, error) {
	const q = `SELECT ` + messageColumns + ` FROM published_messages WHERE id=$1`
	return scanMessage(r.db.QueryRowContext(ctx, q, id))
}

func (r *postgresRepository) GetByExternalID(ctx context.Context, channelID uuid.UUID, externalMessageID int64) (*models.PublishedMessage, error) {
	const q = `SELECT ` + messageColumns + ` FROM published_messages WHERE channel_id=$1 AND external_message_id=$2`
	return scanMessage(r.db.QueryRowContext(ctx, q, channelID, externalMessageID))
}

func scanMessage(row *sql.Row) (*models.PublishedMessage, error) {
	var m models.PublishedMessage
	if err := row.Scan(&m.ID, &m.ChannelID, &m.PostID, &m.ExternalMessageID, &m.ChatID, &m.PublishedAt, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get published message: %w", err)
	}
	return &m, nil
}
