package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.ChannelRepository {
	return &postgresRepository{db: db}
}

const channelColumns = `id, project_id, bot_token, bot_username, chat_id, title, username,
		COALESCE(webhook_secret, ''), verified, verified_at, last_synced_at, created_at, updated_at`

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ExternalChannel, error) {
	const q = `SELECT ` + channelColumns + ` FROM external_channels WHERE id=$1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *postgresRepository) GetByBotToken(ctx context.Context, botToken string) (*models.ExternalChannel, error) {
	const q = `SELECT ` + channelColumns + ` FROM external_channels WHERE bot_token=$1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, botToken))
}

func (r *postgresRepository) ListVerified(ctx context.Context) ([]models.ExternalChannel, error) {
	const q = `SELECT ` + channelColumns + ` FROM external_channels WHERE verified ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list verified channels: %w", err)
	}
	defer rows.Close()

	var out []models.ExternalChannel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	return out, rows.Err()
}

func (r *postgresRepository) Create(ctx context.Context, ch *models.ExternalChannel) error {
	const q = `
	INSERT INTO external_channels
		(id, project_id, bot_token, bot_username, chat_id, title, username, webhook_secret, verified, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9,now(),now())`
	_, err := r.db.ExecContext(ctx, q,
		ch.ID, ch.ProjectID, ch.BotToken, ch.BotUsername, ch.ChatID, ch.Title, ch.Username,
		ch.WebhookSecret, ch.Verified,
	)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func (r *postgresRepository) MarkVerified(ctx context.Context, id uuid.UUID, botUsername, title string, verifiedAt time.Time) error {
	const q = `
	UPDATE external_channels
	SET verified=true, verified_at=$2, bot_username=$3, title=$4, updated_at=now()
	WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, verifiedAt, botUsername, title)
	return err
}

func (r *postgresRepository) UpdateWebhookSecret(ctx context.Context, id uuid.UUID, secret string, syncedAt time.Time) error {
	const q = `
	UPDATE external_channels
	SET webhook_secret=$2, last_synced_at=$3, updated_at=now()
	WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, secret, syncedAt)
	return err
}

func (r *postgresRepository) TouchSynced(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	const q = `
	UPDATE external_channels
	SET last_synced_at=$2, updated_at=now()
	WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, syncedAt)
	return err
}

func (r *postgresRepository) scanOne(row *sql.Row) (*models.ExternalChannel, error) {
	ch, err := scanChannel(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return ch, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChannel(row rowScanner) (*models.ExternalChannel, error) {
	var ch models.ExternalChannel
	if err := row.Scan(
		&ch.ID, &ch.ProjectID, &ch.BotToken, &ch.BotUsername, &ch.ChatID, &ch.Title, &ch.Username,
		&ch.WebhookSecret, &ch.Verified, &ch.VerifiedAt, &ch.LastSyncedAt, &ch.CreatedAt, &ch.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ch, nil
}
