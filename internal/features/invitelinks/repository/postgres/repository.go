package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.InviteLinkRepository {
	return &postgresRepository{db: db}
}

const linkColumns = `id, channel_id, invite_link, name, source, join_count, member_limit, expire_date,
		creates_join_request, revoked, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, link *models.InviteLink) error {
	const q = `
	INSERT INTO invite_links
		(id, channel_id, invite_link, name, source, join_count, member_limit, expire_date, creates_join_request, revoked, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())`
	_, err := r.db.ExecContext(ctx, q,
		link.ID, link.ChannelID, link.InviteLink, link.Name, link.Source,
		link.JoinCount, link.MemberLimit, link.ExpireDate, link.CreatesJoinRequest, link.Revoked,
	)
	if err != nil {
		return fmt.Errorf("failed to create invite link: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InviteLink, error) {
	const q = `SELECT ` + linkColumns + ` FROM invite_links WHERE id=$1`
	return scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *postgresRepository) GetByURL(ctx context.Context, url string) (*models.InviteLink, error) {
	const q = `SELECT ` + linkColumns + ` FROM invite_links WHERE invite_link=$1`
	return scanOne(r.db.QueryRowContext(ctx, q, url))
}

func (r *postgresRepository) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]models.InviteLink, error) {
	const q = `SELECT ` + linkColumns + ` FROM invite_links WHERE channel_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invite links: %w", err)
	}
	defer rows.Close()

	var out []models.InviteLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *link)
	}
	return out, rows.Err()
}

func (r *postgresRepository) MarkRevoked(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE invite_links SET revoked=true, updated_at=now() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *postgresRepository) SetJoinCount(ctx context.Context, id uuid.UUID, joinCount int64) error {
	const q = `UPDATE invite_links SET join_count=$2, updated_at=now() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, joinCount)
	return err
}

func scanOne(row *sql.Row) (*models.InviteLink, error) {
	link, err := scanLink(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrInviteLinkNotFound
		}
		return nil, fmt.Errorf("failed to get invite link: %w", err)
	}
	return link, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(row rowScanner) (*models.InviteLink, error) {
	var link models.InviteLink
	if err := row.Scan(
		&link.ID, &link.ChannelID, &link.InviteLink, &link.Name, &link.Source,
		&link.JoinCount, &link.MemberLimit, &link.ExpireDate,
		&link.CreatesJoinRequest, &link.Revoked, &link.CreatedAt, &link.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &link, nil
}
