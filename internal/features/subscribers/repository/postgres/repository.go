package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	analyticsmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
	analyticsrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.EventRepository {
	return &postgresRepository{db: db}
}

// ApplyTransition выполняет вставку события, обновление снапшота канала и
// инкремент join_count в одной транзакции. Блокировка строки канала
// сериализует переход с конкурентными recordMetrics того же канала.
func (r *postgresRepository) ApplyTransition(ctx context.Context, ev *models.SubscriberEvent, apply analyticsrepo.ApplyFunc) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM external_channels WHERE id=$1 FOR UPDATE`, ev.ChannelID).Scan(&lockedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return analyticsrepo.ErrEntityNotFound
		}
		return err
	}

	if apply != nil {
		if err = applyChannelSnapshot(ctx, tx, ev.ChannelID, apply); err != nil {
			return err
		}
	}

	if err = insertEvent(ctx, tx, ev); err != nil {
		return err
	}

	if ev.EventType == models.EventJoined && ev.InviteLinkID != nil {
		_, err = tx.ExecContext(ctx,
			`UPDATE invite_links SET join_count = join_count + 1, updated_at = now() WHERE id=$1`,
			*ev.InviteLinkID)
		if err != nil {
			return fmt.Errorf("failed to increment invite link join count: %w", err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, from, to time.Time, limit int) ([]models.SubscriberEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	const q = `
	SELECT id, channel_id, invite_link_id, telegram_user_id, username, first_name, event_type, user_data, event_at, created_at
	FROM subscriber_events
	WHERE channel_id=$1 AND event_at BETWEEN $2 AND $3
	ORDER BY event_at DESC
	LIMIT $4`
	rows, err := r.db.QueryContext(ctx, q, channelID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriber events: %w", err)
	}
	defer rows.Close()

	var out []models.SubscriberEvent
	for rows.Next() {
		var (
			ev       models.SubscriberEvent
			linkID   uuid.NullUUID
			userData []byte
		)
		if err := rows.Scan(
			&ev.ID, &ev.ChannelID, &linkID, &ev.TelegramUserID, &ev.Username, &ev.FirstName,
			&ev.EventType, &userData, &ev.EventAt, &ev.CreatedAt,
		); err != nil {
			return nil, err
		}
		if linkID.Valid {
			id := linkID.UUID
			ev.InviteLinkID = &id
		}
		if len(userData) > 0 {
			if err := json.Unmarshal(userData, &ev.UserData); err != nil {
				return nil, fmt.Errorf("decode user_data: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *postgresRepository) CountsByInviteLink(ctx context.Context, inviteLinkID uuid.UUID) (repository.EventCounts, error) {
	const q = `
	SELECT
		COUNT(*) FILTER (WHERE event_type='joined'),
		COUNT(*) FILTER (WHERE event_type='left'),
		COUNT(*) FILTER (WHERE event_type='kicked')
	FROM subscriber_events
	WHERE invite_link_id=$1`
	var counts repository.EventCounts
	err := r.db.QueryRowContext(ctx, q, inviteLinkID).Scan(&counts.Joined, &counts.Left, &counts.Kicked)
	if err != nil {
		return repository.EventCounts{}, fmt.Errorf("failed to count link events: %w", err)
	}
	return counts, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, ev *models.SubscriberEvent) error {
	userData, err := json.Marshal(ev.UserData)
	if err != nil {
		return fmt.Errorf("encode user_data: %w", err)
	}
	var linkID interface{}
	if ev.InviteLinkID != nil {
		linkID = *ev.InviteLinkID
	}
	const q = `
	INSERT INTO subscriber_events
		(id, channel_id, invite_link_id, telegram_user_id, username, first_name, event_type, user_data, event_at, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())`
	_, err = tx.ExecContext(ctx, q,
		ev.ID, ev.ChannelID, linkID, ev.TelegramUserID, ev.Username, ev.FirstName,
		ev.EventType, userData, ev.EventAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscriber event: %w", err)
	}
	return nil
}

// applyChannelSnapshot повторяет шаг чтения/записи снапшота внутри уже
// открытой транзакции, держащей блокировку канала.
func applyChannelSnapshot(ctx context.Context, tx *sql.Tx, channelID uuid.UUID, apply analyticsrepo.ApplyFunc) error {
	ref := analyticsmodels.ChannelRef(channelID)

	const latestQ = `
	SELECT id, entity_kind, entity_id, views, forwards, reactions, button_clicks,
		subscriber_count, subscriber_growth, churn_rate, measured_at, created_at, updated_at
	FROM metric_snapshots
	WHERE entity_kind=$1 AND entity_id=$2
	ORDER BY measured_at DESC
	LIMIT 1`

	var (
		latest       *analyticsmodels.MetricSnapshot
		reactions    []byte
		buttonClicks []byte
		s            analyticsmodels.MetricSnapshot
	)
	err := tx.QueryRowContext(ctx, latestQ, ref.Kind, ref.ID).Scan(
		&s.ID, &s.Entity.Kind, &s.Entity.ID, &s.Views, &s.Forwards, &reactions, &buttonClicks,
		&s.SubscriberCount, &s.SubscriberGrowth, &s.ChurnRate, &s.MeasuredAt, &s.CreatedAt, &s.UpdatedAt,
	)
	switch err {
	case nil:
		if len(reactions) > 0 {
			if err := json.Unmarshal(reactions, &s.Reactions); err != nil {
				return fmt.Errorf("decode reactions: %w", err)
			}
		}
		if len(buttonClicks) > 0 {
			if err := json.Unmarshal(buttonClicks, &s.ButtonClicks); err != nil {
				return fmt.Errorf("decode button_clicks: %w", err)
			}
		}
		latest = &s
	case sql.ErrNoRows:
		latest = nil
	default:
		return err
	}

	next, inPlace := apply(latest)
	if next == nil {
		return nil
	}

	nextReactions, err := json.Marshal(nonNil(next.Reactions))
	if err != nil {
		return fmt.Errorf("encode reactions: %w", err)
	}
	nextClicks, err := json.Marshal(nonNil(next.ButtonClicks))
	if err != nil {
		return fmt.Errorf("encode button_clicks: %w", err)
	}

	if inPlace {
		const q = `
		UPDATE metric_snapshots SET
			views=$2, forwards=$3, reactions=$4, button_clicks=$5,
			subscriber_count=$6, subscriber_growth=$7, churn_rate=$8,
			measured_at=$9, updated_at=now()
		WHERE id=$1`
		_, err = tx.ExecContext(ctx, q,
			next.ID, next.Views, next.Forwards, nextReactions, nextClicks,
			next.SubscriberCount, next.SubscriberGrowth, next.ChurnRate, next.MeasuredAt,
		)
		return err
	}

	const q = `
	INSERT INTO metric_snapshots
		(id, entity_kind, entity_id, views, forwards, reactions, button_clicks,
		 subscriber_count, subscriber_growth, churn_rate, measured_at, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())`
	_, err = tx.ExecContext(ctx, q,
		next.ID, next.Entity.Kind, next.Entity.ID, next.Views, next.Forwards, nextReactions, nextClicks,
		next.SubscriberCount, next.SubscriberGrowth, next.ChurnRate, next.MeasuredAt,
	)
	return err
}

func nonNil(m map[string]int64) map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return m
}
