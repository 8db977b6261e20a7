package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository"
)

// SnapshotRepository хранит снапшоты метрик в единой таблице metric_snapshots.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapshotColumns = `id, entity_kind, entity_id, views, forwards, reactions, button_clicks,
		subscriber_count, subscriber_growth, churn_rate, measured_at, created_at, updated_at`

// ApplyLocked блокирует строку родительской сущности (SELECT ... FOR UPDATE),
// читает последний снапшот, применяет apply и записывает результат в той же
// транзакции. Блокировка строки сущности сериализует конкурентные доставки:
// без неё две доставки внутри одного окна создали бы две строки.
func (r *SnapshotRepository) ApplyLocked(ctx context.Context, ref models.EntityRef, apply repository.ApplyFunc) (*models.MetricSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockEntity(ctx, tx, ref); err != nil {
		return nil, err
	}

	latest, err := latestSnapshot(ctx, tx, ref)
	if err != nil {
		return nil, err
	}

	next, inPlace := apply(latest)
	if next == nil {
		err = tx.Commit()
		return latest, err
	}

	if inPlace {
		err = updateSnapshot(ctx, tx, next)
	} else {
		err = insertSnapshot(ctx, tx, next)
	}
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

// Latest возвращает последний снапшот сущности или nil.
func (r *SnapshotRepository) Latest(ctx context.Context, ref models.EntityRef) (*models.MetricSnapshot, error) {
	return latestSnapshot(ctx, r.db, ref)
}

// ListRange возвращает снапшоты в интервале по возрастанию measured_at.
func (r *SnapshotRepository) ListRange(ctx context.Context, ref models.EntityRef, from, to time.Time) ([]models.MetricSnapshot, error) {
	const q = `
	SELECT ` + snapshotColumns + `
	FROM metric_snapshots
	WHERE entity_kind=$1 AND entity_id=$2 AND measured_at BETWEEN $3 AND $4
	ORDER BY measured_at ASC`
	rows, err := r.db.QueryContext(ctx, q, ref.Kind, ref.ID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MetricSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func lockEntity(ctx context.Context, tx *sql.Tx, ref models.EntityRef) error {
	var q string
	switch ref.Kind {
	case models.EntityMessage:
		q = `SELECT id FROM published_messages WHERE id=$1 FOR UPDATE`
	case models.EntityChannel:
		q = `SELECT id FROM external_channels WHERE id=$1 FOR UPDATE`
	default:
		return fmt.Errorf("unknown entity kind: %s", ref.Kind)
	}

	var id string
	if err := tx.QueryRowContext(ctx, q, ref.ID).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return repository.ErrEntityNotFound
		}
		return err
	}
	return nil
}

func latestSnapshot(ctx context.Context, q queryer, ref models.EntityRef) (*models.MetricSnapshot, error) {
	const query = `
	SELECT ` + snapshotColumns + `
	FROM metric_snapshots
	WHERE entity_kind=$1 AND entity_id=$2
	ORDER BY measured_at DESC
	LIMIT 1`
	s, err := scanSnapshot(q.QueryRowContext(ctx, query, ref.Kind, ref.ID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSnapshot(row rowScanner) (*models.MetricSnapshot, error) {
	var (
		s            models.MetricSnapshot
		reactions    []byte
		buttonClicks []byte
	)
	if err := row.Scan(
		&s.ID, &s.Entity.Kind, &s.Entity.ID, &s.Views, &s.Forwards, &reactions, &buttonClicks,
		&s.SubscriberCount, &s.SubscriberGrowth, &s.ChurnRate, &s.MeasuredAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &s.Reactions); err != nil {
			return nil, fmt.Errorf("decode reactions: %w", err)
		}
	}
	if len(buttonClicks) > 0 {
		if err := json.Unmarshal(buttonClicks, &s.ButtonClicks); err != nil {
			return nil, fmt.Errorf("decode button_clicks: %w", err)
		}
	}
	return &s, nil
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, s *models.MetricSnapshot) error {
	reactions, buttonClicks, err := encodeCounts(s)
	if err != nil {
		return err
	}
	const q = `
	INSERT INTO metric_snapshots
		(id, entity_kind, entity_id, views, forwards, reactions, button_clicks,
		 subscriber_count, subscriber_growth, churn_rate, measured_at, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())`
	_, err = tx.ExecContext(ctx, q,
		s.ID, s.Entity.Kind, s.Entity.ID, s.Views, s.Forwards, reactions, buttonClicks,
		s.SubscriberCount, s.SubscriberGrowth, s.ChurnRate, s.MeasuredAt,
	)
	return err
}

func updateSnapshot(ctx context.Context, tx *sql.Tx, s *models.MetricSnapshot) error {
	reactions, buttonClicks, err := encodeCounts(s)
	if err != nil {
		return err
	}
	const q = `
	UPDATE metric_snapshots SET
		views=$2, forwards=$3, reactions=$4, button_clicks=$5,
		subscriber_count=$6, subscriber_growth=$7, churn_rate=$8,
		measured_at=$9, updated_at=now()
	WHERE id=$1`
	_, err = tx.ExecContext(ctx, q,
		s.ID, s.Views, s.Forwards, reactions, buttonClicks,
		s.SubscriberCount, s.SubscriberGrowth, s.ChurnRate, s.MeasuredAt,
	)
	return err
}

func encodeCounts(s *models.MetricSnapshot) ([]byte, []byte, error) {
	reactions, err := json.Marshal(orEmpty(s.Reactions))
	if err != nil {
		return nil, nil, fmt.Errorf("encode reactions: %w", err)
	}
	buttonClicks, err := json.Marshal(orEmpty(s.ButtonClicks))
	if err != nil {
		return nil, nil, fmt.Errorf("encode button_clicks: %w", err)
	}
	return reactions, buttonClicks, nil
}

func orEmpty(m map[string]int64) map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return m
}
