package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/mrAr2rD/contentForceTG-sub000/internal/common/errors"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository"
)

// Период, за который пересчитывается churn rate.
const churnWindow = 30 * 24 * time.Hour

// Aggregator сливает частичные наблюдения метрик в снапшоты по окнам.
type Aggregator struct {
	snapshots repository.SnapshotRepository
}

func NewAggregator(snapshots repository.SnapshotRepository) *Aggregator {
	return &Aggregator{snapshots: snapshots}
}

// RecordMetrics применяет частичное наблюдение к метрикам сущности.
// Вся последовательность «прочитать последний снапшот → решить окно →
// записать» выполняется под эксклюзивной блокировкой сущности.
func (a *Aggregator) RecordMetrics(ctx context.Context, ref models.EntityRef, p Partial, observedAt time.Time) (*models.MetricSnapshot, error) {
	snap, err := a.snapshots.ApplyLocked(ctx, ref, func(latest *models.MetricSnapshot) (*models.MetricSnapshot, bool) {
		return Apply(ref, latest, p, observedAt)
	})
	if err != nil {
		if err == repository.ErrEntityNotFound {
			return nil, err
		}
		return nil, apperrors.NewDatabaseError("record metrics", err)
	}
	return snap, nil
}

// Latest возвращает последний снапшот сущности.
func (a *Aggregator) Latest(ctx context.Context, ref models.EntityRef) (*models.MetricSnapshot, error) {
	return a.snapshots.Latest(ctx, ref)
}

// Range возвращает снапшоты сущности в интервале.
func (a *Aggregator) Range(ctx context.Context, ref models.EntityRef, from, to time.Time) ([]models.MetricSnapshot, error) {
	return a.snapshots.ListRange(ctx, ref, from, to)
}

// RecalculateChurn пересчитывает churn rate канала по метрикам за 30 дней:
// отношение суммарного оттока к среднему числу подписчиков за период.
func (a *Aggregator) RecalculateChurn(ctx context.Context, channelID uuid.UUID, now time.Time) error {
	ref := models.ChannelRef(channelID)

	metrics, err := a.snapshots.ListRange(ctx, ref, now.Add(-churnWindow), now)
	if err != nil {
		return apperrors.NewDatabaseError("list channel metrics", err)
	}
	if len(metrics) < 2 {
		return nil
	}

	var negativeGrowth int64
	for _, m := range metrics {
		if m.SubscriberGrowth < 0 {
			negativeGrowth += -m.SubscriberGrowth
		}
	}

	startCount := metrics[0].SubscriberCount
	endCount := metrics[len(metrics)-1].SubscriberCount
	averageSubscribers := float64(startCount+endCount) / 2.0

	churn := 0.0
	if averageSubscribers > 0 {
		churn = math.Round(float64(negativeGrowth)/averageSubscribers*100*100) / 100
	}

	if _, err := a.RecordMetrics(ctx, ref, Partial{ChurnRate: &churn}, now); err != nil {
		return err
	}

	logger.Info().
		Str("channel_id", channelID.String()).
		Float64("churn_rate", churn).
		Msg("Recalculated churn rate")
	return nil
}
