package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	analyticsrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/models"
)

// EventCounts это количества событий журнала по типам для одной ссылки.
type EventCounts struct {
	Joined int64
	Left   int64
	Kicked int64
}

// EventRepository хранит журнал событий подписчиков.
type EventRepository interface {
	// ApplyTransition атомарно выполняет побочные эффекты классифицированного
	// перехода: дописывает событие в журнал, применяет apply к снапшоту
	// метрик канала (nil apply пропускает снапшот) и, если событие joined
	// атрибуцировано, увеличивает join_count пригласительной ссылки.
	// Всё выполняется в одной транзакции под блокировкой строки канала.
	ApplyTransition(ctx context.Context, ev *models.SubscriberEvent, apply analyticsrepo.ApplyFunc) error

	// ListByChannel возвращает события канала в интервале по убыванию времени.
	ListByChannel(ctx context.Context, channelID uuid.UUID, from, to time.Time, limit int) ([]models.SubscriberEvent, error)

	// CountsByInviteLink возвращает количества событий журнала для ссылки.
	CountsByInviteLink(ctx context.Context, inviteLinkID uuid.UUID) (EventCounts, error)
}
