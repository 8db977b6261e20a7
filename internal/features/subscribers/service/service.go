package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/mrAr2rD/contentForceTG-sub000/internal/common/errors"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	analyticsmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
	analyticssvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/service"
	invitemodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/repository"
)

// TransitionUser это данные подписчика из webhook-события.
type TransitionUser struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool
}

// Transition это сырой переход статуса подписчика из webhook-события.
type Transition struct {
	OldStatus     models.MemberStatus
	NewStatus     models.MemberStatus
	User          TransitionUser
	OccurredAt    time.Time
	InviteLinkURL string
}

// InviteLinkResolver ищет пригласительную ссылку по её URL.
type InviteLinkResolver interface {
	GetByURL(ctx context.Context, url string) (*invitemodels.InviteLink, error)
}

// Service классифицирует переходы подписчиков и применяет их побочные
// эффекты: журнал событий, счётчик подписчиков, атрибуция ссылок.
type Service struct {
	events repository.EventRepository
	links  InviteLinkResolver
}

func NewService(events repository.EventRepository, links InviteLinkResolver) *Service {
	return &Service{events: events, links: links}
}

// ProcessTransition классифицирует переход и, если он порождает событие,
// атомарно дописывает журнал и корректирует счётчик подписчиков канала.
// Переходы класса none молча отбрасываются.
func (s *Service) ProcessTransition(ctx context.Context, channelID uuid.UUID, tr Transition) (*models.SubscriberEvent, error) {
	eventType := Classify(tr.OldStatus, tr.NewStatus)
	if eventType == models.EventNone {
		return nil, nil
	}

	ev := &models.SubscriberEvent{
		ID:             uuid.New(),
		ChannelID:      channelID,
		TelegramUserID: tr.User.ID,
		Username:       tr.User.Username,
		FirstName:      tr.User.FirstName,
		EventType:      eventType,
		EventAt:        tr.OccurredAt,
		UserData: map[string]interface{}{
			"last_name":     tr.User.LastName,
			"language_code": tr.User.LanguageCode,
			"is_premium":    tr.User.IsPremium,
		},
	}

	// Отсутствие совпадения по URL это не ошибка, а отсутствие атрибуции
	if tr.InviteLinkURL != "" {
		if link, err := s.links.GetByURL(ctx, tr.InviteLinkURL); err == nil && link != nil {
			ev.InviteLinkID = &link.ID
		}
	}

	apply := s.counterApply(channelID, ev, tr.OccurredAt)
	if err := s.events.ApplyTransition(ctx, ev, apply); err != nil {
		return nil, apperrors.NewDatabaseError("apply subscriber transition", err)
	}

	logger.Debug().
		Str("channel_id", channelID.String()).
		Str("event_type", string(eventType)).
		Int64("telegram_user_id", ev.TelegramUserID).
		Msg("Subscriber event recorded")
	return ev, nil
}

// counterApply строит шаг слияния снапшота канала для события.
// banned/restricted не трогают счётчик и возвращают nil.
func (s *Service) counterApply(channelID uuid.UUID, ev *models.SubscriberEvent, observedAt time.Time) func(*analyticsmodels.MetricSnapshot) (*analyticsmodels.MetricSnapshot, bool) {
	delta := ev.CounterDelta()
	if delta == 0 {
		return nil
	}

	ref := analyticsmodels.ChannelRef(channelID)
	return func(latest *analyticsmodels.MetricSnapshot) (*analyticsmodels.MetricSnapshot, bool) {
		return analyticssvc.Apply(ref, latest, analyticssvc.Partial{SubscriberDelta: &delta}, observedAt)
	}
}

// ListEvents возвращает события канала за интервал.
func (s *Service) ListEvents(ctx context.Context, channelID uuid.UUID, from, to time.Time, limit int) ([]models.SubscriberEvent, error) {
	return s.events.ListByChannel(ctx, channelID, from, to, limit)
}
