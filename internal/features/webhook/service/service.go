package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	analyticsmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
	analyticsrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository"
	analyticssvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/service"
	channelmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
	messagesmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/messages/models"
	messagesrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/messages/repository"
	subscribersmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/models"
	subscriberssvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/service"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/webhook/models"
)

// MessageResolver ищет опубликованное сообщение по внешнему id.
type MessageResolver interface {
	GetByExternalID(ctx context.Context, channelID uuid.UUID, externalMessageID int64) (*messagesmodels.PublishedMessage, error)
}

// MetricsRecorder применяет частичное наблюдение метрик к сущности.
type MetricsRecorder interface {
	RecordMetrics(ctx context.Context, ref analyticsmodels.EntityRef, p analyticssvc.Partial, observedAt time.Time) (*analyticsmodels.MetricSnapshot, error)
}

// SubscriberProcessor применяет переход статуса подписчика.
type SubscriberProcessor interface {
	ProcessTransition(ctx context.Context, channelID uuid.UUID, tr subscriberssvc.Transition) (*subscribersmodels.SubscriberEvent, error)
}

// Dispatcher раскладывает аутентифицированное обновление на события
// и вызывает обработчик каждого. Ошибка одного обработчика не мешает
// остальным: каждая логируется отдельно.
type Dispatcher struct {
	messages    MessageResolver
	metrics     MetricsRecorder
	subscribers SubscriberProcessor
}

func NewDispatcher(messages MessageResolver, metrics MetricsRecorder, subscribers SubscriberProcessor) *Dispatcher {
	return &Dispatcher{
		messages:    messages,
		metrics:     metrics,
		subscribers: subscribers,
	}
}

// Dispatch обрабатывает все события обновления в фиксированном порядке.
func (d *Dispatcher) Dispatch(ctx context.Context, channel *channelmodels.ExternalChannel, upd *models.Update) {
	for _, kind := range upd.Kinds() {
		var err error
		switch kind {
		case models.KindChannelPost:
			err = d.handleChannelPost(ctx, channel, upd.ChannelPost)
		case models.KindEditedChannelPost:
			err = d.handleChannelPost(ctx, channel, upd.EditedChannelPost)
		case models.KindMessageReaction:
			err = d.handleMessageReaction(ctx, channel, upd.MessageReaction)
		case models.KindMyChatMember:
			err = d.handleChatMember(ctx, channel, upd.MyChatMember)
		case models.KindChatMember:
			err = d.handleChatMember(ctx, channel, upd.ChatMember)
		case models.KindCallbackQuery:
			err = d.handleCallbackQuery(ctx, channel, upd.CallbackQuery)
		}
		if err != nil {
			logger.Error().Err(err).
				Str("channel_id", channel.ID.String()).
				Int64("update_id", upd.UpdateID).
				Str("event_kind", string(kind)).
				Msg("Failed to process webhook event")
		}
	}
}

// handleChannelPost обновляет просмотры и пересылки опубликованного
// сообщения. Посты, не опубликованные через платформу, молча пропускаются.
func (d *Dispatcher) handleChannelPost(ctx context.Context, channel *channelmodels.ExternalChannel, msg *models.Message) error {
	published, err := d.messages.GetByExternalID(ctx, channel.ID, msg.MessageID)
	if err != nil {
		if err == messagesrepo.ErrMessageNotFound {
			logger.Debug().
				Str("channel_id", channel.ID.String()).
				Int64("message_id", msg.MessageID).
				Msg("Skipping post not published via platform")
			return nil
		}
		return err
	}

	p := analyticssvc.Partial{Views: msg.Views, Forwards: msg.Forwards}
	if p.Views == nil && p.Forwards == nil {
		return nil
	}

	observedAt := time.Unix(msg.Date, 0).UTC()
	if msg.EditDate > 0 {
		observedAt = time.Unix(msg.EditDate, 0).UTC()
	}

	_, err = d.metrics.RecordMetrics(ctx, analyticsmodels.MessageRef(published.ID), p, observedAt)
	if err == analyticsrepo.ErrEntityNotFound {
		return nil
	}
	return err
}

// handleMessageReaction применяет разницу старого и нового наборов реакций.
func (d *Dispatcher) handleMessageReaction(ctx context.Context, channel *channelmodels.ExternalChannel, r *models.MessageReactionUpdated) error {
	published, err := d.messages.GetByExternalID(ctx, channel.ID, r.MessageID)
	if err != nil {
		if err == messagesrepo.ErrMessageNotFound {
			return nil
		}
		return err
	}

	diff := analyticssvc.ReactionDiff{
		Old: reactionKeys(r.OldReaction),
		New: reactionKeys(r.NewReaction),
	}

	_, err = d.metrics.RecordMetrics(ctx,
		analyticsmodels.MessageRef(published.ID),
		analyticssvc.Partial{Reactions: &diff},
		time.Unix(r.Date, 0).UTC(),
	)
	if err == analyticsrepo.ErrEntityNotFound {
		return nil
	}
	return err
}

// handleCallbackQuery учитывает нажатие inline-кнопки под постом.
func (d *Dispatcher) handleCallbackQuery(ctx context.Context, channel *channelmodels.ExternalChannel, q *models.CallbackQuery) error {
	if q.Message == nil || q.Data == "" {
		return nil
	}

	published, err := d.messages.GetByExternalID(ctx, channel.ID, q.Message.MessageID)
	if err != nil {
		if err == messagesrepo.ErrMessageNotFound {
			return nil
		}
		return err
	}

	_, err = d.metrics.RecordMetrics(ctx,
		analyticsmodels.MessageRef(published.ID),
		analyticssvc.Partial{ButtonClick: &q.Data},
		time.Now().UTC(),
	)
	if err == analyticsrepo.ErrEntityNotFound {
		return nil
	}
	return err
}

// handleChatMember превращает переход статуса в событие подписчика.
func (d *Dispatcher) handleChatMember(ctx context.Context, channel *channelmodels.ExternalChannel, cm *models.ChatMemberUpdated) error {
	tr := subscriberssvc.Transition{
		OldStatus: subscribersmodels.MemberStatus(cm.OldChatMember.Status),
		NewStatus: subscribersmodels.MemberStatus(cm.NewChatMember.Status),
		User: subscriberssvc.TransitionUser{
			ID:           cm.NewChatMember.User.ID,
			Username:     cm.NewChatMember.User.Username,
			FirstName:    cm.NewChatMember.User.FirstName,
			LastName:     cm.NewChatMember.User.LastName,
			LanguageCode: cm.NewChatMember.User.LanguageCode,
			IsPremium:    cm.NewChatMember.User.IsPremium,
		},
		OccurredAt: time.Unix(cm.Date, 0).UTC(),
	}
	if cm.InviteLink != nil {
		tr.InviteLinkURL = cm.InviteLink.InviteLink
	}

	_, err := d.subscribers.ProcessTransition(ctx, channel.ID, tr)
	return err
}

func reactionKeys(reactions []models.ReactionType) []string {
	if len(reactions) == 0 {
		return nil
	}
	keys := make([]string, 0, len(reactions))
	for _, r := range reactions {
		keys = append(keys, r.Key())
	}
	return keys
}
