package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analyticsmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
	analyticsrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository"
	analyticssvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/service"
	channelmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
	messagesmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/messages/models"
	messagesrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/messages/repository"
	subscribersmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/models"
	subscriberssvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/service"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/webhook/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/webhook/service"
)

func int64p(v int64) *int64 { return &v }

type fakeMessages struct {
	byExternalID map[int64]*messagesmodels.PublishedMessage
}

func (f *fakeMessages) GetByExternalID(ctx context.Context, channelID uuid.UUID, externalMessageID int64) (*messagesmodels.PublishedMessage, error) {
	if m, ok := f.byExternalID[externalMessageID]; ok {
		return m, nil
	}
	return nil, messagesrepo.ErrMessageNotFound
}

type recordedMetric struct {
	ref        analyticsmodels.EntityRef
	partial    analyticssvc.Partial
	observedAt time.Time
}

type fakeMetrics struct {
	recorded []recordedMetric
	err      error
}

func (f *fakeMetrics) RecordMetrics(ctx context.Context, ref analyticsmodels.EntityRef, p analyticssvc.Partial, observedAt time.Time) (*analyticsmodels.MetricSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.recorded = append(f.recorded, recordedMetric{ref: ref, partial: p, observedAt: observedAt})
	return &analyticsmodels.MetricSnapshot{}, nil
}

type fakeSubscribers struct {
	transitions []subscriberssvc.Transition
}

func (f *fakeSubscribers) ProcessTransition(ctx context.Context, channelID uuid.UUID, tr subscriberssvc.Transition) (*subscribersmodels.SubscriberEvent, error) {
	f.transitions = append(f.transitions, tr)
	return nil, nil
}

func newDispatcher(published map[int64]*messagesmodels.PublishedMessage) (*service.Dispatcher, *fakeMetrics, *fakeSubscribers) {
	metrics := &fakeMetrics{}
	subs := &fakeSubscribers{}
	d := service.NewDispatcher(&fakeMessages{byExternalID: published}, metrics, subs)
	return d, metrics, subs
}

func testUpdateChannel() *channelmodels.ExternalChannel {
	return &channelmodels.ExternalChannel{ID: uuid.New(), ChatID: -100123}
}

func TestDispatch_ChannelPostRecordsViewsAndForwards(t *testing.T) {
	published := &messagesmodels.PublishedMessage{ID: uuid.New(), ExternalMessageID: 55}
	d, metrics, _ := newDispatcher(map[int64]*messagesmodels.PublishedMessage{55: published})

	date := time.Now().Unix()
	d.Dispatch(context.Background(), testUpdateChannel(), &models.Update{
		UpdateID: 1,
		ChannelPost: &models.Message{
			MessageID: 55,
			Date:      date,
			Views:     int64p(42),
			Forwards:  int64p(3),
		},
	})

	require.Len(t, metrics.recorded, 1)
	rec := metrics.recorded[0]
	assert.Equal(t, analyticsmodels.EntityMessage, rec.ref.Kind)
	assert.Equal(t, published.ID, rec.ref.ID)
	assert.Equal(t, int64(42), *rec.partial.Views)
	assert.Equal(t, int64(3), *rec.partial.Forwards)
	assert.Equal(t, time.Unix(date, 0).UTC(), rec.observedAt)
}

func TestDispatch_EditedPostUsesEditDate(t *testing.T) {
	published := &messagesmodels.PublishedMessage{ID: uuid.New(), ExternalMessageID: 55}
	d, metrics, _ := newDispatcher(map[int64]*messagesmodels.PublishedMessage{55: published})

	postedAt := time.Now().Add(-time.Hour).Unix()
	edited := time.Now().Unix()
	d.Dispatch(context.Background(), testUpdateChannel(), &models.Update{
		EditedChannelPost: &models.Message{
			MessageID: 55,
			Date:      postedAt,
			EditDate:  edited,
			Views:     int64p(57),
		},
	})

	require.Len(t, metrics.recorded, 1)
	assert.Equal(t, time.Unix(edited, 0).UTC(), metrics.recorded[0].observedAt)
}

func TestDispatch_UnknownMessageIsSkipped(t *testing.T) {
	d, metrics, _ := newDispatcher(nil)

	d.Dispatch(context.Background(), testUpdateChannel(), &models.Update{
		ChannelPost: &models.Message{MessageID: 99, Date: time.Now().Unix(), Views: int64p(10)},
	})

	assert.Empty(t, metrics.recorded)
}

func TestDispatch_PostWithoutMetricsIsNoop(t *testing.T) {
	published := &messagesmodels.PublishedMessage{ID: uuid.New(), ExternalMessageID: 55}
	d, metrics, _ := newDispatcher(map[int64]*messagesmodels.PublishedMessage{55: published})

	d.Dispatch(context.Background(), testUpdateChannel(), &models.Update{
		ChannelPost: &models.Message{MessageID: 55, Date: time.Now().Unix(), Text: "hello"},
	})

	assert.Empty(t, metrics.recorded)
}

func TestDispatch_MessageReactionBuildsDiff(t *testing.T) {
	published := &messagesmodels.PublishedMessage{ID: uuid.New(), ExternalMessageID: 7}
	d, metrics, _ := newDispatcher(map[int64]*messagesmodels.PublishedMessage{7: published})

	d.Dispatch(context.Background(), testUpdateChannel(), &models.Update{
		MessageReaction: &models.MessageReactionUpdated{
			MessageID:   7,
			Date:        time.Now().Unix(),
			OldReaction: []models.ReactionType{{Type: "emoji", Emoji: "👍"}},
			NewReaction: []models.ReactionType{
				{Type: "emoji", Emoji: "👍"},
				{Type: "emoji", Emoji: "❤️"},
				{Type: "custom_emoji", CustomEmojiID: "777"},
			},
		},
	})

	require.Len(t, metrics.recorded, 1)
	diff := metrics.recorded[0].partial.Reactions
	require.NotNil(t, diff)
	assert.Equal(t, []string{"👍"}, diff.Old)
	assert.Equal(t, []string{"👍", "❤️", "custom:777"}, diff.New)
}

func TestDispatch_CallbackQueryCountsButtonClick(t *testing.T) {
	published := &messagesmodels.PublishedMessage{ID: uuid.New(), ExternalMessageID: 12}
	d, metrics, _ := newDispatcher(map[int64]*messagesmodels.PublishedMessage{12: published})

	d.Dispatch(context.Background(), testUpdateChannel(), &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:      "q1",
			Message: &models.Message{MessageID: 12},
			Data:    "buy",
		},
	})

	require.Len(t, metrics.recorded, 1)
	require.NotNil(t, metrics.recorded[0].partial.ButtonClick)
	assert.Equal(t, "buy", *metrics.recorded[0].partial.ButtonClick)
}

func TestDispatch_ChatMemberForwardsTransition(t *testing.T) {
	d, _, subs := newDispatcher(nil)

	date := time.Now().Unix()
	d.Dispatch(context.Background(), testUpdateChannel(), &models.Update{
		ChatMember: &models.ChatMemberUpdated{
			Date:          date,
			OldChatMember: models.ChatMember{Status: "left", User: models.User{ID: 42}},
			NewChatMember: models.ChatMember{Status: "member", User: models.User{ID: 42, Username: "alice"}},
			InviteLink:    &models.ChatInviteLink{InviteLink: "https://t.me/+abc"},
		},
	})

	require.Len(t, subs.transitions, 1)
	tr := subs.transitions[0]
	assert.Equal(t, subscribersmodels.StatusLeft, tr.OldStatus)
	assert.Equal(t, subscribersmodels.StatusMember, tr.NewStatus)
	assert.Equal(t, int64(42), tr.User.ID)
	assert.Equal(t, "https://t.me/+abc", tr.InviteLinkURL)
	assert.Equal(t, time.Unix(date, 0).UTC(), tr.OccurredAt)
}

func TestDispatch_MultiKindUpdateProcessesAll(t *testing.T) {
	published := &messagesmodels.PublishedMessage{ID: uuid.New(), ExternalMessageID: 55}
	d, metrics, subs := newDispatcher(map[int64]*messagesmodels.PublishedMessage{55: published})

	d.Dispatch(context.Background(), testUpdateChannel(), &models.Update{
		ChannelPost: &models.Message{MessageID: 55, Date: time.Now().Unix(), Views: int64p(10)},
		ChatMember: &models.ChatMemberUpdated{
			Date:          time.Now().Unix(),
			OldChatMember: models.ChatMember{Status: "left"},
			NewChatMember: models.ChatMember{Status: "member", User: models.User{ID: 1}},
		},
	})

	assert.Len(t, metrics.recorded, 1)
	assert.Len(t, subs.transitions, 1)
}

// Хранилище снимков в памяти с тем же контрактом ApplyLocked,
// что и у postgres-репозитория.
type memorySnapshotRepo struct {
	rows map[analyticsmodels.EntityRef][]*analyticsmodels.MetricSnapshot
}

func newMemorySnapshotRepo() *memorySnapshotRepo {
	return &memorySnapshotRepo{rows: make(map[analyticsmodels.EntityRef][]*analyticsmodels.MetricSnapshot)}
}

func (m *memorySnapshotRepo) ApplyLocked(ctx context.Context, ref analyticsmodels.EntityRef, apply analyticsrepo.ApplyFunc) (*analyticsmodels.MetricSnapshot, error) {
	var latest *analyticsmodels.MetricSnapshot
	rows := m.rows[ref]
	if len(rows) > 0 {
		latest = rows[len(rows)-1].Clone()
	}

	next, inPlace := apply(latest)
	if next == nil {
		return latest, nil
	}
	if inPlace && len(rows) > 0 {
		rows[len(rows)-1] = next.Clone()
	} else {
		m.rows[ref] = append(rows, next.Clone())
	}
	return next, nil
}

func (m *memorySnapshotRepo) Latest(ctx context.Context, ref analyticsmodels.EntityRef) (*analyticsmodels.MetricSnapshot, error) {
	rows := m.rows[ref]
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[len(rows)-1].Clone(), nil
}

func (m *memorySnapshotRepo) ListRange(ctx context.Context, ref analyticsmodels.EntityRef, from, to time.Time) ([]analyticsmodels.MetricSnapshot, error) {
	var out []analyticsmodels.MetricSnapshot
	for _, s := range m.rows[ref] {
		if !s.MeasuredAt.Before(from) && !s.MeasuredAt.After(to) {
			out = append(out, *s.Clone())
		}
	}
	return out, nil
}

// Пост и его правка через две минуты сливаются в один снимок:
// views берётся из правки, forwards переносится из первой доставки.
func TestDispatch_PostThenEditMergeIntoSingleSnapshot(t *testing.T) {
	published := &messagesmodels.PublishedMessage{ID: uuid.New(), ExternalMessageID: 55}
	repo := newMemorySnapshotRepo()
	agg := analyticssvc.NewAggregator(repo)
	subs := &fakeSubscribers{}
	d := service.NewDispatcher(
		&fakeMessages{byExternalID: map[int64]*messagesmodels.PublishedMessage{55: published}},
		agg, subs)

	channel := testUpdateChannel()
	posted := time.Now().UTC().Truncate(time.Second)

	d.Dispatch(context.Background(), channel, &models.Update{
		UpdateID: 1,
		ChannelPost: &models.Message{
			MessageID: 55,
			Date:      posted.Unix(),
			Views:     int64p(50),
			Forwards:  int64p(3),
		},
	})
	d.Dispatch(context.Background(), channel, &models.Update{
		UpdateID: 2,
		EditedChannelPost: &models.Message{
			MessageID: 55,
			Date:      posted.Unix(),
			EditDate:  posted.Add(2 * time.Minute).Unix(),
			Views:     int64p(57),
		},
	})

	ref := analyticsmodels.MessageRef(published.ID)
	require.Len(t, repo.rows[ref], 1)

	latest, err := repo.Latest(context.Background(), ref)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(57), latest.Views)
	assert.Equal(t, int64(3), latest.Forwards)
	assert.True(t, latest.MeasuredAt.Equal(posted.Add(2*time.Minute)))
}

func TestDispatch_FailingHandlerDoesNotBlockSiblings(t *testing.T) {
	published := &messagesmodels.PublishedMessage{ID: uuid.New(), ExternalMessageID: 55}
	metrics := &fakeMetrics{err: errors.New("db down")}
	subs := &fakeSubscribers{}
	d := service.NewDispatcher(&fakeMessages{byExternalID: map[int64]*messagesmodels.PublishedMessage{55: published}}, metrics, subs)

	d.Dispatch(context.Background(), testUpdateChannel(), &models.Update{
		ChannelPost: &models.Message{MessageID: 55, Date: time.Now().Unix(), Views: int64p(10)},
		ChatMember: &models.ChatMemberUpdated{
			Date:          time.Now().Unix(),
			OldChatMember: models.ChatMember{Status: "left"},
			NewChatMember: models.ChatMember{Status: "member", User: models.User{ID: 1}},
		},
	})

	// Ошибка записи метрик не помешала обработке перехода подписчика
	assert.Len(t, subs.transitions, 1)
}
