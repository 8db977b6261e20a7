package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analyticsmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
	analyticsrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository"
	invitemodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/repository"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/service"
)

type fakeEventRepo struct {
	events  []*models.SubscriberEvent
	applies []analyticsrepo.ApplyFunc
}

func (f *fakeEventRepo) ApplyTransition(ctx context.Context, ev *models.SubscriberEvent, apply analyticsrepo.ApplyFunc) error {
	f.events = append(f.events, ev)
	f.applies = append(f.applies, apply)
	return nil
}

func (f *fakeEventRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, from, to time.Time, limit int) ([]models.SubscriberEvent, error) {
	return nil, nil
}

func (f *fakeEventRepo) CountsByInviteLink(ctx context.Context, inviteLinkID uuid.UUID) (repository.EventCounts, error) {
	return repository.EventCounts{}, nil
}

type fakeLinkResolver struct {
	links map[string]*invitemodels.InviteLink
}

func (f *fakeLinkResolver) GetByURL(ctx context.Context, url string) (*invitemodels.InviteLink, error) {
	return f.links[url], nil
}

func newService(links map[string]*invitemodels.InviteLink) (*service.Service, *fakeEventRepo) {
	repo := &fakeEventRepo{}
	return service.NewService(repo, &fakeLinkResolver{links: links}), repo
}

func joinTransition(url string) service.Transition {
	return service.Transition{
		OldStatus:     models.StatusLeft,
		NewStatus:     models.StatusMember,
		User:          service.TransitionUser{ID: 42, Username: "alice", FirstName: "Alice"},
		OccurredAt:    time.Now().UTC(),
		InviteLinkURL: url,
	}
}

func TestProcessTransition_JoinIncrementsCounter(t *testing.T) {
	svc, repo := newService(nil)
	channelID := uuid.New()

	ev, err := svc.ProcessTransition(context.Background(), channelID, joinTransition(""))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, models.EventJoined, ev.EventType)
	assert.Nil(t, ev.InviteLinkID)

	require.Len(t, repo.applies, 1)
	require.NotNil(t, repo.applies[0])

	latest := &analyticsmodels.MetricSnapshot{
		ID:              uuid.New(),
		Entity:          analyticsmodels.ChannelRef(channelID),
		SubscriberCount: 100,
		MeasuredAt:      time.Now().UTC().Add(-time.Minute),
	}
	next, inPlace := repo.applies[0](latest)
	require.NotNil(t, next)
	assert.True(t, inPlace)
	assert.Equal(t, int64(101), next.SubscriberCount)
}

func TestProcessTransition_LeaveFloorsCounterAtZero(t *testing.T) {
	svc, repo := newService(nil)
	channelID := uuid.New()

	tr := joinTransition("")
	tr.OldStatus = models.StatusMember
	tr.NewStatus = models.StatusLeft

	ev, err := svc.ProcessTransition(context.Background(), channelID, tr)
	require.NoError(t, err)
	assert.Equal(t, models.EventLeft, ev.EventType)

	latest := &analyticsmodels.MetricSnapshot{
		ID:         uuid.New(),
		Entity:     analyticsmodels.ChannelRef(channelID),
		MeasuredAt: time.Now().UTC().Add(-time.Minute),
	}
	next, _ := repo.applies[0](latest)
	require.NotNil(t, next)
	assert.Equal(t, int64(0), next.SubscriberCount)
}

func TestProcessTransition_AttributesKnownInviteLink(t *testing.T) {
	link := &invitemodels.InviteLink{ID: uuid.New(), InviteLink: "https://t.me/+abc"}
	svc, repo := newService(map[string]*invitemodels.InviteLink{link.InviteLink: link})

	ev, err := svc.ProcessTransition(context.Background(), uuid.New(), joinTransition(link.InviteLink))
	require.NoError(t, err)
	require.NotNil(t, ev.InviteLinkID)
	assert.Equal(t, link.ID, *ev.InviteLinkID)
	assert.Len(t, repo.events, 1)
}

func TestProcessTransition_UnknownLinkIsNotAnError(t *testing.T) {
	svc, _ := newService(nil)

	ev, err := svc.ProcessTransition(context.Background(), uuid.New(), joinTransition("https://t.me/+unknown"))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Nil(t, ev.InviteLinkID)
}

func TestProcessTransition_NoneIsDropped(t *testing.T) {
	svc, repo := newService(nil)

	tr := joinTransition("")
	tr.OldStatus = models.StatusMember
	tr.NewStatus = models.StatusAdministrator

	ev, err := svc.ProcessTransition(context.Background(), uuid.New(), tr)
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Empty(t, repo.events)
}

func TestProcessTransition_BannedIsLogOnly(t *testing.T) {
	svc, repo := newService(nil)

	tr := joinTransition("")
	tr.OldStatus = models.StatusMember
	tr.NewStatus = models.StatusBanned

	ev, err := svc.ProcessTransition(context.Background(), uuid.New(), tr)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, models.EventBanned, ev.EventType)

	// Счётчик не трогаем: шаг слияния отсутствует
	require.Len(t, repo.applies, 1)
	assert.Nil(t, repo.applies[0])
}
