package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analyticsrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository"
	channelmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/repository"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/service"
	subscribersmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/models"
	subscribersrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/repository"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/platform/telegram"
)

func int64p(v int64) *int64 { return &v }

type fakeLinkRepo struct {
	links map[uuid.UUID]*models.InviteLink
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[uuid.UUID]*models.InviteLink)}
}

func (f *fakeLinkRepo) Create(ctx context.Context, link *models.InviteLink) error {
	cp := *link
	f.links[link.ID] = &cp
	return nil
}

func (f *fakeLinkRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.InviteLink, error) {
	if l, ok := f.links[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, repository.ErrInviteLinkNotFound
}

func (f *fakeLinkRepo) GetByURL(ctx context.Context, url string) (*models.InviteLink, error) {
	for _, l := range f.links {
		if l.InviteLink == url {
			cp := *l
			return &cp, nil
		}
	}
	return nil, repository.ErrInviteLinkNotFound
}

func (f *fakeLinkRepo) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]models.InviteLink, error) {
	var out []models.InviteLink
	for _, l := range f.links {
		if l.ChannelID == channelID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLinkRepo) MarkRevoked(ctx context.Context, id uuid.UUID) error {
	f.links[id].Revoked = true
	return nil
}

func (f *fakeLinkRepo) SetJoinCount(ctx context.Context, id uuid.UUID, joinCount int64) error {
	f.links[id].JoinCount = joinCount
	return nil
}

type fakeChannelRepo struct {
	channels map[uuid.UUID]*channelmodels.ExternalChannel
}

func (f *fakeChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*channelmodels.ExternalChannel, error) {
	return f.channels[id], nil
}

func (f *fakeChannelRepo) GetByBotToken(ctx context.Context, botToken string) (*channelmodels.ExternalChannel, error) {
	return nil, nil
}

func (f *fakeChannelRepo) ListVerified(ctx context.Context) ([]channelmodels.ExternalChannel, error) {
	return nil, nil
}

func (f *fakeChannelRepo) Create(ctx context.Context, ch *channelmodels.ExternalChannel) error {
	return nil
}

func (f *fakeChannelRepo) MarkVerified(ctx context.Context, id uuid.UUID, botUsername, title string, verifiedAt time.Time) error {
	return nil
}

func (f *fakeChannelRepo) UpdateWebhookSecret(ctx context.Context, id uuid.UUID, secret string, syncedAt time.Time) error {
	return nil
}

func (f *fakeChannelRepo) TouchSynced(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	return nil
}

type fakeEventRepo struct {
	counts map[uuid.UUID]subscribersrepo.EventCounts
}

func (f *fakeEventRepo) ApplyTransition(ctx context.Context, ev *subscribersmodels.SubscriberEvent, apply analyticsrepo.ApplyFunc) error {
	return nil
}

func (f *fakeEventRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, from, to time.Time, limit int) ([]subscribersmodels.SubscriberEvent, error) {
	return nil, nil
}

func (f *fakeEventRepo) CountsByInviteLink(ctx context.Context, inviteLinkID uuid.UUID) (subscribersrepo.EventCounts, error) {
	return f.counts[inviteLinkID], nil
}

type fakeTelegram struct {
	created []telegram.InviteLinkParams
	revoked []string
	nextURL string
}

func (f *fakeTelegram) CreateChatInviteLink(ctx context.Context, token, chatID string, p telegram.InviteLinkParams) (*telegram.ChatInviteLink, error) {
	f.created = append(f.created, p)
	return &telegram.ChatInviteLink{InviteLink: f.nextURL, Name: p.Name}, nil
}

func (f *fakeTelegram) RevokeChatInviteLink(ctx context.Context, token, chatID, inviteLink string) (*telegram.ChatInviteLink, error) {
	f.revoked = append(f.revoked, inviteLink)
	return &telegram.ChatInviteLink{InviteLink: inviteLink, IsRevoked: true}, nil
}

type fakeCache struct {
	byURL map[string]*models.InviteLink
}

func newFakeCache() *fakeCache {
	return &fakeCache{byURL: make(map[string]*models.InviteLink)}
}

func (f *fakeCache) Set(ctx context.Context, link *models.InviteLink) error {
	f.byURL[link.InviteLink] = link
	return nil
}

func (f *fakeCache) GetByURL(ctx context.Context, url string) (*models.InviteLink, error) {
	return f.byURL[url], nil
}

func (f *fakeCache) Invalidate(ctx context.Context, url string) error {
	delete(f.byURL, url)
	return nil
}

func newTestService(counts map[uuid.UUID]subscribersrepo.EventCounts) (service.InviteLinkService, *fakeLinkRepo, *fakeChannelRepo, *fakeTelegram, *fakeCache) {
	linkRepo := newFakeLinkRepo()
	channelRepo := &fakeChannelRepo{channels: make(map[uuid.UUID]*channelmodels.ExternalChannel)}
	tg := &fakeTelegram{nextURL: "https://t.me/+created"}
	cache := newFakeCache()
	svc := service.NewInviteLinkService(linkRepo, channelRepo, &fakeEventRepo{counts: counts}, tg, cache)
	return svc, linkRepo, channelRepo, tg, cache
}

func verifiedChannel() *channelmodels.ExternalChannel {
	return &channelmodels.ExternalChannel{
		ID:       uuid.New(),
		BotToken: "123:token",
		ChatID:   -100123,
		Verified: true,
	}
}

func TestCreate_RequiresVerifiedChannel(t *testing.T) {
	svc, _, channelRepo, tg, _ := newTestService(nil)
	ch := verifiedChannel()
	ch.Verified = false
	channelRepo.channels[ch.ID] = ch

	_, err := svc.Create(context.Background(), ch.ID, service.CreateLinkParams{Source: "vk"})

	require.Error(t, err)
	assert.Empty(t, tg.created)
}

func TestCreate_StoresAndCachesLink(t *testing.T) {
	svc, linkRepo, channelRepo, tg, cache := newTestService(nil)
	ch := verifiedChannel()
	channelRepo.channels[ch.ID] = ch

	expire := time.Now().Add(24 * time.Hour)
	link, err := svc.Create(context.Background(), ch.ID, service.CreateLinkParams{
		Name:        "spring promo",
		Source:      "vk",
		MemberLimit: int64p(500),
		ExpireDate:  &expire,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+created", link.InviteLink)
	assert.Equal(t, "vk", link.Source)

	require.Len(t, tg.created, 1)
	assert.Equal(t, 500, tg.created[0].MemberLimit)
	assert.Equal(t, expire.Unix(), tg.created[0].ExpireDate)

	stored, err := linkRepo.GetByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, link.InviteLink, stored.InviteLink)
	assert.NotNil(t, cache.byURL[link.InviteLink])
}

func TestRevoke_MarksRevokedAndInvalidatesCache(t *testing.T) {
	svc, linkRepo, channelRepo, tg, cache := newTestService(nil)
	ch := verifiedChannel()
	channelRepo.channels[ch.ID] = ch

	link, err := svc.Create(context.Background(), ch.ID, service.CreateLinkParams{Source: "email"})
	require.NoError(t, err)

	revoked, err := svc.Revoke(context.Background(), link.ID)
	require.NoError(t, err)
	assert.True(t, revoked.Revoked)
	assert.Equal(t, []string{link.InviteLink}, tg.revoked)
	assert.NotContains(t, cache.byURL, link.InviteLink)
	assert.True(t, linkRepo.links[link.ID].Revoked)

	// Повторный отзыв идемпотентен и не ходит в Telegram
	_, err = svc.Revoke(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Len(t, tg.revoked, 1)
}

func TestGetByURL_FallsBackToRepoAndWarmsCache(t *testing.T) {
	svc, linkRepo, _, _, cache := newTestService(nil)
	link := &models.InviteLink{ID: uuid.New(), ChannelID: uuid.New(), InviteLink: "https://t.me/+xyz"}
	require.NoError(t, linkRepo.Create(context.Background(), link))

	found, err := svc.GetByURL(context.Background(), link.InviteLink)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, link.ID, found.ID)
	assert.NotNil(t, cache.byURL[link.InviteLink])
}

func TestGetByURL_UnknownLinkReturnsNil(t *testing.T) {
	svc, _, _, _, _ := newTestService(nil)

	found, err := svc.GetByURL(context.Background(), "https://t.me/+missing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestStats_ComputesConversionFromEventLog(t *testing.T) {
	linkID := uuid.New()
	counts := map[uuid.UUID]subscribersrepo.EventCounts{
		linkID: {Joined: 80, Left: 15, Kicked: 5},
	}
	svc, linkRepo, _, _, _ := newTestService(counts)
	require.NoError(t, linkRepo.Create(context.Background(), &models.InviteLink{
		ID:         linkID,
		ChannelID:  uuid.New(),
		InviteLink: "https://t.me/+stats",
		JoinCount:  100,
	}))

	stats, err := svc.Stats(context.Background(), linkID)
	require.NoError(t, err)
	assert.Equal(t, int64(80), stats.Joined)
	assert.Equal(t, int64(60), stats.Retained)
	assert.InDelta(t, 60.0, stats.ConversionRate, 0.001)
	assert.True(t, stats.Active)
}

func TestSyncJoinCounts_RepairsDriftedCounters(t *testing.T) {
	channelID := uuid.New()
	linkID := uuid.New()
	counts := map[uuid.UUID]subscribersrepo.EventCounts{
		linkID: {Joined: 42},
	}
	svc, linkRepo, _, _, cache := newTestService(counts)
	link := &models.InviteLink{ID: linkID, ChannelID: channelID, InviteLink: "https://t.me/+drift", JoinCount: 40}
	require.NoError(t, linkRepo.Create(context.Background(), link))
	require.NoError(t, cache.Set(context.Background(), link))

	require.NoError(t, svc.SyncJoinCounts(context.Background(), channelID))

	assert.Equal(t, int64(42), linkRepo.links[linkID].JoinCount)
	assert.NotContains(t, cache.byURL, link.InviteLink)
}
