package workers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	analyticsmodels "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
	analyticssvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/service"
	channelrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository"
	invitesvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/service"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/platform/redis"
)

// MemberCounter это часть Bot API, нужная воркеру.
type MemberCounter interface {
	GetChatMemberCount(ctx context.Context, token, chatID string) (int64, error)
}

// MetricsSyncWorker читает фоновые задачи аналитики из Redis stream
// и выполняет их: снимки числа подписчиков, пересчёт churn rate,
// сверка счётчиков пригласительных ссылок.
type MetricsSyncWorker struct {
	rdb          *redis.Client
	consumerName string

	channels   channelrepo.ChannelRepository
	tg         MemberCounter
	aggregator *analyticssvc.Aggregator
	links      invitesvc.InviteLinkService
}

func NewMetricsSyncWorker(
	rdb *redis.Client,
	consumerName string,
	channels channelrepo.ChannelRepository,
	tg MemberCounter,
	aggregator *analyticssvc.Aggregator,
	links invitesvc.InviteLinkService,
) *MetricsSyncWorker {
	return &MetricsSyncWorker{
		rdb:          rdb,
		consumerName: consumerName,
		channels:     channels,
		tg:           tg,
		aggregator:   aggregator,
		links:        links,
	}
}

// Start блокируется до отмены контекста.
func (w *MetricsSyncWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, streamKey, consumerGroup, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		logger.Error().Err(err).Msg("Failed to create consumer group")
	}

	logger.Info().Str("consumer", w.consumerName).Msg("Metrics sync worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Metrics sync worker stopped")
			return
		default:
			entries, err := w.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
				Group:    consumerGroup,
				Consumer: w.consumerName,
				Streams:  []string{streamKey, ">"},
				Count:    10,
				Block:    5 * time.Second,
			}).Result()
			if err != nil {
				if err != goredis.Nil && ctx.Err() == nil {
					logger.Error().Err(err).Msg("Failed to read job stream")
					time.Sleep(time.Second)
				}
				continue
			}

			for _, stream := range entries {
				for _, msg := range stream.Messages {
					w.processJob(ctx, msg.Values)
					w.rdb.XAck(ctx, streamKey, consumerGroup, msg.ID)
				}
			}
		}
	}
}

func (w *MetricsSyncWorker) processJob(ctx context.Context, values map[string]interface{}) {
	jobType, ok := values["type"].(string)
	if !ok {
		logger.Warn().Interface("values", values).Msg("Job without type, dropping")
		return
	}

	rawID, ok := values["channel_id"].(string)
	if !ok {
		logger.Warn().Str("job_type", jobType).Msg("Job without channel_id, dropping")
		return
	}
	channelID, err := uuid.Parse(rawID)
	if err != nil {
		logger.Warn().Str("job_type", jobType).Str("channel_id", rawID).Msg("Job with invalid channel_id, dropping")
		return
	}

	switch jobType {
	case JobSnapshotChannel:
		err = w.snapshotChannel(ctx, channelID)
	case JobCalculateChurn:
		err = w.aggregator.RecalculateChurn(ctx, channelID, time.Now().UTC())
	case JobSyncInviteLinks:
		err = w.links.SyncJoinCounts(ctx, channelID)
	default:
		logger.Warn().Str("job_type", jobType).Msg("Unknown job type, dropping")
		return
	}

	if err != nil {
		logger.Error().Err(err).
			Str("job_type", jobType).
			Str("channel_id", channelID.String()).
			Msg("Job failed")
	}
}

// snapshotChannel опрашивает Telegram и записывает абсолютное число
// подписчиков; SubscriberGrowth при этом выводится шагом слияния.
func (w *MetricsSyncWorker) snapshotChannel(ctx context.Context, channelID uuid.UUID) error {
	channel, err := w.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}

	count, err := w.tg.GetChatMemberCount(ctx, channel.BotToken, strconv.FormatInt(channel.ChatID, 10))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = w.aggregator.RecordMetrics(ctx,
		analyticsmodels.ChannelRef(channelID),
		analyticssvc.Partial{SubscriberCount: &count},
		now,
	)
	if err != nil {
		return err
	}

	if err := w.channels.TouchSynced(ctx, channelID, now); err != nil {
		logger.Warn().Err(err).Str("channel_id", channelID.String()).Msg("Failed to update last_synced_at")
	}

	logger.Debug().
		Str("channel_id", channelID.String()).
		Int64("subscriber_count", count).
		Msg("Channel snapshot recorded")
	return nil
}
