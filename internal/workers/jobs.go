package workers

import (
	"context"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/platform/redis"
)

const streamKey = "analytics:jobs"
const consumerGroup = "analytics_workers"

// Виды фоновых задач.
const (
	JobSnapshotChannel = "snapshot_channel"
	JobCalculateChurn  = "calculate_churn"
	JobSyncInviteLinks = "sync_invite_links"
)

// Queue ставит фоновые задачи аналитики в Redis stream.
type Queue struct {
	rdb *redis.Client
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Enqueue добавляет задачу по каналу в поток.
func (q *Queue) Enqueue(ctx context.Context, jobType string, channelID uuid.UUID) error {
	err := q.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"type":       jobType,
			"channel_id": channelID.String(),
		},
	}).Err()
	if err != nil {
		logger.Error().Err(err).
			Str("job_type", jobType).
			Str("channel_id", channelID.String()).
			Msg("Failed to enqueue job")
		return err
	}
	return nil
}
