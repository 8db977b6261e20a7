package workers

import (
	"context"
	"time"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	channelrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository"
)

// За один снапшотный тик churn пересчитывается раз в churnEvery тиков,
// сверка ссылок — раз в linksEvery.
const (
	churnEvery = 24
	linksEvery = 6
)

// Scheduler периодически ставит фоновые задачи по всем проверенным каналам.
type Scheduler struct {
	queue    *Queue
	channels channelrepo.ChannelRepository
	interval time.Duration
}

func NewScheduler(queue *Queue, channels channelrepo.ChannelRepository, interval time.Duration) *Scheduler {
	return &Scheduler{queue: queue, channels: channels, interval: interval}
}

// Start блокируется до отмены контекста. Первый тик выполняется сразу.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info().Dur("interval", s.interval).Msg("Scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var tick int
	s.runTick(ctx, tick)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Scheduler stopped")
			return
		case <-ticker.C:
			tick++
			s.runTick(ctx, tick)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context, tick int) {
	channels, err := s.channels.ListVerified(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list channels for scheduling")
		return
	}

	for i := range channels {
		ch := &channels[i]
		_ = s.queue.Enqueue(ctx, JobSnapshotChannel, ch.ID)
		if tick%linksEvery == 0 {
			_ = s.queue.Enqueue(ctx, JobSyncInviteLinks, ch.ID)
		}
		if tick%churnEvery == 0 {
			_ = s.queue.Enqueue(ctx, JobCalculateChurn, ch.ID)
		}
	}

	logger.Debug().Int("channels", len(channels)).Msg("Scheduled analytics jobs")
}
