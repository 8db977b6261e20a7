package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/config"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	analyticspg "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository/postgres"
	analyticssvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/service"
	channelpg "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository/postgres"
	invitepg "github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/repository/postgres"
	inviteredis "github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/repository/redis"
	invitesvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/service"
	subscriberspg "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/repository/postgres"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/platform/db"
	redisplatform "github.com/mrAr2rD/contentForceTG-sub000/internal/platform/redis"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/platform/telegram"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/workers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("analytics-worker", cfg.Debug)

	pg, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pg.Close()

	rdb, err := redisplatform.Open(ctx, redisplatform.Addr(cfg.Redis.Host, cfg.Redis.Port), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	tg := telegram.NewClient()

	channelRepo := channelpg.NewPostgresRepository(pg)
	snapshotRepo := analyticspg.NewSnapshotRepository(pg)
	eventRepo := subscriberspg.NewPostgresRepository(pg)
	linkRepo := invitepg.NewPostgresRepository(pg)
	linkCache := inviteredis.NewLinkCache(rdb)

	aggregator := analyticssvc.NewAggregator(snapshotRepo)
	linkService := invitesvc.NewInviteLinkService(linkRepo, channelRepo, eventRepo, tg, linkCache)

	queue := workers.NewQueue(rdb)
	interval := time.Duration(cfg.Analytics.SnapshotIntervalMinutes) * time.Minute
	scheduler := workers.NewScheduler(queue, channelRepo, interval)
	worker := workers.NewMetricsSyncWorker(rdb, consumerName(), channelRepo, tg, aggregator, linkService)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scheduler.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	<-ctx.Done()
	stop()
	wg.Wait()
	logger.Info().Msg("Worker stopped")
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
