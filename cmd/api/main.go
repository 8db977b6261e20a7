package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/config"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/logger"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/common/middleware"
	analyticshttp "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/delivery/http"
	analyticspg "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/repository/postgres"
	analyticssvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/service"
	channelhttp "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/delivery/http"
	channelrepo "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository"
	channelpg "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository/postgres"
	channelredis "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/repository/redis"
	channelsvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/service"
	invitehttp "github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/delivery/http"
	invitepg "github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/repository/postgres"
	inviteredis "github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/repository/redis"
	invitesvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/service"
	messagespg "github.com/mrAr2rD/contentForceTG-sub000/internal/features/messages/repository/postgres"
	subscriberspg "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/repository/postgres"
	subscriberssvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/service"
	webhookhttp "github.com/mrAr2rD/contentForceTG-sub000/internal/features/webhook/delivery/http"
	webhooksvc "github.com/mrAr2rD/contentForceTG-sub000/internal/features/webhook/service"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/platform/db"
	redisplatform "github.com/mrAr2rD/contentForceTG-sub000/internal/platform/redis"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/platform/telegram"
)

const channelCacheTTL = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("analytics-api", cfg.Debug)

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

	// Репозитории
	channelRepo := channelpg.NewPostgresRepository(pg)
	channelCache := channelredis.NewChannelCache(rdb, channelCacheTTL)
	messageRepo := messagespg.NewPostgresRepository(pg)
	snapshotRepo := analyticspg.NewSnapshotRepository(pg)
	eventRepo := subscriberspg.NewPostgresRepository(pg)
	linkRepo := invitepg.NewPostgresRepository(pg)
	linkCache := inviteredis.NewLinkCache(rdb)

	// Сервисы
	channelService := channelsvc.NewService(channelRepo, channelCache, tg, cfg.Telegram.WebhookBaseURL)
	aggregator := analyticssvc.NewAggregator(snapshotRepo)
	linkService := invitesvc.NewInviteLinkService(linkRepo, channelRepo, eventRepo, tg, linkCache)
	subscriberService := subscriberssvc.NewService(eventRepo, linkService)
	dispatcher := webhooksvc.NewDispatcher(messageRepo, aggregator, subscriberService)

	router := buildRouter(cfg, channelService, dispatcher, aggregator, subscriberService, channelRepo, linkService)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}

func buildRouter(
	cfg *config.Config,
	channelService channelsvc.ChannelService,
	dispatcher *webhooksvc.Dispatcher,
	aggregator *analyticssvc.Aggregator,
	subscriberService *subscriberssvc.Service,
	channelRepo channelrepo.ChannelRepository,
	linkService invitesvc.InviteLinkService,
) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhook-и аутентифицируются собственным секретом, без init-data
	webhookhttp.NewHandler(channelService, dispatcher).RegisterRoutes(router)

	api := router.Group("/api/v1")
	api.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.Origin},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Telegram-Init-Data", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	api.Use(middleware.InitData(cfg.Telegram.BotToken, time.Duration(cfg.InitDataTTLSeconds)*time.Second))

	analyticshttp.NewHandler(aggregator, subscriberService).RegisterRoutes(api)
	channelhttp.NewHandler(channelService, channelRepo).RegisterRoutes(api)
	invitehttp.NewHandler(linkService).RegisterRoutes(api)

	return router
}
