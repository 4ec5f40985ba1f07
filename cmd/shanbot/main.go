package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shannonbirch/shanbot/gemini"
	"github.com/shannonbirch/shanbot/internal/biz/usecase"
	"github.com/shannonbirch/shanbot/internal/conf"
	"github.com/shannonbirch/shanbot/internal/data"
	"github.com/shannonbirch/shanbot/internal/logger"
	"github.com/shannonbirch/shanbot/internal/server"
	"github.com/shannonbirch/shanbot/internal/service"
	"github.com/shannonbirch/shanbot/manychat"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	zl, err := logger.New()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	// Clients
	manychatClient := manychat.NewClient(cfg.ManyChat.APIToken)
	geminiClient := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)

	// Repository layer
	repos, err := data.NewRepositories(cfg.Store.DBPath)
	if err != nil {
		zl.Fatal("failed to create repositories", zap.Error(err))
	}
	defer repos.Close()
	zl.Info("database ready", zap.String("path", cfg.Store.DBPath))

	// Usecase layer
	dispatchUC := usecase.NewDispatchUsecase(
		repos.Review,
		repos.History,
		repos.Subscriber,
		geminiClient,
		manychatClient,
		data.NewManyChatProfiles(manychatClient),
		usecase.DispatchConfig{
			AutoMode:        cfg.AutoSend.Enabled,
			VeganAutoMode:   cfg.AutoSend.VeganEnabled,
			AutoSendDelay:   cfg.AutoSend.Delay(),
			MaxHistoryCount: cfg.Buffer.MaxHistoryCount,
		},
		zl,
	)
	reviewUC := usecase.NewReviewUsecase(repos.Review, repos.History, repos.Subscriber, manychatClient, zl)

	bufferMgr := usecase.NewBufferManager(usecase.BufferConfig{
		Window:        cfg.Buffer.Window(),
		SweepInterval: cfg.Buffer.SweepInterval(),
		StaleAge:      cfg.Buffer.StaleAge(),
	}, dispatchUC.HandleBatch, zl)

	// Service layer
	scheduler := service.NewAutoSendScheduler(reviewUC, cfg.AutoSend.PollInterval(), zl)

	ctx := context.Background()
	bufferMgr.Start(ctx)
	scheduler.Start(ctx)

	srv := server.NewServer(bufferMgr, reviewUC, repos.Subscriber, cfg.Server.Port, zl)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		zl.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Stop(shutdownCtx)

		scheduler.Stop()
		bufferMgr.Shutdown()
	}()

	zl.Info("starting shanbot", zap.Int("port", cfg.Server.Port))
	if err := srv.Start(); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}
