package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/deltacrown/bracket-engine/config"
	"github.com/deltacrown/bracket-engine/db"
	"github.com/deltacrown/bracket-engine/handlers"
	"github.com/deltacrown/bracket-engine/realtime"
	"github.com/deltacrown/bracket-engine/repositories"
	api "github.com/deltacrown/bracket-engine/routes"
	"github.com/deltacrown/bracket-engine/services"
	"github.com/deltacrown/bracket-engine/storage"
	"github.com/deltacrown/bracket-engine/workers"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Snapshot export target is optional; without R2 credentials the ranking
	// cycle still runs, it just skips the export step.
	var uploader storage.FileUploader
	if cfg.SnapshotsEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("R2 credentials not configured, leaderboard snapshots disabled")
	}

	wsHub := realtime.NewHub(logger)
	go wsHub.Run()

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	teamRankingRepo := repositories.NewPostgresTeamRankingRepository(dbConn)
	orgRankingRepo := repositories.NewPostgresOrganizationRankingRepository(dbConn)

	bracketService := services.NewBracketService(
		dbConn,
		tournamentRepo,
		participantRepo,
		bracketRepo,
		matchRepo,
		wsHub,
		logger,
	)
	rankingService := services.NewRankingService(
		teamRankingRepo,
		orgRankingRepo,
		matchRepo,
		services.RankingConfig{
			ChunkSize:       cfg.RankingChunkSize,
			DecayRatePerDay: cfg.RankingDecayRate,
			DecayCutoffDays: cfg.RankingDecayCutoff,
		},
		logger,
	)
	leaderboardService := services.NewLeaderboardService(teamRankingRepo, orgRankingRepo)
	dashboardService := services.NewDashboardService(tournamentRepo, bracketRepo, matchRepo, teamRankingRepo, orgRankingRepo)

	var snapshotService services.SnapshotService
	if uploader != nil {
		snapshotService = services.NewSnapshotService(teamRankingRepo, orgRankingRepo, uploader, logger)
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	jobRunner := services.NewJobRunner(rankingService, cfg.RankingJobQueueSize, logger)
	jobRunner.Start(rootCtx)

	rankingWorker := workers.NewRankingWorker(
		rankingService,
		snapshotService,
		wsHub,
		cfg.RankingCycleInterval,
		cfg.LeaderboardSnapshotTopN,
		logger,
	)
	if err := rankingWorker.Start(rootCtx); err != nil {
		logger.Error("failed to start ranking worker", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := rankingWorker.Stop(); err != nil {
			logger.Error("failed to stop ranking worker", slog.Any("error", err))
		}
	}()

	bracketHandler := handlers.NewBracketHandler(bracketService)
	rankingHandler := handlers.NewRankingHandler(rankingService, jobRunner, leaderboardService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, bracketHandler, rankingHandler, dashboardHandler, webSocketHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancelRoot()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}
