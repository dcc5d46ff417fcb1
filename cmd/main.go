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

	_ "github.com/lib/pq"

	"github.com/golf-arbitri/referee-system/config"
	"github.com/golf-arbitri/referee-system/db"
	"github.com/golf-arbitri/referee-system/events"
	"github.com/golf-arbitri/referee-system/handlers"
	"github.com/golf-arbitri/referee-system/middleware"
	"github.com/golf-arbitri/referee-system/repositories"
	"github.com/golf-arbitri/referee-system/routes"
	"github.com/golf-arbitri/referee-system/services"
	"github.com/golf-arbitri/referee-system/storage"
)

const schedulerInterval = 5 * time.Minute

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Хранилище документов (Cloudflare R2)
	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
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

	// WebSocket-хаб для живых событий на дашбордах
	hub := events.NewHub()
	go hub.Run()
	logger.Info("WebSocket hub started")

	// Репозитории
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	zoneRepo := repositories.NewPostgresZoneRepository(dbConn)
	clubRepo := repositories.NewPostgresClubRepository(dbConn)
	typeRepo := repositories.NewPostgresTournamentTypeRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	availabilityRepo := repositories.NewPostgresAvailabilityRepository(dbConn)
	assignmentRepo := repositories.NewPostgresAssignmentRepository(dbConn)
	logger.Info("repositories initialized")

	// Сервисы
	emailService := services.NewEmailService(cfg)
	convocationService := services.NewConvocationService(uploader)
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo, zoneRepo)
	zoneService := services.NewZoneService(zoneRepo, userRepo)
	clubService := services.NewClubService(clubRepo, userRepo)
	typeService := services.NewTournamentTypeService(typeRepo, userRepo)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		clubRepo,
		typeRepo,
		userRepo,
		hub,
		logger,
	)
	availabilityService := services.NewAvailabilityService(
		availabilityRepo,
		tournamentRepo,
		userRepo,
		emailService,
		cfg.MailboxDirectory(),
		hub,
		logger,
	)
	assignmentService := services.NewAssignmentService(
		services.NewTxRunner(dbConn),
		assignmentRepo,
		tournamentRepo,
		userRepo,
		convocationService,
		emailService,
		hub,
		logger,
	)
	auditService := services.NewAuditService(assignmentRepo, tournamentRepo, userRepo)
	logger.Info("services initialized")

	// Планировщик автоматического продвижения статусов турниров
	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("tournament status scheduler started", slog.Duration("interval", schedulerInterval))

		run := func() {
			updated, err := tournamentService.AutoUpdateTournamentStatusesByDates(context.Background())
			if err != nil {
				logger.Error("scheduler run failed", slog.Any("error", err))
				return
			}
			if updated > 0 {
				logger.Info("scheduler advanced tournament statuses", slog.Int("updated", updated))
			}
		}

		run()
		for range ticker.C {
			run()
		}
	}()

	// HTTP-обработчики
	h := routes.Handlers{
		Auth:           handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		User:           handlers.NewUserHandler(userService),
		Zone:           handlers.NewZoneHandler(zoneService),
		Club:           handlers.NewClubHandler(clubService),
		TournamentType: handlers.NewTournamentTypeHandler(typeService),
		Tournament:     handlers.NewTournamentHandler(tournamentService),
		Availability:   handlers.NewAvailabilityHandler(availabilityService),
		Assignment:     handlers.NewAssignmentHandler(assignmentService),
		Audit:          handlers.NewAuditHandler(auditService),
		WebSocket:      handlers.NewWebSocketHandler(hub),
	}
	logger.Info("HTTP handlers initialized")

	authenticator := middleware.NewAuthenticator(cfg.JWTSecretKey)
	router := routes.SetupRoutes(authenticator, h)
	logger.Info("routes configured")

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
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
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
	logger.Info("application exited")
}
