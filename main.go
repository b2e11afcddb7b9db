package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking_reserve/internal/api"
	"parking_reserve/internal/api/handler"
	"parking_reserve/internal/api/middleware"
	"parking_reserve/internal/config"
	"parking_reserve/internal/logging"
	"parking_reserve/internal/repository/postgresql"
	"parking_reserve/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func main() {
	cfg := config.Load()
	bootLog, _ := logging.Setup(cfg.LogLevel, nil)

	db, err := postgresql.NewDB(cfg)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("could not connect to database")
	}
	defer db.Close()

	if err := postgresql.Migrate(context.Background(), db); err != nil {
		bootLog.Fatal().Err(err).Msg("database migration failed")
	}

	// Repositories
	userRepo := postgresql.NewPgUserRepository(db)
	lotRepo := postgresql.NewPgParkingLotRepository(db)
	spaceRepo := postgresql.NewPgParkingSpaceRepository(db)
	bookingRepo := postgresql.NewPgBookingRepository(db)
	oidcRepo := postgresql.NewPgOIDCProviderRepository(db)
	settingsRepo := postgresql.NewPgSettingsRepository(db)
	logRepo := postgresql.NewPgApplicationLogRepository(db)
	reportRepo := postgresql.NewPgReportTemplateRepository(db)
	migrationRepo := postgresql.NewPgMigrationRepository(db)

	// Logging with the DB sink that backs the admin log viewer
	logger, closeLogs := logging.Setup(cfg.LogLevel, logRepo)
	defer closeLogs()
	logger.Info().Msg("configuration loaded, database connected")

	// S3 client for backups; BACKUP_S3_ENDPOINT switches to a compatible
	// store such as MinIO
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load AWS SDK config")
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BackupEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BackupEndpoint)
			o.UsePathStyle = true
		}
	})

	// WebSocket fan-out for live booking updates
	wsManager := handler.NewWebSocketManager(logger)
	go wsManager.Start()

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours)
	parkingService := service.NewParkingService(lotRepo, spaceRepo, bookingRepo)
	bookingService := service.NewBookingService(bookingRepo, spaceRepo, userRepo, wsManager)
	oidcService := service.NewOIDCService(oidcRepo, userRepo, authService, cfg.BaseURL, logger)
	emailService := service.NewEmailService(settingsRepo, logger)
	reportService := service.NewReportService(reportRepo, bookingRepo, emailService, logger)
	backupService := service.NewBackupService(settingsRepo, lotRepo, spaceRepo, bookingRepo, userRepo, s3Client, logger)

	authMiddleware := middleware.NewAuthMiddleware(authService)

	// Background scheduler: expired bookings, scheduled reports, backups,
	// log retention
	scheduler := service.NewScheduler(bookingService, reportService, backupService, logRepo, logger, cfg.SchedulerInterval)
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go scheduler.Start(schedulerCtx)

	router := api.SetupRouter(
		authService,
		parkingService,
		bookingService,
		oidcService,
		emailService,
		reportService,
		backupService,
		api.Repos{Settings: settingsRepo, Logs: logRepo, Migration: migrationRepo},
		authMiddleware,
		wsManager,
		cfg.StaticDir,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.ServerPort).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	stopScheduler()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced server shutdown")
	}
	logger.Info().Msg("server stopped")
}
