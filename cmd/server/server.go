package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"gallery-server/internal/config"
	domain "gallery-server/internal/domain/media"
	"gallery-server/internal/infrastructure/database"
	"gallery-server/internal/infrastructure/logger"
	"gallery-server/internal/infrastructure/observability"
	repo "gallery-server/internal/infrastructure/repository/media"
	"gallery-server/internal/infrastructure/storage"
	"gallery-server/internal/infrastructure/transcode"
	"gallery-server/internal/interfaces/httpserver"
)

type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	objectStore, err := storage.NewS3Store(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize object storage")
	}

	localStore, err := storage.NewLocalStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize local storage")
	}

	deriver := transcode.NewFFmpeg(cfg, log)
	if err := deriver.AssertReady(); err != nil {
		// Thumbnails are best-effort; a missing ffmpeg degrades video
		// uploads instead of blocking startup.
		log.Warn().Err(err).Msg("transcoder unavailable, video thumbnails disabled")
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("access database handle")
	}

	galleryRepository := repo.NewRepository(db)
	galleryService := domain.NewService(cfg, galleryRepository, objectStore, localStore, deriver, log)

	httpServer := httpserver.New(cfg, log, galleryService, localStore, sqlDB)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
