package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hkakademi/media/internal/config"
	"github.com/hkakademi/media/internal/db"
	"github.com/hkakademi/media/internal/mediaproc"
	"github.com/hkakademi/media/internal/repository"
	"github.com/hkakademi/media/internal/service"
	"github.com/hkakademi/media/internal/storage"
)

type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	Storage      storage.Storage
	MediaService *service.MediaService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	mediaRepository := repository.NewMediaRepository(database)

	// Storage
	mediaStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Variant pipelines
	ffmpeg := mediaproc.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, cfg.TranscodeTimeout)
	images := mediaproc.NewImageProcessor(mediaStorage, ffmpeg)
	videos := mediaproc.NewVideoProcessor(mediaStorage, ffmpeg)

	// Services
	mediaService := service.NewMediaService(mediaRepository, mediaStorage, images, videos)

	return &App{
		Cfg:          cfg,
		DB:           database,
		Storage:      mediaStorage,
		MediaService: mediaService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
