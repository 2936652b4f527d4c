package common

import (
	"context"
	"log"
	"strings"

	"perkle/internal/auth"
	"perkle/internal/benefits"
	"perkle/internal/catalog"
	"perkle/internal/database"
	"perkle/internal/importer"
	"perkle/internal/models"
	"perkle/internal/notify"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services is the wired application graph shared by the entry points.
type Services struct {
	DbService *database.Service
	Catalog   *catalog.Catalog
	Engine    *benefits.Engine
	Importer  *importer.Importer
	Auth      *auth.Service
	Composer  *notify.Composer
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Loading card catalog", zap.String("dir", cfg.Catalog.Dir))
	cat, err := catalog.Load(ctx, cfg.Catalog.Dir, dbService)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	engine := benefits.NewEngine(dbService, cat)

	var sender notify.Sender
	if cfg.SMTP.Enabled() {
		sender = notify.NewSMTPSender(cfg.SMTP)
	} else {
		zap.L().Warn("SMTP_HOST not set, digest emails are disabled")
	}

	return &Services{
		DbService: dbService,
		Catalog:   cat,
		Engine:    engine,
		Importer:  importer.New(dbService, cat),
		Auth:      auth.NewService(dbService, cfg.Auth),
		Composer: notify.NewComposer(dbService, engine, sender,
			notify.WithThresholds(cfg.Digest.ExpiringDays, cfg.Digest.RenewalDays)),
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without the
// catalog, for tools that only touch users.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
