package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"roi-harvester/config"
	telegram "roi-harvester/internal/api"
	"roi-harvester/internal/api/status"
	app "roi-harvester/internal/application"
	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
	"roi-harvester/internal/infrastructure/catalog"
	"roi-harvester/internal/infrastructure/ledger"
	"roi-harvester/internal/infrastructure/pagebox"
	"roi-harvester/internal/infrastructure/storage"
	"roi-harvester/internal/infrastructure/vision"
)

// Container собранные сервисы приложения
type Container struct {
	Service   *app.DatasetService
	Scheduler *app.Scheduler
	Tracker   *app.RunTracker
	Bot       *telegram.Bot  // nil без TELEGRAM_TOKEN
	Status    *status.Server // nil без STATUS_ADDR

	ledger *ledger.SQLiteLedger
}

// New собирает сервисы по конфигурации. ctx - контекст прогонов, запускаемых по команде.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := storage.OpenPercentCache(filepath.Join(cfg.StateDir, storage.PercentCacheFile))
	if err != nil {
		return nil, fmt.Errorf("open percent cache: %w", err)
	}
	store := storage.NewFileScanStore(cfg.StateDir)

	c := &Container{Tracker: app.NewRunTracker()}

	var scanLedger port.ScanLedger = ledger.Noop{}
	if cfg.LedgerPath != "" {
		c.ledger, err = ledger.Open(cfg.LedgerPath)
		if err != nil {
			return nil, err
		}
		scanLedger = c.ledger
	}

	var notifier port.Notifier
	if cfg.Telegram.Token != "" {
		c.Bot, err = telegram.NewBot(telegram.Config{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		}, nil, c.Tracker, logger.With("component", "telegram"))
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		notifier = c.Bot
	}

	catalogClient := catalog.NewClient(catalog.Config{
		FileInfoURL: cfg.Catalog.FileInfoURL,
		DetailsURL:  cfg.Catalog.DetailsURL,
		User:        cfg.Catalog.User,
		Password:    cfg.Catalog.Password,
		Timeout:     cfg.Catalog.Timeout,
	}, nil)
	raster := vision.NewProcessor()

	resolver := app.NewMetadataResolver(
		catalogClient,
		pagebox.NewReader(),
		entity.NewConsistencyGate(cfg.Scan.Tolerance),
		cfg.Scan.SourceRoot,
		logger.With("component", "resolver"),
	)
	scanner := app.NewHarvestScanner(resolver, store, scanLedger, app.ScannerConfig{
		Seed:           cfg.Scan.Seed,
		Stop:           cfg.Scan.Stop,
		Cadence:        cfg.Scan.Cadence,
		ErrorThreshold: cfg.Scan.ErrorThreshold,
	}, logger.With("component", "scanner"))

	builder := app.NewDatasetBuilder(
		app.NewAssetSynchronizer(cfg.Dataset.ImageDir, raster),
		app.NewMaskSynthesizer(raster),
		raster,
		cache,
		app.DatasetConfig{
			ResizedDir: cfg.Dataset.ResizedDir,
			MaskDir:    cfg.Dataset.MaskDir,
			Dimension:  cfg.Dataset.Dimension,
			DPI:        cfg.Dataset.DPI,
			Workers:    cfg.Dataset.Workers,
		},
		logger.With("component", "dataset"),
	)

	c.Service = app.NewDatasetService(scanner, store, builder, notifier, c.Tracker, logger)
	c.Scheduler = app.NewScheduler(c.Service, c.Tracker, logger.With("component", "scheduler"))
	if c.Bot != nil {
		c.Bot.SetRunner(c.Scheduler)
	}

	if cfg.StatusAddr != "" {
		var reader status.LedgerReader
		if c.ledger != nil {
			reader = c.ledger
		}
		c.Status = status.NewServer(ctx, c.Tracker, c.Scheduler, reader, logger.With("component", "status"))
	}
	return c, nil
}

// Close освобождает ресурсы
func (c *Container) Close() error {
	var errs []error
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.ledger != nil {
		errs = append(errs, c.ledger.Close())
	}
	return errors.Join(errs...)
}
