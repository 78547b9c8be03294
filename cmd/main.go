package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"roi-harvester/config"
	"roi-harvester/internal/container"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Harvester error: %v", err)
	}
}

func run(cfg *config.Config) error {
	logger := cfg.NewLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Собираем сервисы приложения
	appContainer, err := container.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer appContainer.Close()

	// Без расписания: один прогон и выход
	if cfg.CronExpr == "" {
		_, err := appContainer.Scheduler.RunOnce(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if appContainer.Status != nil {
		g.Go(func() error {
			return appContainer.Status.ListenAndServe(gctx, cfg.StatusAddr)
		})
	}
	if appContainer.Bot != nil {
		g.Go(func() error {
			return appContainer.Bot.Run(gctx)
		})
	}
	g.Go(func() error {
		if err := appContainer.Scheduler.Start(gctx, cfg.CronExpr); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	logger.Info("harvester is running", "cron", cfg.CronExpr, "status_addr", cfg.StatusAddr)
	return g.Wait()
}
