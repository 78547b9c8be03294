package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

// RunSummary итог одного прогона.
type RunSummary struct {
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Cursor      int64             `json:"cursor"`
	Accepted    int               `json:"accepted"`
	Checkpoint  entity.Checkpoint `json:"checkpoint"`
	StopReason  StopReason        `json:"stop_reason"`
	Records     int               `json:"records"`
	Sync        SyncStats         `json:"sync"`
	Materialize MaterializeStats  `json:"materialize"`
	Error       string            `json:"error,omitempty"`
}

// String краткое текстовое представление для уведомлений.
func (s RunSummary) String() string {
	text := fmt.Sprintf("ROI harvest: cursor %d, accepted %d (checkpoint %d), stop: %s\n"+
		"records %d: local %d, missing %d\n"+
		"masks: written %d, skipped %d, failed %d",
		s.Cursor, s.Accepted, s.Checkpoint.AcceptedCount, s.StopReason,
		s.Records, s.Sync.Local, s.Sync.Missing,
		s.Materialize.Written, s.Materialize.Skipped, s.Materialize.Failed)
	if s.Error != "" {
		text += "\nerror: " + s.Error
	}
	return text
}

// DatasetService выполняет прогон: сканирование, копирование, растры и маски.
type DatasetService struct {
	scanner  *HarvestScanner
	store    port.ScanStore
	builder  *DatasetBuilder
	notifier port.Notifier
	tracker  *RunTracker
	logger   *slog.Logger
}

// NewDatasetService создаёт сервис; notifier и tracker могут быть nil.
func NewDatasetService(scanner *HarvestScanner, store port.ScanStore, builder *DatasetBuilder, notifier port.Notifier, tracker *RunTracker, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{
		scanner:  scanner,
		store:    store,
		builder:  builder,
		notifier: notifier,
		tracker:  tracker,
		logger:   logger,
	}
}

// Run выполняет один полный прогон. Копирование и маски строятся по
// сопоставлению последнего сохранённого чекпоинта.
func (s *DatasetService) Run(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{StartedAt: time.Now()}
	s.tracker.begin(summary.StartedAt)

	err := s.run(ctx, &summary)
	summary.FinishedAt = time.Now()
	if err != nil {
		summary.Error = err.Error()
	}

	s.tracker.finish(summary)
	s.notify(ctx, summary)
	s.logger.Info("run finished",
		"cursor", summary.Cursor,
		"accepted", summary.Accepted,
		"stop", summary.StopReason,
		"local", summary.Sync.Local,
		"written", summary.Materialize.Written,
		"failed", summary.Materialize.Failed,
		"duration", summary.FinishedAt.Sub(summary.StartedAt))
	return summary, err
}

func (s *DatasetService) run(ctx context.Context, summary *RunSummary) error {
	scan, err := s.scanner.Run(ctx)
	if scan != nil {
		summary.Cursor = scan.Cursor
		summary.Accepted = scan.Accepted
		summary.Checkpoint = scan.Checkpoint
		summary.StopReason = scan.Reason
	}
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	cp, ok, err := s.store.LoadCheckpoint(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		s.logger.Info("no checkpoint yet, nothing to materialize")
		return nil
	}

	mapping, err := s.store.LoadMapping(ctx, cp.AcceptedCount)
	if errors.Is(err, entity.ErrMappingNotFound) {
		s.logger.Warn("mapping for checkpoint not found", "accepted", cp.AcceptedCount)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load mapping: %w", err)
	}
	summary.Records = len(mapping)

	locals, syncStats, err := s.builder.Sync(ctx, mapping)
	summary.Sync = syncStats
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	stats, err := s.builder.Materialize(ctx, mapping, locals)
	summary.Materialize = stats
	if err != nil {
		return fmt.Errorf("materialize: %w", err)
	}
	return nil
}

func (s *DatasetService) notify(ctx context.Context, summary RunSummary) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, summary.String()); err != nil {
		s.logger.Warn("notification failed", "error", err)
	}
}
