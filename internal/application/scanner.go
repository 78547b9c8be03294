package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

// DefaultErrorThreshold число подряд идущих сбоев, после которого сканер останавливается.
const DefaultErrorThreshold = 100

// Resolver разрешает один идентификатор каталога.
type Resolver interface {
	Resolve(ctx context.Context, id int64) entity.Resolution
}

// ScannerConfig параметры сканера.
type ScannerConfig struct {
	Seed           int64 // курсор, если чекпоинта ещё нет
	Stop           int64 // включительная верхняя граница, 0 - без границы
	Cadence        int
	ErrorThreshold int
}

// StopReason причина завершения сканирования.
type StopReason string

const (
	StopHalted    StopReason = "error_threshold"
	StopBound     StopReason = "stop_identifier"
	StopCancelled StopReason = "cancelled"
)

// ScanResult итог работы сканера.
type ScanResult struct {
	Start      entity.Checkpoint
	Checkpoint entity.Checkpoint // последний сохранённый чекпоинт
	Cursor     int64
	Accepted   int
	Reason     StopReason
	Mapping    entity.ROIMapping // включая записи после последнего сохранения
}

// HarvestScanner последовательно обходит пространство идентификаторов.
type HarvestScanner struct {
	resolver Resolver
	store    port.ScanStore
	ledger   port.ScanLedger
	cfg      ScannerConfig
	logger   *slog.Logger
}

// NewHarvestScanner создаёт сканер; ledger может быть nil.
func NewHarvestScanner(resolver Resolver, store port.ScanStore, ledger port.ScanLedger, cfg ScannerConfig, logger *slog.Logger) *HarvestScanner {
	if cfg.Cadence <= 0 {
		cfg.Cadence = entity.DefaultCadence
	}
	if cfg.ErrorThreshold <= 0 {
		cfg.ErrorThreshold = DefaultErrorThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HarvestScanner{
		resolver: resolver,
		store:    store,
		ledger:   ledger,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run продолжает сканирование с последнего чекпоинта. Ошибка возвращается только
// при отмене контекста или сбое записи чекпоинта; остановка по порогу ошибок - штатный исход.
func (s *HarvestScanner) Run(ctx context.Context) (*ScanResult, error) {
	start, mapping, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{
		Start:      start,
		Checkpoint: start,
		Cursor:     start.LastIdentifier,
		Accepted:   start.AcceptedCount,
		Mapping:    mapping,
	}
	s.logger.Info("scan started", "cursor", res.Cursor, "accepted", res.Accepted, "records", len(mapping))

	consecutive := 0
	for {
		if err := ctx.Err(); err != nil {
			res.Reason = StopCancelled
			return res, err
		}
		if s.cfg.Stop > 0 && res.Cursor >= s.cfg.Stop {
			res.Reason = StopBound
			break
		}

		res.Cursor++
		resolution := s.resolver.Resolve(ctx, res.Cursor)
		s.record(ctx, res.Cursor, resolution)

		switch {
		case resolution.Accepted():
			consecutive = 0
			rec := resolution.Record
			res.Mapping[rec.SourcePath] = rec.Rect
			res.Accepted++
			s.logger.Debug("roi accepted", "id", res.Cursor, "path", rec.SourcePath, "accepted", res.Accepted)

			if res.Accepted%s.cfg.Cadence == 0 {
				cp := entity.Checkpoint{LastIdentifier: res.Cursor, AcceptedCount: res.Accepted}
				if err := s.store.Flush(ctx, cp, res.Mapping); err != nil {
					return res, fmt.Errorf("flush checkpoint %d: %w", res.Accepted, err)
				}
				res.Checkpoint = cp
				s.logger.Info("checkpoint saved", "cursor", cp.LastIdentifier, "accepted", cp.AcceptedCount)
			}

		case resolution.Reason.Transient():
			consecutive++
			s.logger.Warn("resolution failed", "id", res.Cursor, "reason", resolution.Reason, "consecutive", consecutive, "error", resolution.Err)

		default:
			// Чистое отсутствие не сбрасывает и не увеличивает счётчик.
			s.logger.Debug("no annotation", "id", res.Cursor, "reason", resolution.Reason)
		}

		if consecutive > s.cfg.ErrorThreshold {
			res.Reason = StopHalted
			s.logger.Info("scan halted", "cursor", res.Cursor, "consecutive_errors", consecutive)
			break
		}
	}

	return res, nil
}

func (s *HarvestScanner) load(ctx context.Context) (entity.Checkpoint, entity.ROIMapping, error) {
	cp, ok, err := s.store.LoadCheckpoint(ctx)
	if err != nil {
		return entity.Checkpoint{}, nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		return entity.Checkpoint{LastIdentifier: s.cfg.Seed}, entity.ROIMapping{}, nil
	}

	mapping, err := s.store.LoadMapping(ctx, cp.AcceptedCount)
	switch {
	case errors.Is(err, entity.ErrMappingNotFound):
		s.logger.Warn("mapping for checkpoint not found, starting empty", "accepted", cp.AcceptedCount)
		mapping = entity.ROIMapping{}
	case err != nil:
		return entity.Checkpoint{}, nil, fmt.Errorf("load mapping: %w", err)
	}
	return cp, mapping, nil
}

func (s *HarvestScanner) record(ctx context.Context, id int64, res entity.Resolution) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(ctx, id, res); err != nil {
		s.logger.Warn("ledger write failed", "id", id, "error", err)
	}
}
