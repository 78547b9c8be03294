package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

// DatasetConfig параметры построения выборки.
type DatasetConfig struct {
	ResizedDir string
	MaskDir    string
	Dimension  int
	DPI        float64
	Workers    int
}

// SyncStats итог копирования исходников.
type SyncStats struct {
	Local   int
	Missing int
	Failed  int
}

// MaterializeStats итог построения уменьшенных копий и масок.
type MaterializeStats struct {
	Written int
	Skipped int
	Failed  int
}

// DatasetBuilder копирует исходники и строит для них растры и маски.
type DatasetBuilder struct {
	assets *AssetSynchronizer
	masks  *MaskSynthesizer
	raster port.RasterProcessor
	cache  port.PercentCache
	cfg    DatasetConfig
	logger *slog.Logger
}

// NewDatasetBuilder создаёт построитель выборки.
func NewDatasetBuilder(assets *AssetSynchronizer, masks *MaskSynthesizer, raster port.RasterProcessor, cache port.PercentCache, cfg DatasetConfig, logger *slog.Logger) *DatasetBuilder {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DPI <= 0 {
		cfg.DPI = entity.DefaultDPI
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetBuilder{
		assets: assets,
		masks:  masks,
		raster: raster,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// Sync обеспечивает локальную копию для каждого исходника сопоставления.
// Возвращает исходный путь -> локальный путь для найденных файлов.
func (b *DatasetBuilder) Sync(ctx context.Context, mapping entity.ROIMapping) (map[string]string, SyncStats, error) {
	var (
		mu      sync.Mutex
		locals  = make(map[string]string, len(mapping))
		missing atomic.Int64
		failed  atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for _, source := range mapping.Keys() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			local, err := b.assets.EnsureLocal(source)
			switch {
			case errors.Is(err, entity.ErrAssetMissing):
				missing.Add(1)
				b.logger.Debug("asset missing", "source", source)
				return nil
			case err != nil:
				failed.Add(1)
				b.logger.Warn("asset copy failed", "source", source, "error", err)
				return nil
			}
			mu.Lock()
			locals[source] = local
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, SyncStats{}, err
	}

	stats := SyncStats{Local: len(locals), Missing: int(missing.Load()), Failed: int(failed.Load())}
	if err := ctx.Err(); err != nil {
		return locals, stats, err
	}
	return locals, stats, nil
}

// Materialize строит уменьшенную копию и маску для каждой локальной копии.
// Ключ попадает в кэш только когда на диске есть и растр, и маска;
// при любом сбое ключ удаляется из кэша.
func (b *DatasetBuilder) Materialize(ctx context.Context, mapping entity.ROIMapping, locals map[string]string) (MaterializeStats, error) {
	var written, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for _, source := range mapping.Keys() {
		local, ok := locals[source]
		if !ok {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		roi := mapping[source]
		g.Go(func() error {
			out, err := b.materializeOne(gctx, local, roi)
			if err != nil {
				return err
			}
			switch out {
			case outcomeWritten:
				written.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			case outcomeFailed:
				failed.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	stats := MaterializeStats{
		Written: int(written.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	if err != nil {
		return stats, err
	}
	return stats, ctx.Err()
}

type outcome int

const (
	outcomeWritten outcome = iota
	outcomeSkipped
	outcomeFailed
)

// materializeOne обрабатывает одно изображение. Ошибка возвращается только
// при сбое записи кэша; сбои растра превращаются в outcomeFailed.
func (b *DatasetBuilder) materializeOne(ctx context.Context, local string, roi entity.PhysicalRect) (outcome, error) {
	resized := filepath.Join(b.cfg.ResizedDir, filepath.Base(local))
	mask := filepath.Join(b.cfg.MaskDir, filepath.Base(local))

	if _, ok := b.cache.Get(local); ok && fileExists(resized) && fileExists(mask) {
		return outcomeSkipped, nil
	}

	pct, err := b.synthesize(local, roi)
	if err != nil {
		b.logger.Warn("synthesis failed", "local", local, "error", err)
		if derr := b.cache.Delete(ctx, local); derr != nil {
			return outcomeFailed, fmt.Errorf("purge cache entry %s: %w", local, derr)
		}
		return outcomeFailed, nil
	}

	if err := b.cache.Put(ctx, local, pct); err != nil {
		return outcomeFailed, fmt.Errorf("cache put %s: %w", local, err)
	}
	return outcomeWritten, nil
}

// synthesize пересчитывает ROI в доли по фактическим размерам изображения
// и пишет уменьшенную копию и маску.
func (b *DatasetBuilder) synthesize(local string, roi entity.PhysicalRect) (entity.PercentRect, error) {
	width, height, err := b.raster.Dimensions(local)
	if err != nil {
		return entity.PercentRect{}, fmt.Errorf("%w: decode: %v", entity.ErrSynthesis, err)
	}

	pct := entity.ToPercent(roi.ToPixels(b.cfg.DPI), width, height)
	if !pct.Valid() {
		return entity.PercentRect{}, fmt.Errorf("%w: roi outside image: %+v", entity.ErrSynthesis, pct)
	}

	if _, err := b.assets.EnsureResized(local, b.cfg.ResizedDir, b.cfg.Dimension); err != nil {
		return entity.PercentRect{}, err
	}

	mask, err := b.masks.Synthesize(pct, b.cfg.Dimension)
	if err != nil {
		return entity.PercentRect{}, err
	}
	if _, err := b.masks.Write(b.cfg.MaskDir, local, mask); err != nil {
		return entity.PercentRect{}, err
	}
	return pct, nil
}
