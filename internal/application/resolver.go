package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

const (
	fileTypeDaily = "daily"
	reproSubdir   = "repro_files"
	rawMarker     = "_RAW"
	suffixMarker  = "_1"
	metadataExt   = ".xml"
)

// MetadataResolver превращает идентификатор каталога в проверенную запись ROI.
type MetadataResolver struct {
	catalog    port.Catalog
	metadata   port.MetadataReader
	gate       entity.ConsistencyGate
	sourceRoot string
	logger     *slog.Logger
}

// NewMetadataResolver создаёт резолвер; sourceRoot - корень общего хранилища.
func NewMetadataResolver(catalog port.Catalog, metadata port.MetadataReader, gate entity.ConsistencyGate, sourceRoot string, logger *slog.Logger) *MetadataResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataResolver{
		catalog:    catalog,
		metadata:   metadata,
		gate:       gate,
		sourceRoot: sourceRoot,
		logger:     logger,
	}
}

// Resolve никогда не возвращает ошибку: любая причина отказа выражена в Resolution.Reason.
func (r *MetadataResolver) Resolve(ctx context.Context, id int64) entity.Resolution {
	info, err := r.catalog.FileInfo(ctx, id)
	if err != nil {
		return entity.Absent(entity.ReasonFetchFailed, err)
	}
	// Ежедневные варианты не имеют отдельной записи в реестре и не сверяются.
	if strings.EqualFold(info.FileType, fileTypeDaily) {
		return entity.Absent(entity.ReasonNotVerifiable, nil)
	}

	// Реестр опрашивается до файловой системы: пустой ответ означает конец каталога.
	trusted, err := r.catalog.TrustedSize(ctx, id)
	if err != nil {
		return entity.Absent(entity.ReasonFetchFailed, err)
	}
	if strings.TrimSpace(info.ImagePath) == "" {
		return entity.Absent(entity.ReasonFetchFailed, fmt.Errorf("id %d: empty image path", id))
	}

	declared := r.sourcePath(info.ImagePath)
	assetPath, ok := firstExisting(assetCandidates(declared))
	if !ok {
		return entity.Absent(entity.ReasonAssetMissing, fmt.Errorf("%s: %w", declared, entity.ErrAssetMissing))
	}

	if assetPath != declared {
		r.logger.Debug("asset resolved by fallback", "id", id, "declared", declared, "asset", assetPath)
	}

	metaPath, ok := firstExisting(metadataCandidates(assetPath, declared))
	if !ok {
		return entity.Absent(entity.ReasonMetadataMissing, fmt.Errorf("no metadata next to %s", assetPath))
	}

	roi, err := r.metadata.ReadROI(metaPath)
	if err != nil {
		if errors.Is(err, entity.ErrMetadataIncomplete) {
			return entity.Absent(entity.ReasonMetadataIncomplete, err)
		}
		return entity.Absent(entity.ReasonMetadataUnreadable, err)
	}

	rec := entity.ROIRecord{
		Identifier: id,
		SourcePath: withMarker(assetPath, rawMarker),
		Rect:       roi,
	}
	if !r.gate.Accepts(roi.Size(), trusted) {
		return entity.Resolution{Record: rec, Trusted: trusted, Reason: entity.ReasonRejected}
	}
	return entity.Resolution{Record: rec, Trusted: trusted, Reason: entity.ReasonAccepted}
}

// sourcePath строит путь на общем хранилище из пути дескриптора (NFC, разделители ОС).
func (r *MetadataResolver) sourcePath(imagePath string) string {
	rel := strings.TrimLeft(norm.NFC.String(imagePath), "/")
	return filepath.Join(r.sourceRoot, reproSubdir, filepath.FromSlash(rel))
}

// assetCandidates варианты имени изображения в порядке приоритета:
// точный путь, суффикс _1 перед расширением, точки основы заменены на "_".
// Затем те же варианты с заменой jpg/jpeg.
func assetCandidates(path string) []string {
	family := func(p string) []string {
		dir, stem, ext := splitPath(p)
		out := []string{p, filepath.Join(dir, stem+suffixMarker+ext)}
		if joined := strings.ReplaceAll(stem, ".", "_"); joined != stem {
			out = append(out, filepath.Join(dir, joined+ext))
		}
		return out
	}

	out := family(path)
	if swapped, ok := swapRasterExt(path); ok {
		out = append(out, family(swapped)...)
	}
	return dedupe(out)
}

// metadataCandidates варианты имени XML рядом с изображением.
// Изображение с суффиксом _1 делит файл метаданных с основным именем.
func metadataCandidates(assetPath, declared string) []string {
	var out []string
	for _, p := range []string{assetPath, declared} {
		dir, stem, _ := splitPath(p)
		if trimmed, ok := strings.CutSuffix(stem, suffixMarker); ok {
			out = append(out, filepath.Join(dir, trimmed+metadataExt))
		}
		out = append(out, filepath.Join(dir, stem+metadataExt))
		if joined := strings.ReplaceAll(stem, ".", "_"); joined != stem {
			out = append(out, filepath.Join(dir, joined+metadataExt))
		}
	}
	return dedupe(out)
}

// swapRasterExt меняет .jpg на .jpeg и обратно.
func swapRasterExt(path string) (string, bool) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	switch strings.ToLower(ext) {
	case ".jpg":
		return base + ".jpeg", true
	case ".jpeg":
		return base + ".jpg", true
	}
	return path, false
}

// withMarker вставляет маркер перед расширением.
func withMarker(path, marker string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + marker + ext
}

func splitPath(path string) (dir, stem, ext string) {
	dir = filepath.Dir(path)
	base := filepath.Base(path)
	ext = filepath.Ext(base)
	stem = strings.TrimSuffix(base, ext)
	return dir, stem, ext
}

func firstExisting(paths []string) (string, bool) {
	for _, p := range paths {
		if fileExists(p) {
			return p, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
