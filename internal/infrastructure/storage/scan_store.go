package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

const (
	checkpointFile    = "last_scan.json"
	mappingFilePrefix = "images_and_roi"
)

// ErrMappingNotFound нет файла сопоставления для отметки.
var ErrMappingNotFound = entity.ErrMappingNotFound

// checkpointDoc формат файла чекпоинта; старые ключи читаются для совместимости.
type checkpointDoc struct {
	LastIdentifier *int64 `json:"last_identifier_scanned,omitempty"`
	AcceptedCount  *int   `json:"accepted_record_count,omitempty"`

	LegacyIdentifier *int64 `json:"last_mediagate_id,omitempty"`
	LegacyCount      *int   `json:"roi_count,omitempty"`
}

// FileScanStore хранит чекпоинт и сопоставления в JSON-файлах каталога.
// Файл сопоставления именуется отметкой числа принятых записей и больше не меняется.
type FileScanStore struct {
	dir string
}

// NewFileScanStore создаёт хранилище в каталоге dir
func NewFileScanStore(dir string) *FileScanStore {
	return &FileScanStore{dir: dir}
}

// CheckpointPath путь к файлу чекпоинта
func (s *FileScanStore) CheckpointPath() string {
	return filepath.Join(s.dir, checkpointFile)
}

// MappingPath путь к файлу сопоставления для отметки count
func (s *FileScanStore) MappingPath(count int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%d.json", mappingFilePrefix, count))
}

// LoadCheckpoint читает чекпоинт
func (s *FileScanStore) LoadCheckpoint(ctx context.Context) (entity.Checkpoint, bool, error) {
	var doc checkpointDoc
	ok, err := readJSON(s.CheckpointPath(), &doc)
	if err != nil || !ok {
		return entity.Checkpoint{}, false, err
	}

	var cp entity.Checkpoint
	switch {
	case doc.LastIdentifier != nil:
		cp.LastIdentifier = *doc.LastIdentifier
	case doc.LegacyIdentifier != nil:
		cp.LastIdentifier = *doc.LegacyIdentifier
	default:
		return entity.Checkpoint{}, false, fmt.Errorf("storage: checkpoint without identifier")
	}
	switch {
	case doc.AcceptedCount != nil:
		cp.AcceptedCount = *doc.AcceptedCount
	case doc.LegacyCount != nil:
		cp.AcceptedCount = *doc.LegacyCount
	}
	return cp, true, nil
}

// LoadMapping читает сопоставление на отметке count.
// Отсутствующий файл для нулевой отметки даёт пустое сопоставление.
func (s *FileScanStore) LoadMapping(ctx context.Context, count int) (entity.ROIMapping, error) {
	mapping := entity.ROIMapping{}
	ok, err := readJSON(s.MappingPath(count), &mapping)
	if err != nil {
		return nil, err
	}
	if !ok {
		if count == 0 {
			return entity.ROIMapping{}, nil
		}
		return nil, fmt.Errorf("storage: mapping %d: %w", count, ErrMappingNotFound)
	}
	return mapping, nil
}

// Flush пишет сначала сопоставление, затем чекпоинт: чекпоинт никогда не ссылается
// на несуществующий файл.
func (s *FileScanStore) Flush(ctx context.Context, cp entity.Checkpoint, mapping entity.ROIMapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeJSONAtomic(s.MappingPath(cp.AcceptedCount), mapping); err != nil {
		return err
	}

	id, count := cp.LastIdentifier, cp.AcceptedCount
	return writeJSONAtomic(s.CheckpointPath(), checkpointDoc{LastIdentifier: &id, AcceptedCount: &count})
}

var _ port.ScanStore = (*FileScanStore)(nil)
