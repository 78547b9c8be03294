package port

import (
	"context"

	"roi-harvester/internal/domain/entity"
)

// ScanStore долговременное хранилище состояния сканера
type ScanStore interface {
	// LoadCheckpoint возвращает последний чекпоинт; ok=false если его ещё нет
	LoadCheckpoint(ctx context.Context) (cp entity.Checkpoint, ok bool, err error)

	// LoadMapping возвращает сопоставление, сохранённое на отметке count
	LoadMapping(ctx context.Context, count int) (entity.ROIMapping, error)

	// Flush атомарно сохраняет сопоставление и чекпоинт
	Flush(ctx context.Context, cp entity.Checkpoint, mapping entity.ROIMapping) error
}

// PercentCache кэш ROI в долях изображения, ключ - локальный путь
type PercentCache interface {
	Get(localPath string) (entity.PercentRect, bool)

	// Put добавляет запись и перезаписывает файл кэша целиком
	Put(ctx context.Context, localPath string, rect entity.PercentRect) error

	// Delete удаляет запись и перезаписывает файл кэша целиком
	Delete(ctx context.Context, localPath string) error

	Keys() []string
}

// ScanLedger журнал исходов по каждому идентификатору
type ScanLedger interface {
	Record(ctx context.Context, id int64, res entity.Resolution) error
}

// MetadataReader читает ROI из сопутствующего файла метаданных
type MetadataReader interface {
	// ReadROI возвращает ROI в миллиметрах с началом сверху слева
	ReadROI(path string) (entity.PhysicalRect, error)
}
