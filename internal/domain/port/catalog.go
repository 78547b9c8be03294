package port

import "context"

// FileInfo дескриптор файла из удалённого каталога.
type FileInfo struct {
	ImagePath string // путь относительно корня хранилища
	FileType  string // классификация, например "daily"
}

// Catalog удалённый каталог изображений
type Catalog interface {
	// FileInfo возвращает дескриптор файла по идентификатору
	FileInfo(ctx context.Context, id int64) (*FileInfo, error)

	// TrustedSize возвращает ширину и высоту из доверенного реестра (мм), (0, 0) если данных нет
	TrustedSize(ctx context.Context, id int64) ([2]float64, error)
}
