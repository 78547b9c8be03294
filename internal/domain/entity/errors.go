package entity

import "errors"

var (
	// ErrAssetMissing нет ни исходного файла, ни файла с заменённым расширением.
	ErrAssetMissing = errors.New("asset missing")
	// ErrMappingNotFound нет сохранённого сопоставления для отметки.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrMetadataUnreadable файл метаданных не читается или повреждён.
	ErrMetadataUnreadable = errors.New("metadata unreadable")
	// ErrMetadataIncomplete в метаданных нет обязательных разделов.
	ErrMetadataIncomplete = errors.New("metadata incomplete")
	// ErrSynthesis не удалось построить растр или маску.
	ErrSynthesis = errors.New("synthesis failure")
)
