package entity

import "sort"

// DefaultCadence число принятых записей между сохранениями чекпоинта.
const DefaultCadence = 100

// Checkpoint позиция сканера в пространстве идентификаторов.
type Checkpoint struct {
	LastIdentifier int64 `json:"last_identifier_scanned"`
	AcceptedCount  int   `json:"accepted_record_count"`
}

// ROIMapping путь исходного изображения -> ROI в миллиметрах (начало сверху слева).
type ROIMapping map[string]PhysicalRect

// Clone возвращает независимую копию.
func (m ROIMapping) Clone() ROIMapping {
	out := make(ROIMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys возвращает ключи в отсортированном порядке.
func (m ROIMapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ROIRecord одна принятая аннотация.
type ROIRecord struct {
	Identifier int64
	SourcePath string
	Rect       PhysicalRect
}
