package storage

import (
	"context"
	"fmt"
	"sync"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

// MemoryScanStore in-memory хранилище состояния сканера
type MemoryScanStore struct {
	mu         sync.RWMutex
	checkpoint *entity.Checkpoint
	mappings   map[int]entity.ROIMapping
	flushes    int
}

// NewMemoryScanStore создаёт новое in-memory хранилище
func NewMemoryScanStore() *MemoryScanStore {
	return &MemoryScanStore{
		mappings: make(map[int]entity.ROIMapping),
	}
}

// LoadCheckpoint возвращает последний сохранённый чекпоинт
func (s *MemoryScanStore) LoadCheckpoint(ctx context.Context) (entity.Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.checkpoint == nil {
		return entity.Checkpoint{}, false, nil
	}
	return *s.checkpoint, true, nil
}

// LoadMapping возвращает копию сопоставления на отметке count
func (s *MemoryScanStore) LoadMapping(ctx context.Context, count int) (entity.ROIMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[count]
	if !ok {
		if count == 0 {
			return entity.ROIMapping{}, nil
		}
		return nil, fmt.Errorf("mapping %d: %w", count, ErrMappingNotFound)
	}
	return m.Clone(), nil
}

// Flush сохраняет копию сопоставления и чекпоинт
func (s *MemoryScanStore) Flush(ctx context.Context, cp entity.Checkpoint, mapping entity.ROIMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mappings[cp.AcceptedCount] = mapping.Clone()
	s.checkpoint = &cp
	s.flushes++
	return nil
}

// Flushes возвращает число сохранений
func (s *MemoryScanStore) Flushes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flushes
}

// Проверка реализации интерфейса
var _ port.ScanStore = (*MemoryScanStore)(nil)
