package storage

import (
	"context"
	"sort"
	"sync"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

// PercentCacheFile имя файла кэша по умолчанию.
const PercentCacheFile = "images_roi_percent_latest.json"

// FilePercentCache кэш ROI в долях, целиком переписываемый при каждом изменении.
// Запись сериализована мьютексом: файл не поддерживает частичное слияние.
type FilePercentCache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]entity.PercentRect
}

// OpenPercentCache загружает кэш из path (отсутствующий файл даёт пустой кэш)
func OpenPercentCache(path string) (*FilePercentCache, error) {
	entries := make(map[string]entity.PercentRect)
	if _, err := readJSON(path, &entries); err != nil {
		return nil, err
	}
	return &FilePercentCache{path: path, entries: entries}, nil
}

// Get возвращает запись по локальному пути
func (c *FilePercentCache) Get(localPath string) (entity.PercentRect, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[localPath]
	return r, ok
}

// Put сохраняет запись
func (c *FilePercentCache) Put(ctx context.Context, localPath string, rect entity.PercentRect) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[localPath] = rect
	return writeJSONAtomic(c.path, c.entries)
}

// Delete удаляет запись; файл переписывается и при отсутствии ключа
func (c *FilePercentCache) Delete(ctx context.Context, localPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, localPath)
	return writeJSONAtomic(c.path, c.entries)
}

// Keys возвращает отсортированные ключи
func (c *FilePercentCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ port.PercentCache = (*FilePercentCache)(nil)
