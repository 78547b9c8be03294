package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

// AssetSynchronizer держит локальные копии исходных изображений и их уменьшенные версии.
type AssetSynchronizer struct {
	localDir string
	raster   port.RasterProcessor
}

// NewAssetSynchronizer создаёт синхронизатор с каталогом локальных копий localDir.
func NewAssetSynchronizer(localDir string, raster port.RasterProcessor) *AssetSynchronizer {
	return &AssetSynchronizer{localDir: localDir, raster: raster}
}

// EnsureLocal возвращает путь локальной копии, копируя файл при необходимости.
// Копия называется по имени найденного исходника, поэтому при замене расширения
// возвращается путь с тем расширением, которое существует.
func (a *AssetSynchronizer) EnsureLocal(sourcePath string) (string, error) {
	swapped, canSwap := swapRasterExt(sourcePath)

	local := filepath.Join(a.localDir, filepath.Base(sourcePath))
	if fileExists(local) {
		return local, nil
	}
	if canSwap {
		if alt := filepath.Join(a.localDir, filepath.Base(swapped)); fileExists(alt) {
			return alt, nil
		}
	}

	src := sourcePath
	if !fileExists(src) {
		if !canSwap || !fileExists(swapped) {
			return "", fmt.Errorf("%s: %w", sourcePath, entity.ErrAssetMissing)
		}
		src = swapped
	}

	dst := filepath.Join(a.localDir, filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// EnsureResized пишет dimension x dimension копию в resizedDir, если её ещё нет.
// Пропорции не сохраняются: ROI в долях считается относительно того же квадрата.
func (a *AssetSynchronizer) EnsureResized(localPath, resizedDir string, dimension int) (string, error) {
	dst := filepath.Join(resizedDir, filepath.Base(localPath))
	if fileExists(dst) {
		return dst, nil
	}
	if err := a.raster.ResizeSquare(localPath, dst, dimension); err != nil {
		return "", fmt.Errorf("resize %s: %w: %v", filepath.Base(localPath), entity.ErrSynthesis, err)
	}
	return dst, nil
}

// copyFile побайтно копирует src в dst через временный файл.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create tmp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
