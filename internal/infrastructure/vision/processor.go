//go:build !gocv
// +build !gocv

package vision

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"roi-harvester/internal/domain/port"
)

// Processor растровые операции на чистом Go (сборка без тега gocv).
type Processor struct{}

// NewProcessor создаёт процессор
func NewProcessor() *Processor {
	return &Processor{}
}

// Dimensions читает размеры из заголовка изображения.
func (p *Processor) Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, errors.New("empty image")
	}
	return cfg.Width, cfg.Height, nil
}

// ResizeSquare билинейно масштабирует до dimension x dimension без сохранения пропорций.
func (p *Processor) ResizeSquare(src, dst string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	img, err := decodeFile(src)
	if err != nil {
		return err
	}

	out := image.NewRGBA(image.Rect(0, 0, dimension, dimension))
	draw.BiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)

	return writeImage(dst, out)
}

// GaussianBlur размывает изображение с отражением границ (BORDER_REFLECT_101).
func (p *Processor) GaussianBlur(src *image.Gray, ksize int, sigma float64) (*image.Gray, error) {
	return blurGray(src, ksize, sigma)
}

// WriteGray кодирует одноканальное изображение.
func (p *Processor) WriteGray(dst string, img *image.Gray) error {
	return writeImage(dst, img)
}

// decodeFile декодирует изображение с диска.
func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}
	return img, nil
}

var _ port.RasterProcessor = (*Processor)(nil)
