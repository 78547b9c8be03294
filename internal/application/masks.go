package app

import (
	"fmt"
	"image"
	"path/filepath"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

const (
	blurKernel = 5
	blurSigma  = 1.0
	maskOn     = 255
)

// MaskSynthesizer строит целевую маску: контур ROI, размытый и нормированный к 255.
type MaskSynthesizer struct {
	raster port.RasterProcessor
}

// NewMaskSynthesizer создаёт синтезатор масок
func NewMaskSynthesizer(raster port.RasterProcessor) *MaskSynthesizer {
	return &MaskSynthesizer{raster: raster}
}

// OutlineBounds переводит долевой прямоугольник в пиксели квадрата dimension и
// поджимает его так, чтобы он не касался последнего ряда пикселей.
// Возвращает включительные координаты левого верхнего угла и смещения до правого нижнего.
func OutlineBounds(p entity.PercentRect, dimension int) (x, y, w, h int) {
	d := float64(dimension)
	x, y = int(p.X*d), int(p.Y*d)
	w, h = int(p.W*d), int(p.H*d)

	if x+w >= dimension-1 {
		w = dimension - x - 2
	}
	if y+h >= dimension-1 {
		h = dimension - y - 2
	}
	return x, y, w, h
}

// RenderOutline рисует полый контур толщиной в один пиксель на нулевом холсте.
func RenderOutline(p entity.PercentRect, dimension int) *image.Gray {
	canvas := image.NewGray(image.Rect(0, 0, dimension, dimension))
	x, y, w, h := OutlineBounds(p, dimension)

	fill(canvas, x, y, x+w, y+h, maskOn)
	fill(canvas, x+1, y+1, x+w-1, y+h-1, 0)
	return canvas
}

// Synthesize строит маску: контур, гауссово размытие 5x5 (sigma 1), нормировка максимума к 255.
func (s *MaskSynthesizer) Synthesize(p entity.PercentRect, dimension int) (*image.Gray, error) {
	if dimension < 3 {
		return nil, fmt.Errorf("%w: dimension %d too small", entity.ErrSynthesis, dimension)
	}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: invalid percent rect %+v", entity.ErrSynthesis, p)
	}

	blurred, err := s.raster.GaussianBlur(RenderOutline(p, dimension), blurKernel, blurSigma)
	if err != nil {
		return nil, fmt.Errorf("%w: blur: %v", entity.ErrSynthesis, err)
	}
	return normalize(blurred), nil
}

// Write кодирует маску в maskDir под именем исходного изображения.
func (s *MaskSynthesizer) Write(maskDir, sourcePath string, mask *image.Gray) (string, error) {
	dst := filepath.Join(maskDir, filepath.Base(sourcePath))
	if err := s.raster.WriteGray(dst, mask); err != nil {
		return "", fmt.Errorf("%w: write mask: %v", entity.ErrSynthesis, err)
	}
	return dst, nil
}

// fill закрашивает включительный прямоугольник [x0..x1] x [y0..y1], обрезая его по холсту.
func fill(img *image.Gray, x0, y0, x1, y1 int, v uint8) {
	b := img.Bounds()
	x0, y0 = max(x0, b.Min.X), max(y0, b.Min.Y)
	x1, y1 = min(x1, b.Max.X-1), min(y1, b.Max.Y-1)
	for y := y0; y <= y1; y++ {
		row := img.Pix[y*img.Stride:]
		for x := x0; x <= x1; x++ {
			row[x] = v
		}
	}
}

// normalize делит на максимум и умножает на 255 с усечением в float64; нулевой холст не меняется.
func normalize(img *image.Gray) *image.Gray {
	var peak uint8
	for _, v := range img.Pix {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 || peak == maskOn {
		return img
	}

	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		out.Pix[i] = uint8(float64(v) / float64(peak) * maskOn)
	}
	return out
}
