//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"roi-harvester/internal/domain/port"
)

// Processor растровые операции на OpenCV.
type Processor struct{}

// NewProcessor создаёт процессор
func NewProcessor() *Processor {
	return &Processor{}
}

// Dimensions декодирует изображение и возвращает его размеры.
func (p *Processor) Dimensions(path string) (int, int, error) {
	mat, err := readMat(path, gocv.IMReadUnchanged)
	if err != nil {
		return 0, 0, err
	}
	defer mat.Close()

	return mat.Cols(), mat.Rows(), nil
}

// ResizeSquare масштабирует до dimension x dimension без сохранения пропорций.
func (p *Processor) ResizeSquare(src, dst string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	mat, err := readMat(src, gocv.IMReadColor)
	if err != nil {
		return err
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(dimension, dimension), 0, 0, gocv.InterpolationLinear)

	img, err := resized.ToImage()
	if err != nil {
		return fmt.Errorf("mat to image: %w", err)
	}
	return writeImage(dst, img)
}

// GaussianBlur размывает изображение ядром ksize x ksize.
func (p *Processor) GaussianBlur(src *image.Gray, ksize int, sigma float64) (*image.Gray, error) {
	mat, err := gocv.ImageGrayToMatGray(src)
	if err != nil {
		return nil, fmt.Errorf("gray to mat: %w", err)
	}
	defer mat.Close()

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(mat, &blur, image.Pt(ksize, ksize), sigma, sigma, gocv.BorderReflect101)

	img, err := blur.ToImage()
	if err != nil {
		return nil, fmt.Errorf("mat to image: %w", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected blurred image type %T", img)
	}
	return gray, nil
}

// WriteGray кодирует одноканальное изображение.
func (p *Processor) WriteGray(dst string, img *image.Gray) error {
	return writeImage(dst, img)
}

// readMat читает файл в gocv.Mat.
func readMat(path string, flags gocv.IMReadFlag) (gocv.Mat, error) {
	mat := gocv.IMRead(path, flags)
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errors.New("failed to decode image")
	}
	return mat, nil
}

var _ port.RasterProcessor = (*Processor)(nil)
