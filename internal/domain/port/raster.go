package port

import "image"

// RasterProcessor операции декодирования, масштабирования и размытия
type RasterProcessor interface {
	// Dimensions возвращает фактические размеры декодированного изображения
	Dimensions(path string) (width, height int, err error)

	// ResizeSquare масштабирует изображение до dimension x dimension и пишет в dst
	ResizeSquare(src, dst string, dimension int) error

	// GaussianBlur размывает одноканальное изображение ядром ksize x ksize
	GaussianBlur(src *image.Gray, ksize int, sigma float64) (*image.Gray, error)

	// WriteGray кодирует одноканальное изображение по расширению dst
	WriteGray(dst string, img *image.Gray) error
}
