package entity

// Единицы и константы преобразования.
const (
	MillimetersPerInch = 25.4
	PointsPerInch      = 72.0
	DefaultDPI         = 300.0
)

// PointsToMillimeters переводит пункты (1/72 дюйма) в миллиметры.
func PointsToMillimeters(v float64) float64 {
	return v * MillimetersPerInch / PointsPerInch
}

// MillimetersToPoints обратное преобразование.
func MillimetersToPoints(v float64) float64 {
	return v * PointsPerInch / MillimetersPerInch
}

// MillimetersToPixels переводит миллиметры в пиксели растра с заданным DPI.
func MillimetersToPixels(v, dpi float64) float64 {
	return v * dpi / MillimetersPerInch
}

// PixelsToMillimeters обратное преобразование.
func PixelsToMillimeters(v, dpi float64) float64 {
	return v * MillimetersPerInch / dpi
}

// FlipVerticalOrigin переводит смещение y от нижнего края в смещение от верхнего:
// y' = mediaHeight - y - height. Высота прямоугольника вычитается после переворота.
func FlipVerticalOrigin(y, height, mediaHeight float64) float64 {
	return mediaHeight - y - height
}

// ToPercent нормирует пиксельный прямоугольник на фактические размеры изображения.
func ToPercent(r PhysicalRect, imageWidth, imageHeight int) PercentRect {
	w := float64(imageWidth)
	h := float64(imageHeight)
	return PercentRect{
		X: r.X / w,
		Y: r.Y / h,
		W: r.Width / w,
		H: r.Height / h,
	}
}
