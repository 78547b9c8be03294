package vision

import (
	"fmt"
	"image"
	"math"
)

// gaussianKernel нормированное одномерное гауссово ядро.
func gaussianKernel(ksize int, sigma float64) ([]float64, error) {
	if ksize <= 0 || ksize%2 == 0 {
		return nil, fmt.Errorf("gaussian kernel size must be odd and positive, got %d", ksize)
	}
	if sigma <= 0 {
		// Та же формула, что у OpenCV при sigma <= 0.
		sigma = 0.3*(float64(ksize-1)*0.5-1) + 0.8
	}

	k := make([]float64, ksize)
	half := ksize / 2
	var sum float64
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k, nil
}

// reflect101 отражение индекса без повтора крайнего пикселя (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// blurGray раздельное гауссово размытие с округлением до 8 бит.
func blurGray(src *image.Gray, ksize int, sigma float64) (*image.Gray, error) {
	k, err := gaussianKernel(ksize, sigma)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return image.NewGray(b), nil
	}
	half := ksize / 2

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * float64(row[reflect101(x+i-half, w)])
			}
			tmp[y*w+x] = acc
		}
	}

	dst := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * tmp[reflect101(y+i-half, h)*w+x]
			}
			dst.Pix[y*dst.Stride+x] = clamp8(acc)
		}
	}
	return dst, nil
}

// clamp8 округляет в float64; OpenCV для 8U считает в фиксированной точке, значения могут отличаться на 1.
func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
