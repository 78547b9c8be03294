//go:build !gocv
// +build !gocv

package vision

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func TestProcessor_DimensionsAndResize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeJPEG(t, src, 40, 20)

	p := NewProcessor()
	w, h, err := p.Dimensions(src)
	require.NoError(t, err)
	require.Equal(t, 40, w)
	require.Equal(t, 20, h)

	dst := filepath.Join(dir, "out", "a.jpg")
	require.NoError(t, p.ResizeSquare(src, dst, 16))

	w, h, err = p.Dimensions(dst)
	require.NoError(t, err)
	require.Equal(t, 16, w)
	require.Equal(t, 16, h)
}

func TestProcessor_DecodeFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o644))

	p := NewProcessor()
	_, _, err := p.Dimensions(src)
	require.Error(t, err)
	require.Error(t, p.ResizeSquare(src, filepath.Join(dir, "out.jpg"), 8))
	require.NoFileExists(t, filepath.Join(dir, "out.jpg"))
}

func TestProcessor_WriteGray(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.Pix[5] = 255

	p := NewProcessor()
	require.NoError(t, p.WriteGray(filepath.Join(dir, "m.png"), img))
	require.FileExists(t, filepath.Join(dir, "m.png"))

	require.Error(t, p.WriteGray(filepath.Join(dir, "m.bmp"), img))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
