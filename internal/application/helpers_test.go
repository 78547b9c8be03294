package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

// pageBoxXML media 48pt высотой, trim 36x24pt со смещением 7.2pt.
const pageBoxXML = `<job><pageboxes>
<media><offsetx>0</offsetx><offsety>0</offsety><height>48</height></media>
<trim><offsetx>7.2</offsetx><offsety>7.2</offsety><width>36</width><height>24</height></trim>
</pageboxes></job>`

// trustedSize размеры trim в миллиметрах.
var trustedSize = [2]float64{12.7, 8.4667}

type fakeCatalog struct {
	mu      sync.Mutex
	infos   map[int64]*port.FileInfo
	sizes   map[int64][2]float64
	failing map[int64]bool
	// unregistered id отсутствуют в реестре деталей
	unregistered map[int64]bool
	calls        int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		infos:        make(map[int64]*port.FileInfo),
		sizes:        make(map[int64][2]float64),
		failing:      make(map[int64]bool),
		unregistered: make(map[int64]bool),
	}
}

func (c *fakeCatalog) FileInfo(ctx context.Context, id int64) (*port.FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failing[id] {
		return nil, errors.New("connection refused")
	}
	info, ok := c.infos[id]
	if !ok {
		return &port.FileInfo{}, nil
	}
	return info, nil
}

func (c *fakeCatalog) TrustedSize(ctx context.Context, id int64) ([2]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unregistered[id] {
		return [2]float64{}, errors.New("details: empty result")
	}
	return c.sizes[id], nil
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

type fakeLedger struct {
	mu      sync.Mutex
	records map[int64]entity.Reason
}

func (l *fakeLedger) Record(ctx context.Context, id int64, res entity.Resolution) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.records == nil {
		l.records = make(map[int64]entity.Reason)
	}
	l.records[id] = res.Reason
	return nil
}

type fakeNotifier struct {
	texts []string
}

func (n *fakeNotifier) Notify(ctx context.Context, text string) error {
	n.texts = append(n.texts, text)
	return nil
}
