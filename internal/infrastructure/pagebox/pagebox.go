// Package pagebox читает сопутствующий XML-файл с геометрией страницы.
//
// Ожидаемая структура (все значения в пунктах, начало координат снизу слева):
//
//	<job>
//	  <pageboxes>
//	    <media><offsetx/><offsety/><height/></media>
//	    <trim><offsetx/><offsety/><width/><height/></trim>
//	  </pageboxes>
//	</job>
package pagebox

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

var (
	// ErrUnreadable файл не читается или не является корректным XML.
	ErrUnreadable = entity.ErrMetadataUnreadable
	// ErrIncomplete нет одного из обязательных разделов или полей.
	ErrIncomplete = entity.ErrMetadataIncomplete
)

// Media рамка носителя.
type Media struct {
	OffsetX float64
	OffsetY float64
	Height  float64
}

// Trim обрезная рамка.
type Trim struct {
	OffsetX float64
	OffsetY float64
	Width   float64
	Height  float64
}

// Boxes разобранные рамки страницы.
type Boxes struct {
	Media Media
	Trim  Trim
}

// TrimRect возвращает обрезную рамку относительно рамки носителя (пункты, снизу слева).
func (b Boxes) TrimRect() entity.PhysicalRect {
	return entity.PhysicalRect{
		X:      b.Trim.OffsetX - b.Media.OffsetX,
		Y:      b.Trim.OffsetY - b.Media.OffsetY,
		Width:  b.Trim.Width,
		Height: b.Trim.Height,
		Unit:   entity.UnitPoints,
		Origin: entity.OriginBottomLeft,
	}
}

// ROI возвращает обрезную рамку в миллиметрах с началом сверху слева.
func (b Boxes) ROI() entity.PhysicalRect {
	mediaHeight := entity.PointsToMillimeters(b.Media.Height)
	return b.TrimRect().ToMillimeters().FlipToTopLeft(mediaHeight)
}

type document struct {
	PageBoxes *struct {
		Media *struct {
			OffsetX *string `xml:"offsetx"`
			OffsetY *string `xml:"offsety"`
			Height  *string `xml:"height"`
		} `xml:"media"`
		Trim *struct {
			OffsetX *string `xml:"offsetx"`
			OffsetY *string `xml:"offsety"`
			Width   *string `xml:"width"`
			Height  *string `xml:"height"`
		} `xml:"trim"`
	} `xml:"pageboxes"`
}

// Reader читает ROI из файлов метаданных.
type Reader struct{}

// NewReader создаёт читатель
func NewReader() *Reader {
	return &Reader{}
}

// ReadROI возвращает обрезную рамку в миллиметрах с началом сверху слева.
func (r *Reader) ReadROI(path string) (entity.PhysicalRect, error) {
	b, err := ParseFile(path)
	if err != nil {
		return entity.PhysicalRect{}, err
	}
	roi := b.ROI()
	if !roi.Finite() {
		return entity.PhysicalRect{}, fmt.Errorf("%w: non-finite geometry", ErrIncomplete)
	}
	return roi, nil
}

var _ port.MetadataReader = (*Reader)(nil)

// ParseFile читает и разбирает файл
func ParseFile(path string) (*Boxes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return Parse(data)
}

// Parse разбирает содержимое файла
func Parse(data []byte) (*Boxes, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	pb := doc.PageBoxes
	if pb == nil || pb.Media == nil || pb.Trim == nil {
		return nil, fmt.Errorf("%w: pageboxes/media/trim required", ErrIncomplete)
	}

	var b Boxes
	fields := []struct {
		name string
		raw  *string
		dst  *float64
	}{
		{"media/offsetx", pb.Media.OffsetX, &b.Media.OffsetX},
		{"media/offsety", pb.Media.OffsetY, &b.Media.OffsetY},
		{"media/height", pb.Media.Height, &b.Media.Height},
		{"trim/offsetx", pb.Trim.OffsetX, &b.Trim.OffsetX},
		{"trim/offsety", pb.Trim.OffsetY, &b.Trim.OffsetY},
		{"trim/width", pb.Trim.Width, &b.Trim.Width},
		{"trim/height", pb.Trim.Height, &b.Trim.Height},
	}
	for _, f := range fields {
		if f.raw == nil {
			return nil, fmt.Errorf("%w: %s missing", ErrIncomplete, f.name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(*f.raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrIncomplete, f.name, err)
		}
		*f.dst = v
	}
	return &b, nil
}
