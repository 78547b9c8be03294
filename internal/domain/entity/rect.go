package entity

import (
	"encoding/json"
	"fmt"
	"math"
)

// Unit единица измерения прямоугольника.
type Unit string

const (
	UnitPoints      Unit = "pt"
	UnitMillimeters Unit = "mm"
	UnitPixels      Unit = "px"
)

// Origin положение начала координат.
type Origin string

const (
	OriginBottomLeft Origin = "bottom_left"
	OriginTopLeft    Origin = "top_left"
)

// PhysicalRect прямоугольник в физических (или пиксельных) единицах.
type PhysicalRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Unit   Unit
	Origin Origin
}

// ToMillimeters переводит прямоугольник из пунктов в миллиметры.
func (r PhysicalRect) ToMillimeters() PhysicalRect {
	if r.Unit != UnitPoints {
		return r
	}
	return PhysicalRect{
		X:      PointsToMillimeters(r.X),
		Y:      PointsToMillimeters(r.Y),
		Width:  PointsToMillimeters(r.Width),
		Height: PointsToMillimeters(r.Height),
		Unit:   UnitMillimeters,
		Origin: r.Origin,
	}
}

// ToPixels переводит миллиметровый прямоугольник в пиксели.
func (r PhysicalRect) ToPixels(dpi float64) PhysicalRect {
	if r.Unit != UnitMillimeters {
		return r
	}
	return PhysicalRect{
		X:      MillimetersToPixels(r.X, dpi),
		Y:      MillimetersToPixels(r.Y, dpi),
		Width:  MillimetersToPixels(r.Width, dpi),
		Height: MillimetersToPixels(r.Height, dpi),
		Unit:   UnitPixels,
		Origin: r.Origin,
	}
}

// FlipToTopLeft переворачивает ось y относительно высоты носителя.
func (r PhysicalRect) FlipToTopLeft(mediaHeight float64) PhysicalRect {
	if r.Origin == OriginTopLeft {
		return r
	}
	out := r
	out.Y = FlipVerticalOrigin(r.Y, r.Height, mediaHeight)
	out.Origin = OriginTopLeft
	return out
}

// Size возвращает ширину и высоту.
func (r PhysicalRect) Size() [2]float64 {
	return [2]float64{r.Width, r.Height}
}

// Finite сообщает, что все компоненты конечны.
func (r PhysicalRect) Finite() bool {
	return finite(r.X, r.Y, r.Width, r.Height)
}

// Values возвращает [x, y, w, h] в порядке файлов выгрузки.
func (r PhysicalRect) Values() [4]float64 {
	return [4]float64{r.X, r.Y, r.Width, r.Height}
}

// MarshalJSON пишет прямоугольник как [x, y, w, h].
func (r PhysicalRect) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Values())
}

// UnmarshalJSON читает [x, y, w, h]; единицы всегда миллиметры, начало сверху слева.
func (r *PhysicalRect) UnmarshalJSON(data []byte) error {
	var v [4]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("rect: %w", err)
	}
	*r = PhysicalRect{X: v[0], Y: v[1], Width: v[2], Height: v[3], Unit: UnitMillimeters, Origin: OriginTopLeft}
	return nil
}

// PercentRect прямоугольник в долях размеров изображения.
type PercentRect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Valid проверяет, что компоненты конечны, начало лежит в [0, 1],
// а размеры неотрицательны. Выход за правый и нижний край обрезается при синтезе маски.
func (p PercentRect) Valid() bool {
	if !finite(p.X, p.Y, p.W, p.H) {
		return false
	}
	if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
		return false
	}
	return p.W >= 0 && p.H >= 0
}

// MarshalJSON пишет прямоугольник как [x, y, w, h].
func (p PercentRect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{p.X, p.Y, p.W, p.H})
}

// UnmarshalJSON читает [x, y, w, h].
func (p *PercentRect) UnmarshalJSON(data []byte) error {
	var v [4]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("percent rect: %w", err)
	}
	*p = PercentRect{X: v[0], Y: v[1], W: v[2], H: v[3]}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
