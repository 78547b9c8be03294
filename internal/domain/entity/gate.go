package entity

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultTolerance допустимое относительное расхождение размеров.
const DefaultTolerance = 0.02

// ConsistencyGate сверяет размеры ROI с размерами из доверенного реестра.
type ConsistencyGate struct {
	Tolerance float64
}

// NewConsistencyGate создаёт проверку с заданным допуском (<= 0 означает допуск по умолчанию).
func NewConsistencyGate(tolerance float64) ConsistencyGate {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return ConsistencyGate{Tolerance: tolerance}
}

// Accepts сравнивает большие стороны между собой и меньшие между собой,
// поэтому ориентация (портрет/альбом) не влияет на результат.
// Пустой доверенный размер (0, 0) отклоняется всегда.
func (g ConsistencyGate) Accepts(candidate, trusted [2]float64) bool {
	if trusted[0] == 0 && trusted[1] == 0 {
		return false
	}
	c := candidate[:]
	t := trusted[:]
	if !finite(append(append([]float64{}, c...), t...)...) {
		return false
	}

	diffMax := relativeDiff(floats.Max(c), floats.Max(t))
	diffMin := relativeDiff(floats.Min(c), floats.Min(t))
	return diffMax < g.Tolerance && diffMin < g.Tolerance
}

func relativeDiff(candidate, trusted float64) float64 {
	if trusted == 0 {
		return math.Inf(1)
	}
	return math.Abs((candidate - trusted) / trusted)
}
