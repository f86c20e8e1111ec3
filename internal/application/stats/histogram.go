package stats

import (
	"math"

	"github.com/razor389/prop-simulator/internal/domain"
)

// DefaultBins es el número de buckets del histograma de balances.
const DefaultBins = 50

// Histogram reparte values en bins buckets de igual ancho entre el mínimo y
// el máximo. El último bucket es cerrado por arriba. Si todos los valores son
// iguales devuelve un único bucket.
func Histogram(values []float64, bins int) []domain.HistogramBin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []domain.HistogramBin{{Lower: lo, Upper: hi, Count: len(values), Percent: 100}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]domain.HistogramBin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	for i := range out {
		out[i].Percent = percent(out[i].Count, len(values))
	}
	return out
}
