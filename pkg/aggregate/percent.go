package aggregate

import "math"

// DefaultDecimals is the rounding precision for percentage shares.
const DefaultDecimals = 2

// Percentage returns part as a share of whole, rounded to decimals and kept
// within [0, 100]. A non-positive whole yields 0. Shares of a partition are
// rounded independently and may not add up to exactly 100.
func Percentage(part, whole float64, decimals int) float64 {
	if !(whole > 0) || math.IsInf(whole, 0) || !(part > 0) {
		return 0
	}
	if decimals < 0 {
		decimals = 0
	}
	scale := math.Pow(10, float64(decimals))
	p := math.Round(part/whole*100*scale) / scale
	return math.Min(p, 100)
}
