package aggregate

// Mode selects which extreme Extremal looks for.
type Mode string

const (
	Highest Mode = "highest"
	Lowest  Mode = "lowest"
)

// Extremal returns the bucket with the highest or lowest measure. Buckets are
// scanned in the order given and only a strictly better measure replaces the
// current best, so ties resolve to the earliest bucket. It reports false for
// an empty list or an unknown mode.
func Extremal(buckets []Bucket, mode Mode) (Bucket, bool) {
	i := extremalIndex(buckets, mode)
	if i < 0 {
		return Bucket{}, false
	}
	return buckets[i], true
}

func extremalIndex(buckets []Bucket, mode Mode) int {
	if mode != Highest && mode != Lowest {
		return -1
	}
	best := -1
	for i, b := range buckets {
		switch {
		case best < 0:
			best = i
		case mode == Highest && b.Measure > buckets[best].Measure:
			best = i
		case mode == Lowest && b.Measure < buckets[best].Measure:
			best = i
		}
	}
	return best
}
