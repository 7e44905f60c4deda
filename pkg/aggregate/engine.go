// Package aggregate turns raw dimensional counts into totals, percentage
// shares and highest/lowest entries, reconciling the total against an
// independently fetched summary.
//
// Everything in this package is pure: no I/O, no shared state. An Engine may
// be used from many goroutines at once.
package aggregate

import (
	"fmt"
	"math"
	"slices"
)

// WarnNoData is recorded when no usable detail rows remain.
const WarnNoData = "no data"

// WarnOverflow is recorded when a measure sum exceeds the float64 range and
// is capped at math.MaxFloat64.
const WarnOverflow = "detail sum out of range, capped"

// Statistic is one breakdown entry of a Result.
type Statistic struct {
	Key        Key     `json:"key"`
	Measure    float64 `json:"measure"`
	Percentage float64 `json:"percentage_of_whole"`
	Rows       int     `json:"rows"`
	IsHighest  bool    `json:"is_highest"`
	IsLowest   bool    `json:"is_lowest"`
}

// Result is the output of one engine run.
type Result struct {
	Total     float64     `json:"total"`
	Source    Source      `json:"source"`
	Breakdown []Statistic `json:"breakdown"`
	Highest   *Statistic  `json:"highest"`
	Lowest    *Statistic  `json:"lowest"`
	Warnings  []string    `json:"warnings"`
}

// Request bundles the inputs of Run.
type Request struct {
	Rows    []Row
	Summary *Summary
	GroupBy []string
	Sort    SortOrder
}

// Engine runs normalize, aggregate, reconcile, score in that order.
type Engine struct {
	// Markers and MarkerDimensions configure grand-total row exclusion; nil
	// means the package defaults.
	Markers          []string
	MarkerDimensions []string
	Policy           Policy
	Decimals         int
}

// NewEngine returns an engine with default markers, the "total" headline field
// and two-decimal percentages.
func NewEngine() Engine {
	return Engine{Decimals: DefaultDecimals}
}

// Compute aggregates rows by groupBy and reconciles the total with supplied.
func (e Engine) Compute(rows []Row, supplied *Summary, groupBy []string) Result {
	return e.Run(Request{Rows: rows, Summary: supplied, GroupBy: groupBy})
}

// Run executes one computation. It never fails: bad input degrades to zeroed,
// warning-annotated output.
func (e Engine) Run(req Request) Result {
	// Normalized
	norm := Normalizer{Required: req.GroupBy, Markers: e.Markers, MarkerDimensions: e.MarkerDimensions}
	clean, warnings := norm.Normalize(req.Rows)

	// Aggregated
	buckets := Aggregate(clean, req.GroupBy)

	derived, overflow := capOverflow(buckets)
	warnings = append(warnings, overflow...)

	// Reconciled
	rec := e.Policy.Reconcile(req.Summary, derived)
	if len(buckets) == 0 {
		if rec.Source == SourceDerived {
			rec.Warnings = nil
		}
		rec.Warnings = append(rec.Warnings, WarnNoData)
	}
	warnings = append(warnings, rec.Warnings...)

	// Scored
	stats := make([]Statistic, len(buckets))
	for i, b := range buckets {
		stats[i] = Statistic{
			Key:        b.Key,
			Measure:    b.Measure,
			Percentage: Percentage(b.Measure, rec.Total, e.Decimals),
			Rows:       b.Rows,
		}
	}
	hi, lo := extremalIndex(buckets, Highest), extremalIndex(buckets, Lowest)
	if hi >= 0 {
		stats[hi].IsHighest = true
		stats[lo].IsLowest = true
	}

	// Done
	res := Result{
		Total:    rec.Total,
		Source:   rec.Source,
		Warnings: warnings,
	}
	if hi >= 0 {
		h, l := stats[hi], stats[lo]
		res.Highest, res.Lowest = &h, &l
	}
	res.Breakdown = sortStatistics(stats, req.Sort)
	return res
}

// sortStatistics applies an explicit sort to the breakdown. Extremes are
// already marked, so ordering does not affect them.
func sortStatistics(stats []Statistic, order SortOrder) []Statistic {
	if order == "" || order == SortNone || len(stats) < 2 {
		return stats
	}
	buckets := make([]Bucket, len(stats))
	for i, s := range stats {
		buckets[i] = Bucket{Key: s.Key, Measure: s.Measure, Rows: s.Rows}
	}
	perm := make([]int, len(stats))
	for i := range perm {
		perm[i] = i
	}
	less := bucketCompare(order)
	if less == nil {
		return stats
	}
	slices.SortStableFunc(perm, func(a, b int) int { return less(buckets[a], buckets[b]) })

	out := make([]Statistic, len(perm))
	for i, j := range perm {
		out[i] = stats[j]
	}
	return out
}

// capOverflow clamps bucket measures and their sum to the finite float64
// range, so that results always encode as JSON.
func capOverflow(buckets []Bucket) (float64, []string) {
	var warnings []string
	for i := range buckets {
		if math.IsInf(buckets[i].Measure, 1) {
			buckets[i].Measure = math.MaxFloat64
			warnings = append(warnings, fmt.Sprintf("bucket (%s): %s", buckets[i].Key, WarnOverflow))
		}
	}
	total := Sum(buckets)
	if math.IsInf(total, 1) {
		total = math.MaxFloat64
		warnings = append(warnings, "total: "+WarnOverflow)
	}
	return total, warnings
}
