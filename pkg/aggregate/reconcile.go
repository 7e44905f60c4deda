package aggregate

import (
	"fmt"
	"math"
)

// Source tells where a reconciled total came from.
type Source string

const (
	SourceSupplied Source = "supplied"
	SourceDerived  Source = "derived"
)

// DefaultHeadlineField is the summary total consulted when none is configured.
const DefaultHeadlineField = "total"

// WarnSummaryUnavailable is recorded whenever the derived total wins.
const WarnSummaryUnavailable = "summary unavailable or zero; derived from detail rows"

// Reconciliation is the authoritative total plus its provenance.
type Reconciliation struct {
	Total    float64
	Source   Source
	Warnings []string
}

// Policy chooses between a supplied headline total and one derived from rows.
type Policy struct {
	// Field is the summary total to use; empty means DefaultHeadlineField.
	Field string
}

func (p Policy) field() string {
	if p.Field == "" {
		return DefaultHeadlineField
	}
	return p.Field
}

// Reconcile prefers a strictly positive supplied total; anything else
// (absent summary, missing field, zero, negative, NaN) falls back to derived.
// Breakdowns are never taken from the summary.
func (p Policy) Reconcile(supplied *Summary, derived float64) Reconciliation {
	v, ok := supplied.Headline(p.field())
	if ok && v > 0 && !math.IsInf(v, 0) {
		rec := Reconciliation{Total: v, Source: SourceSupplied, Warnings: []string{}}
		if v < derived {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf(
				"summary %s %g is below detail total %g; shares capped at 100", p.field(), v, derived))
		}
		return rec
	}
	return Reconciliation{
		Total:    derived,
		Source:   SourceDerived,
		Warnings: []string{WarnSummaryUnavailable},
	}
}
