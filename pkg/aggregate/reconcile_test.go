package aggregate

import (
	"math"
	"strings"
	"testing"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name     string
		supplied *Summary
		derived  float64
		total    float64
		source   Source
		warnings int
	}{
		{"supplied wins", &Summary{Totals: map[string]float64{"total": 120}}, 100, 120, SourceSupplied, 0},
		{"nil summary", nil, 100, 100, SourceDerived, 1},
		{"zero summary", &Summary{Totals: map[string]float64{"total": 0}}, 100, 100, SourceDerived, 1},
		{"negative summary", &Summary{Totals: map[string]float64{"total": -1}}, 100, 100, SourceDerived, 1},
		{"missing field", &Summary{Totals: map[string]float64{"households": 40}}, 100, 100, SourceDerived, 1},
		{"NaN summary", &Summary{Totals: map[string]float64{"total": math.NaN()}}, 100, 100, SourceDerived, 1},
		{"summary below detail", &Summary{Totals: map[string]float64{"total": 80}}, 100, 80, SourceSupplied, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Policy{}.Reconcile(tt.supplied, tt.derived)
			if got.Total != tt.total || got.Source != tt.source {
				t.Errorf("Reconcile = (%v, %s), want (%v, %s)", got.Total, got.Source, tt.total, tt.source)
			}
			if len(got.Warnings) != tt.warnings {
				t.Errorf("warnings = %v, want %d", got.Warnings, tt.warnings)
			}
			if tt.source == SourceDerived && got.Warnings[0] != WarnSummaryUnavailable {
				t.Errorf("warning = %q", got.Warnings[0])
			}
		})
	}
}

func TestReconcile_Field(t *testing.T) {
	s := &Summary{Totals: map[string]float64{"total": 10, "total_population": 500}}
	got := Policy{Field: "total_population"}.Reconcile(s, 300)
	if got.Total != 500 || got.Source != SourceSupplied {
		t.Errorf("Reconcile = %+v", got)
	}
}

func TestReconcile_BelowWarning(t *testing.T) {
	got := Policy{}.Reconcile(&Summary{Totals: map[string]float64{"total": 80}}, 100)
	if !strings.Contains(got.Warnings[0], "below detail total") {
		t.Errorf("warning = %q", got.Warnings[0])
	}
}
