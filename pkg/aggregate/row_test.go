package aggregate

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input   string
		value   float64
		ok      bool
		missing bool
	}{
		{"12", 12, true, false},
		{" 1,250 ", 1250, true, false},
		{"3.5", 3.5, true, false},
		{"1,234,567", 1234567, true, false},
		{"-1,000.5", -1000.5, true, false},
		{"12,5", 0, false, false},
		{"1,25,000", 0, false, false},
		{",500", 0, false, false},
		{"", 0, false, true},
		{"abc", 0, false, false},
		{"NaN", 0, false, false},
		{"Inf", 0, false, false},
	}
	for _, tt := range tests {
		q := ParseQuantity(tt.input)
		v, ok := q.Value()
		if ok != tt.ok || (ok && v != tt.value) || q.IsMissing() != tt.missing {
			t.Errorf("ParseQuantity(%q) = (%v, %v, missing=%v), want (%v, %v, missing=%v)",
				tt.input, v, ok, q.IsMissing(), tt.value, tt.ok, tt.missing)
		}
	}
}

func TestCount_RejectsNaN(t *testing.T) {
	if _, ok := Count(math.NaN()).Value(); ok {
		t.Error("Count(NaN) should not be valid")
	}
	if _, ok := Count(math.Inf(1)).Value(); ok {
		t.Error("Count(+Inf) should not be valid")
	}
}

func TestQuantity_JSON(t *testing.T) {
	var rows []Row
	payload := `[
		{"dimensions":{"ward":"1"},"measure":10},
		{"dimensions":{"ward":"2"},"measure":"7"},
		{"dimensions":{"ward":"3"},"measure":null},
		{"dimensions":{"ward":"4"}},
		{"dimensions":{"ward":"5"},"measure":"seven"},
		{"dimensions":{"ward":"6"},"measure":true}
	]`
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v, ok := rows[0].Measure.Value(); !ok || v != 10 {
		t.Errorf("row 0 = %v %v", v, ok)
	}
	if v, ok := rows[1].Measure.Value(); !ok || v != 7 {
		t.Errorf("row 1 = %v %v", v, ok)
	}
	if !rows[2].Measure.IsMissing() || !rows[3].Measure.IsMissing() {
		t.Error("null and absent measures should be missing")
	}
	if rows[4].Measure.Raw() != "seven" {
		t.Errorf("row 4 raw = %q", rows[4].Measure.Raw())
	}
	if _, ok := rows[5].Measure.Value(); ok || rows[5].Measure.IsMissing() {
		t.Error("boolean measure should be malformed")
	}

	out, err := json.Marshal(rows[:3])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `[{"dimensions":{"ward":"1"},"measure":10},{"dimensions":{"ward":"2"},"measure":7},{"dimensions":{"ward":"3"},"measure":null}]`
	if string(out) != want {
		t.Errorf("Marshal = %s\nwant %s", out, want)
	}
}

func TestSummary_Headline(t *testing.T) {
	var nilSummary *Summary
	if _, ok := nilSummary.Headline("total"); ok {
		t.Error("nil summary should have no headline")
	}
	s := &Summary{Totals: map[string]float64{"total": 120}}
	if v, ok := s.Headline("total"); !ok || v != 120 {
		t.Errorf("Headline = %v %v", v, ok)
	}
}

func TestRowUnmarshal_ScalarDimensions(t *testing.T) {
	data := `[{"dimensions":{"ward":3,"category":"A","urban":true,"age_group":null},"measure":10},
		{"dimensions":{"ward":12.5,"category":{"x":1}},"measure":4}]`
	var rows []Row
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Dimension(DimWard) != "3" || rows[0].Dimension(DimCategory) != "A" || rows[0].Dimension("urban") != "true" {
		t.Errorf("row 0 dimensions = %v", rows[0].Dimensions)
	}
	if _, ok := rows[0].Dimensions[DimAgeGroup]; ok {
		t.Error("null dimension should be absent")
	}
	if rows[1].Dimension(DimWard) != "12.5" {
		t.Errorf("row 1 ward = %q, want 12.5", rows[1].Dimension(DimWard))
	}
	if _, ok := rows[1].Dimensions[DimCategory]; ok {
		t.Error("object dimension should be absent")
	}
}

func TestEngine_NumericWardFromJSON(t *testing.T) {
	data := `[{"dimensions":{"ward":3,"category":"A"},"measure":10},
		{"dimensions":{"ward":"3","category":"B"},"measure":5},
		{"dimensions":{"ward":4,"category":[1]},"measure":7}]`
	var rows []Row
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	res := NewEngine().Compute(rows, nil, []string{DimWard, DimCategory})
	if len(res.Breakdown) != 2 || res.Total != 15 {
		t.Fatalf("breakdown = %+v total = %v, want 2 buckets totalling 15", res.Breakdown, res.Total)
	}
	// summary warning plus the dropped row
	if len(res.Warnings) != 2 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}
