package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Well-known dimension names used by the municipal datasets.
const (
	DimWard     = "ward"
	DimCategory = "category"
	DimGender   = "gender"
	DimAgeGroup = "age_group"
)

type quantityState uint8

const (
	quantityMissing quantityState = iota
	quantityValid
	quantityMalformed
)

// Quantity is a row measure as read from a source. It remembers whether the
// source value was a number, absent, or unusable.
type Quantity struct {
	value float64
	raw   string
	state quantityState
}

// Count returns a valid quantity. NaN and infinities are recorded as malformed.
func Count(v float64) Quantity {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Quantity{raw: strconv.FormatFloat(v, 'g', -1, 64), state: quantityMalformed}
	}
	return Quantity{value: v, state: quantityValid}
}

// Missing returns an absent quantity.
func Missing() Quantity {
	return Quantity{}
}

// thousands matches a number whose integer part is grouped by commas, e.g.
// "1,200" or "-12,345.5". A decimal comma ("12,5") does not match.
var thousands = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)

// ParseQuantity reads a measure from text. Blank text is missing. Commas are
// accepted only as thousands separators; anything else with a comma is
// malformed.
func ParseQuantity(s string) Quantity {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing()
	}
	num := s
	if strings.Contains(s, ",") {
		if !thousands.MatchString(s) {
			return Quantity{raw: s, state: quantityMalformed}
		}
		num = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Quantity{raw: s, state: quantityMalformed}
	}
	q := Count(v)
	if q.state == quantityMalformed {
		q.raw = s
	}
	return q
}

// Value returns the numeric value and whether it is usable.
func (q Quantity) Value() (float64, bool) {
	return q.value, q.state == quantityValid
}

// IsMissing reports whether the source had no value at all.
func (q Quantity) IsMissing() bool { return q.state == quantityMissing }

// Raw returns the source text of a malformed quantity.
func (q Quantity) Raw() string { return q.raw }

// String returns the text form used in storage; missing quantities are empty.
func (q Quantity) String() string {
	switch q.state {
	case quantityValid:
		return strconv.FormatFloat(q.value, 'f', -1, 64)
	case quantityMalformed:
		return q.raw
	default:
		return ""
	}
}

// MarshalJSON writes valid quantities as numbers, missing as null, and
// malformed ones as their original text.
func (q Quantity) MarshalJSON() ([]byte, error) {
	switch q.state {
	case quantityValid:
		return json.Marshal(q.value)
	case quantityMalformed:
		return json.Marshal(q.raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts numbers, numeric strings and null. Any other JSON
// value decodes to a malformed quantity instead of failing the whole payload.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*q = Missing()
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = ParseQuantity(s)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			*q = Quantity{raw: string(data), state: quantityMalformed}
			return nil
		}
		*q = Count(f)
	}
	return nil
}

// Dimensions maps dimension names to discrete values.
type Dimensions map[string]string

// UnmarshalJSON accepts string, number and boolean values, so `"ward": 3`
// reads as ward "3". Null, objects and arrays leave the dimension absent; a
// row missing a grouped dimension is then dropped by the normalizer.
func (d *Dimensions) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*d = nil
		return nil
	}
	dims := make(Dimensions, len(raw))
	for name, v := range raw {
		switch x := v.(type) {
		case string:
			dims[name] = x
		case float64:
			dims[name] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			dims[name] = strconv.FormatBool(x)
		}
	}
	*d = dims
	return nil
}

// Row is one observed count (a measurement row) keyed by its dimensions.
type Row struct {
	Dimensions Dimensions `json:"dimensions"`
	Measure    Quantity   `json:"measure"`
}

// NewRow builds a row with a valid measure.
func NewRow(measure float64, dims ...string) Row {
	r := Row{Dimensions: make(Dimensions, len(dims)/2), Measure: Count(measure)}
	for i := 0; i+1 < len(dims); i += 2 {
		r.Dimensions[dims[i]] = dims[i+1]
	}
	return r
}

// Dimension returns the value of a dimension, or "" when absent.
func (r Row) Dimension(name string) string {
	return r.Dimensions[name]
}

// value is the measure of a normalized row.
func (r Row) value() float64 {
	v, _ := r.Measure.Value()
	return v
}

// describe formats the row's dimensions sorted by name, e.g. "category=A, ward=1".
func (r Row) describe() string {
	names := make([]string, 0, len(r.Dimensions))
	for name := range r.Dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + r.Dimensions[name]
	}
	return strings.Join(parts, ", ")
}

// Summary is a set of pre-computed headline totals for a dataset, fetched
// independently of the detail rows.
type Summary struct {
	Totals    map[string]float64 `json:"totals"`
	Origin    string             `json:"origin,omitempty"`
	FetchedAt time.Time          `json:"fetched_at,omitempty"`
}

// Headline returns the named total, if present.
func (s *Summary) Headline(field string) (float64, bool) {
	if s == nil || s.Totals == nil {
		return 0, false
	}
	v, ok := s.Totals[field]
	return v, ok
}

// String is used in log lines.
func (s *Summary) String() string {
	if s == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s %v", s.Origin, s.Totals)
}
