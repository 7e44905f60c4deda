package aggregate

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMarkers are the reserved labels meaning "all categories combined".
var DefaultMarkers = []string{"total", "all"}

// DefaultMarkerDimensions are the dimensions that may carry a marker label.
var DefaultMarkerDimensions = []string{DimCategory, DimAgeGroup}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldLabel lowercases a label and strips accents so that "TOTAL", "Total" and
// "Tötal" compare equal.
func FoldLabel(s string) string {
	folded, _, _ := transform.String(foldAccents, strings.ToLower(strings.TrimSpace(s)))
	return folded
}

// Normalizer cleans raw rows before aggregation.
type Normalizer struct {
	// Required dimensions must be present and non-blank; rows lacking one are dropped.
	Required []string
	// MarkerDimensions are checked against Markers; nil means DefaultMarkerDimensions.
	MarkerDimensions []string
	// Markers are the reserved "grand total" labels; nil means DefaultMarkers.
	Markers []string
}

// Normalize drops malformed and marker rows and coerces unusable measures to
// zero. Warnings follow input order. It never fails.
func (n Normalizer) Normalize(rows []Row) ([]Row, []string) {
	clean := make([]Row, 0, len(rows))
	warnings := []string{}

	markers := n.markerSet()
	markerDims := n.MarkerDimensions
	if markerDims == nil {
		markerDims = DefaultMarkerDimensions
	}

	for i, row := range rows {
		dims := make(map[string]string, len(row.Dimensions))
		for k, v := range row.Dimensions {
			dims[k] = strings.TrimSpace(v)
		}
		cleaned := Row{Dimensions: dims, Measure: row.Measure}

		if missing := n.missingDimension(dims); missing != "" {
			warnings = append(warnings, fmt.Sprintf("row %d (%s): missing dimension %q, dropped", i, cleaned.describe(), missing))
			continue
		}
		if isMarker(dims, markerDims, markers) {
			continue
		}

		v, ok := row.Measure.Value()
		switch {
		case row.Measure.IsMissing():
			warnings = append(warnings, fmt.Sprintf("row %d (%s): measure missing, counted as 0", i, cleaned.describe()))
			cleaned.Measure = Count(0)
		case !ok:
			warnings = append(warnings, fmt.Sprintf("row %d (%s): measure %q is not numeric, counted as 0", i, cleaned.describe(), row.Measure.Raw()))
			cleaned.Measure = Count(0)
		case v < 0:
			warnings = append(warnings, fmt.Sprintf("row %d (%s): measure %g is negative, counted as 0", i, cleaned.describe(), v))
			cleaned.Measure = Count(0)
		}
		clean = append(clean, cleaned)
	}
	return clean, warnings
}

func (n Normalizer) missingDimension(dims map[string]string) string {
	for _, name := range n.Required {
		if dims[name] == "" {
			return name
		}
	}
	return ""
}

func (n Normalizer) markerSet() map[string]bool {
	labels := n.Markers
	if labels == nil {
		labels = DefaultMarkers
	}
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[FoldLabel(l)] = true
	}
	return set
}

func isMarker(dims map[string]string, markerDims []string, markers map[string]bool) bool {
	for _, d := range markerDims {
		if v, ok := dims[d]; ok && markers[FoldLabel(v)] {
			return true
		}
	}
	return false
}
