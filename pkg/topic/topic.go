package topic

import (
	"path/filepath"
	"strings"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
)

// Topic is a loaded manifest plus lookup tables keyed by folded label.
type Topic struct {
	Manifest *Manifest
	Dir      string
	labels   map[string]string
	colors   map[string]string
}

// New indexes a manifest. dir is where relative source locations resolve.
func New(m *Manifest, dir string) *Topic {
	t := &Topic{
		Manifest: m,
		Dir:      dir,
		labels:   make(map[string]string, len(m.Labels)),
		colors:   make(map[string]string, len(m.Colors)),
	}
	for k, v := range m.Labels {
		t.labels[aggregate.FoldLabel(k)] = v
	}
	for k, v := range m.Colors {
		t.colors[aggregate.FoldLabel(k)] = v
	}
	return t
}

// ID returns the topic identifier.
func (t *Topic) ID() string { return t.Manifest.ID }

// Label returns the display label for a dimension value, or the value itself.
func (t *Topic) Label(value string) string {
	if l, ok := t.labels[aggregate.FoldLabel(value)]; ok {
		return l
	}
	return value
}

// Color returns the palette colour for a dimension value, or "".
func (t *Topic) Color(value string) string {
	return t.colors[aggregate.FoldLabel(value)]
}

// HasDimension reports whether name is one of the topic's dimensions.
func (t *Topic) HasDimension(name string) bool {
	return contains(t.Manifest.Dimensions, name)
}

// Engine returns an aggregation engine configured for this topic.
func (t *Topic) Engine() aggregate.Engine {
	e := aggregate.NewEngine()
	e.Policy.Field = t.Manifest.HeadlineField
	if t.Manifest.Markers != nil {
		e.Markers = t.Manifest.Markers
	}
	if t.Manifest.Decimals != nil {
		e.Decimals = *t.Manifest.Decimals
	}
	return e
}

// SourceLocation resolves the manifest source location. URLs and absolute
// paths are returned unchanged.
func (t *Topic) SourceLocation() string {
	loc := t.Manifest.Source.Location
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") || filepath.IsAbs(loc) {
		return loc
	}
	return filepath.Join(t.Dir, loc)
}

// PublishedSummary returns the headline totals published in the manifest, or
// nil when there are none.
func (t *Topic) PublishedSummary() *aggregate.Summary {
	if len(t.Manifest.Summary) == 0 {
		return nil
	}
	totals := make(map[string]float64, len(t.Manifest.Summary))
	for k, v := range t.Manifest.Summary {
		totals[k] = v
	}
	return &aggregate.Summary{Totals: totals, Origin: "manifest:" + t.ID()}
}

// Info is the public metadata for a topic.
type Info struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Dimensions     []string `json:"dimensions"`
	DefaultGroupBy []string `json:"default_group_by"`
	HeadlineField  string   `json:"headline_field,omitempty"`
	Adapter        string   `json:"adapter"`
}

// Info returns the topic's public metadata.
func (t *Topic) Info() Info {
	return Info{
		ID:             t.Manifest.ID,
		Title:          t.Manifest.Title,
		Dimensions:     t.Manifest.Dimensions,
		DefaultGroupBy: t.Manifest.DefaultGroupBy,
		HeadlineField:  t.Manifest.HeadlineField,
		Adapter:        t.Manifest.Source.Adapter,
	}
}
