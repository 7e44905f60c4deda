package topic

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes one reporting topic: its dimensions, where its rows come
// from, and the labels and colours the rendering layer uses for it.
type Manifest struct {
	ID             string             `yaml:"id" json:"id"`
	Title          string             `yaml:"title" json:"title"`
	Dimensions     []string           `yaml:"dimensions" json:"dimensions"`
	DefaultGroupBy []string           `yaml:"default_group_by" json:"default_group_by"`
	HeadlineField  string             `yaml:"headline_field" json:"headline_field"`
	Decimals       *int               `yaml:"decimals" json:"decimals,omitempty"`
	Markers        []string           `yaml:"markers" json:"markers,omitempty"`
	Source         SourceSpec         `yaml:"source" json:"source"`
	Columns        map[string]string  `yaml:"columns" json:"-"`
	Summary        map[string]float64 `yaml:"summary" json:"-"`
	Labels         map[string]string  `yaml:"labels" json:"labels,omitempty"`
	Colors         map[string]string  `yaml:"colors" json:"colors,omitempty"`
}

// SourceSpec tells the importer how to read the topic's rows.
type SourceSpec struct {
	Adapter   string `yaml:"adapter" json:"adapter"`
	Location  string `yaml:"location" json:"location"`
	Delimiter string `yaml:"delimiter" json:"-"`
	Encoding  string `yaml:"encoding" json:"-"`
	Sheet     string `yaml:"sheet" json:"-"`
}

// MeasureColumn is the Columns key naming the measure column.
const MeasureColumn = "measure"

// LoadManifest reads and parses a manifest.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	if len(m.Dimensions) == 0 {
		return nil, fmt.Errorf("manifest %s: no dimensions", path)
	}
	for _, d := range m.DefaultGroupBy {
		if !contains(m.Dimensions, d) {
			return nil, fmt.Errorf("manifest %s: default_group_by %q is not a dimension", path, d)
		}
	}
	if len(m.DefaultGroupBy) == 0 {
		m.DefaultGroupBy = m.Dimensions[:1]
	}
	if m.Title == "" {
		m.Title = m.ID
	}
	if m.Source.Adapter == "" {
		m.Source.Adapter = "csv"
	}
	if m.Source.Location == "" {
		m.Source.Location = "data.csv"
	}
	return &m, nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
