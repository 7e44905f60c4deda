package report

import (
	"github.com/hazyhaar/wardstats/pkg/aggregate"
	"github.com/hazyhaar/wardstats/pkg/topic"
)

// OtherLabel names the entry that folds the breakdown beyond Top.
const OtherLabel = "Other"

// Entry is a breakdown statistic with its display label and colour.
type Entry struct {
	aggregate.Statistic
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// Report is a decorated engine result for one topic.
type Report struct {
	Topic     string            `json:"topic"`
	Title     string            `json:"title"`
	GroupBy   []string          `json:"group_by"`
	Where     map[string]string `json:"where,omitempty"`
	Total     float64           `json:"total"`
	Source    aggregate.Source  `json:"source"`
	Breakdown []Entry           `json:"breakdown"`
	Other     *Entry            `json:"other,omitempty"`
	Highest   *Entry            `json:"highest"`
	Lowest    *Entry            `json:"lowest"`
	Warnings  []string          `json:"warnings"`
}

// decorate wraps a statistic with labels looked up per key value.
func decorate(t *topic.Topic, s aggregate.Statistic) Entry {
	e := Entry{Statistic: s, Label: s.Key.Label()}
	if len(s.Key) == 0 {
		return e
	}
	labels := make(aggregate.Key, len(s.Key))
	for i, f := range s.Key {
		labels[i] = aggregate.Field{Dimension: f.Dimension, Value: t.Label(f.Value)}
	}
	e.Label = labels.Label()
	// Colour follows the innermost value, which is what a chart segment shows.
	e.Color = t.Color(s.Key[len(s.Key)-1].Value)
	return e
}

func decoratePtr(t *topic.Topic, s *aggregate.Statistic) *Entry {
	if s == nil {
		return nil
	}
	e := decorate(t, *s)
	return &e
}

// fold keeps the first top entries and sums the rest into one Other entry.
// Percentages of the kept entries are untouched.
func fold(entries []Entry, top int, total float64, decimals int) ([]Entry, *Entry) {
	if top <= 0 || len(entries) <= top {
		return entries, nil
	}
	other := &Entry{Label: OtherLabel, Statistic: aggregate.Statistic{Key: aggregate.Key{}}}
	for _, e := range entries[top:] {
		other.Measure += e.Measure
		other.Rows += e.Rows
	}
	other.Percentage = aggregate.Percentage(other.Measure, total, decimals)
	return entries[:top], other
}
