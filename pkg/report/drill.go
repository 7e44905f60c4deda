package report

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
	"github.com/hazyhaar/wardstats/pkg/topic"
)

// DrillNode is one level of a decorated drill-down tree. Percentage is the
// node's share of its parent (of the tree total at the top level).
type DrillNode struct {
	Dimension  string      `json:"dimension"`
	Value      string      `json:"value"`
	Label      string      `json:"label"`
	Color      string      `json:"color,omitempty"`
	Measure    float64     `json:"measure"`
	Rows       int         `json:"rows"`
	Percentage float64     `json:"percentage_of_parent"`
	Children   []DrillNode `json:"children,omitempty"`
}

// DrillReport is a nested breakdown of a topic.
type DrillReport struct {
	Topic    string      `json:"topic"`
	GroupBy  []string    `json:"group_by"`
	Total    float64     `json:"total"`
	Nodes    []DrillNode `json:"nodes"`
	Warnings []string    `json:"warnings"`
}

// Drill groups a topic's rows level by level along groupBy. The tree total
// is the sum of the detail rows; the headline summary does not apply to
// nested shares.
func (s *Service) Drill(ctx context.Context, id string, groupBy []string) (*DrillReport, error) {
	start := time.Now()
	if len(groupBy) == 0 {
		return nil, fmt.Errorf("%w: drill needs at least one dimension", ErrInvalidRequest)
	}
	t, err := s.resolve(id, groupBy, nil)
	if err != nil {
		return nil, err
	}

	rows, _, warnings, err := s.fetch(ctx, t.ID())
	if err != nil {
		return nil, err
	}

	eng := t.Engine()
	norm := aggregate.Normalizer{Required: groupBy, Markers: eng.Markers, MarkerDimensions: eng.MarkerDimensions}
	clean, normWarnings := norm.Normalize(rows)
	warnings = append(warnings, normWarnings...)

	tree := aggregate.Drill(clean, groupBy)
	var total float64
	for _, n := range tree {
		total += n.Measure
	}
	if len(tree) == 0 {
		warnings = append(warnings, aggregate.WarnNoData)
	}
	if warnings == nil {
		warnings = []string{}
	}

	rep := &DrillReport{
		Topic:    t.ID(),
		GroupBy:  groupBy,
		Total:    total,
		Nodes:    decorateNodes(t, tree, total, eng.Decimals),
		Warnings: warnings,
	}
	s.metrics.observe("drill", t.ID(), "", len(warnings), start)
	return rep, nil
}

func decorateNodes(t *topic.Topic, nodes []aggregate.Node, parent float64, decimals int) []DrillNode {
	out := make([]DrillNode, len(nodes))
	for i, n := range nodes {
		f := n.Key[0]
		out[i] = DrillNode{
			Dimension:  f.Dimension,
			Value:      f.Value,
			Label:      t.Label(f.Value),
			Color:      t.Color(f.Value),
			Measure:    n.Measure,
			Rows:       n.Rows,
			Percentage: aggregate.Percentage(n.Measure, parent, decimals),
		}
		if len(n.Children) > 0 {
			out[i].Children = decorateNodes(t, n.Children, n.Measure, decimals)
		}
	}
	return out
}
