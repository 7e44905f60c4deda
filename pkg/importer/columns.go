package importer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
	"github.com/hazyhaar/wardstats/pkg/topic"
)

// columnMap maps topic dimensions and the measure to header positions.
type columnMap struct {
	dims    map[string]int
	measure int
}

// resolveColumns finds each dimension's column in header. The manifest's
// columns section names the header cell; without an entry the dimension name
// itself is used. Matching ignores case and accents. A missing measure column
// is an error; a missing dimension column is only logged and the rows are
// read without that dimension.
func resolveColumns(header []string, t *topic.Topic) (*columnMap, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := aggregate.FoldLabel(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}

	colName := func(name string) string {
		if c, ok := t.Manifest.Columns[name]; ok && c != "" {
			return c
		}
		return name
	}

	cm := &columnMap{dims: make(map[string]int)}
	for _, dim := range t.Manifest.Dimensions {
		i, ok := idx[aggregate.FoldLabel(colName(dim))]
		if !ok {
			slog.Warn("dimension column not found", "topic", t.ID(), "dimension", dim, "column", colName(dim))
			continue
		}
		cm.dims[dim] = i
	}

	m, ok := idx[aggregate.FoldLabel(colName(topic.MeasureColumn))]
	if !ok {
		return nil, fmt.Errorf("measure column %q not found in header %v", colName(topic.MeasureColumn), header)
	}
	cm.measure = m
	return cm, nil
}

// row builds a measurement row from one record. Short records leave the
// missing cells out.
func (cm *columnMap) row(record []string) aggregate.Row {
	r := aggregate.Row{Dimensions: make(map[string]string, len(cm.dims)), Measure: aggregate.Missing()}
	for dim, i := range cm.dims {
		if i < len(record) {
			r.Dimensions[dim] = record[i]
		}
	}
	if cm.measure < len(record) {
		r.Measure = aggregate.ParseQuantity(record[cm.measure])
	}
	return r
}

func isBlank(record []string) bool {
	for _, c := range record {
		if c != "" {
			return false
		}
	}
	return true
}
