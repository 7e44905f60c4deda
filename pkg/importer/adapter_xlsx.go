package importer

import (
	"context"
	"fmt"

	"github.com/hazyhaar/wardstats/pkg/topic"
	"github.com/xuri/excelize/v2"
)

func init() {
	Register(&xlsxAdapter{})
}

type xlsxAdapter struct{}

func (a *xlsxAdapter) ID() string { return "xlsx" }

func (a *xlsxAdapter) Description() string {
	return "Excel workbook, header on the first non-empty row"
}

func (a *xlsxAdapter) Import(ctx context.Context, t *topic.Topic, location string) (*Dataset, error) {
	path, cleanup, err := fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := t.Manifest.Source.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	start := 0
	for start < len(records) && isBlank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	cols, err := resolveColumns(records[start], t)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Summary: t.PublishedSummary()}
	for _, record := range records[start+1:] {
		if isBlank(record) {
			continue
		}
		ds.Rows = append(ds.Rows, cols.row(record))
	}
	return ds, nil
}
