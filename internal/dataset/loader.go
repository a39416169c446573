package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/addis-analytics/fidata/internal/model"
)

// columnAliases maps canonical record fields to the header names seen across
// dataset exports. The original workbook is inconsistent about date and text
// column names, so each field accepts several spellings.
var columnAliases = map[string][]string{
	"record_type":     {"record_type"},
	"metric_name":     {"metric_name", "indicator", "event_name", "description"},
	"indicator_code":  {"indicator_code"},
	"pillar":          {"pillar"},
	"value":           {"value"},
	"unit":            {"unit"},
	"as_of_date":      {"as_of_date", "observation_date", "event_date", "date"},
	"source_name":     {"source_name"},
	"source_url":      {"source_url"},
	"original_text":   {"original_text", "text"},
	"confidence":      {"confidence"},
	"collected_by":    {"collected_by"},
	"collection_date": {"collection_date"},
	"notes":           {"notes"},
	"supersedes":      {"supersedes"},
}

// dateLayouts are tried in order when parsing date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006",
}

// ParseDate parses a date cell using the known layouts.
// Empty or unparseable cells return nil, mirroring coerced NaT handling
// in the original notebooks.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// headerIndex maps canonical field names to column positions for one file.
type headerIndex map[string]int

func indexHeader(header []string) headerIndex {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := make(headerIndex, len(columnAliases))
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := byName[alias]; ok {
				idx[field] = i
				break
			}
		}
	}
	return idx
}

func (h headerIndex) get(row []string, field string) string {
	i, ok := h[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// recordFromRow converts one data row into a Record. The record is not
// validated here; callers decide whether to skip or abort on invalid rows.
func recordFromRow(idx headerIndex, row []string) model.Record {
	rec := model.Record{
		RecordType:    model.RecordType(strings.ToLower(idx.get(row, "record_type"))),
		MetricName:    idx.get(row, "metric_name"),
		IndicatorCode: idx.get(row, "indicator_code"),
		Pillar:        idx.get(row, "pillar"),
		Value:         idx.get(row, "value"),
		Unit:          idx.get(row, "unit"),
		AsOfDate:      ParseDate(idx.get(row, "as_of_date")),
		SourceName:    idx.get(row, "source_name"),
		SourceURL:     idx.get(row, "source_url"),
		OriginalText:  idx.get(row, "original_text"),
		Confidence:    model.Confidence(strings.ToLower(idx.get(row, "confidence"))),
		CollectedBy:   idx.get(row, "collected_by"),
		Notes:         idx.get(row, "notes"),
		Supersedes:    idx.get(row, "supersedes"),
	}
	if t := ParseDate(idx.get(row, "collection_date")); t != nil {
		rec.CollectionDate = *t
	}
	rec.NormalizeValue()
	return rec
}

// LoadRecords loads the unified dataset from a local CSV or XLSX file,
// detected by extension. Rows are converted without validation; callers
// decide whether to skip or abort on records that fail Validate.
func LoadRecords(ctx context.Context, path string) ([]model.Record, error) {
	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		zap.L().Info("loading main dataset (xlsx)", zap.String("path", path))
		var err error
		rows, err = ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
	default:
		zap.L().Info("loading main dataset (csv)", zap.String("path", path))
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: open %s", path)
		}
		defer f.Close()

		rows, err = collectCSV(ctx, f)
		if err != nil {
			return nil, err
		}
	}

	if len(rows) == 0 {
		return nil, eris.Errorf("dataset: %s has no rows", path)
	}

	idx := indexHeader(rows[0])
	var records []model.Record
	for _, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		records = append(records, recordFromRow(idx, row))
	}

	zap.L().Info("loaded main dataset",
		zap.Int("rows", len(records)),
		zap.Int("columns", len(rows[0])),
	)
	return records, nil
}

// LoadReferenceCodes loads the reference codes workbook or CSV.
func LoadReferenceCodes(ctx context.Context, path string) ([]model.ReferenceCode, error) {
	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		zap.L().Info("loading reference codes (xlsx)", zap.String("path", path))
		var err error
		rows, err = ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
	default:
		zap.L().Info("loading reference codes (csv)", zap.String("path", path))
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: open %s", path)
		}
		defer f.Close()

		rows, err = collectCSV(ctx, f)
		if err != nil {
			return nil, err
		}
	}

	if len(rows) == 0 {
		return nil, eris.Errorf("dataset: %s has no rows", path)
	}

	byName := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}
	col := func(row []string, names ...string) string {
		for _, n := range names {
			if i, ok := byName[n]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	var codes []model.ReferenceCode
	for _, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		c := model.ReferenceCode{
			Code:   col(row, "code", "indicator_code"),
			Label:  col(row, "label", "description", "indicator"),
			Pillar: col(row, "pillar"),
			Unit:   col(row, "unit"),
		}
		if c.Code == "" {
			continue
		}
		codes = append(codes, c)
	}

	zap.L().Info("loaded reference codes", zap.Int("codes", len(codes)))
	return codes, nil
}

func collectCSV(ctx context.Context, f *os.File) ([][]string, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, f, CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var body [][]string
	for row := range rowCh {
		body = append(body, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	// The stream has finished; an empty file never sends a header.
	var rows [][]string
	select {
	case header := <-headerCh:
		rows = append(rows, header)
	default:
	}
	return append(rows, body...), nil
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
