package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/addis-analytics/fidata/internal/model"
)

// exportHeader is the canonical column order for enriched exports.
var exportHeader = []string{
	"id", "record_type", "metric_name", "indicator_code", "pillar",
	"value", "value_numeric", "unit", "as_of_date", "source_name",
	"source_url", "original_text", "confidence", "collected_by",
	"collection_date", "notes", "supersedes",
}

func recordRow(r model.Record) []string {
	return []string{
		r.ID,
		string(r.RecordType),
		r.MetricName,
		r.IndicatorCode,
		r.Pillar,
		r.Value,
		formatFloat(r.ValueNumeric),
		r.Unit,
		formatDate(r.AsOfDate),
		r.SourceName,
		r.SourceURL,
		r.OriginalText,
		string(r.Confidence),
		r.CollectedBy,
		r.CollectionDate.UTC().Format("2006-01-02"),
		r.Notes,
		r.Supersedes,
	}
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// WriteCSV writes records as CSV, header first.
func WriteCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return eris.Wrap(err, "dataset: write csv header")
	}
	for _, r := range records {
		if err := cw.Write(recordRow(r)); err != nil {
			return eris.Wrapf(err, "dataset: write csv row %s", r.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush csv")
}

// WriteXLSX writes records to an XLSX workbook with a single sheet.
func WriteXLSX(path string, records []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("records")
	if err != nil {
		return eris.Wrap(err, "dataset: add sheet")
	}

	addRow := func(cells []string) {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	addRow(exportHeader)
	for _, r := range records {
		addRow(recordRow(r))
	}

	return eris.Wrapf(f.Save(path), "dataset: save xlsx %s", path)
}

// SaveEnriched writes the enriched dataset to the given path, creating
// parent directories. Format is chosen by extension (.xlsx or CSV).
func SaveEnriched(path string, records []model.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "dataset: mkdir for %s", path)
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		err = WriteXLSX(path, records)
	default:
		var f *os.File
		f, err = os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "dataset: create %s", path)
		}
		defer f.Close()
		err = WriteCSV(f, records)
	}
	if err != nil {
		return err
	}

	zap.L().Info("enriched dataset saved",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return nil
}
