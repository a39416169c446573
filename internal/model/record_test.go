package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() Record {
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	return Record{
		RecordType:     RecordTypeObservation,
		MetricName:     "Registered mobile money users",
		IndicatorCode:  "MM_REG_USERS",
		Pillar:         "digital_payments",
		Value:          "54,800,000",
		AsOfDate:       &asOf,
		SourceName:     "Operator annual report",
		SourceURL:      "https://example.et/reports/2025",
		OriginalText:   "registered users reached 54.8 million",
		Confidence:     ConfidenceHigh,
		CollectedBy:    "analyst@addis-analytics.com",
		CollectionDate: time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecord_Validate_Complete(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	require.NoError(t, rec.Validate())
}

func TestRecord_Validate_MissingRequired(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Record)
		want   string
	}{
		{"source_url", func(r *Record) { r.SourceURL = "" }, "source_url"},
		{"source_url whitespace", func(r *Record) { r.SourceURL = "  " }, "source_url"},
		{"original_text", func(r *Record) { r.OriginalText = "" }, "original_text"},
		{"confidence", func(r *Record) { r.Confidence = "" }, "confidence"},
		{"collected_by", func(r *Record) { r.CollectedBy = "" }, "collected_by"},
		{"collection_date", func(r *Record) { r.CollectionDate = time.Time{} }, "collection_date"},
		{"record_type", func(r *Record) { r.RecordType = "" }, "record_type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := validRecord()
			tc.mutate(&rec)
			err := rec.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRecord_Validate_MultipleMissing(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	rec.SourceURL = ""
	rec.CollectedBy = ""
	err := rec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_url")
	assert.Contains(t, err.Error(), "collected_by")
}

func TestRecord_Validate_BadConfidence(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	rec.Confidence = "certain"
	err := rec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence")
}

func TestRecord_Validate_BadRecordType(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	rec.RecordType = "projection"
	require.Error(t, rec.Validate())
}

func TestParseConfidence(t *testing.T) {
	t.Parallel()

	c, err := ParseConfidence("  High ")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceHigh, c)

	_, err = ParseConfidence("very high")
	require.Error(t, err)
}

func TestConfidence_AtLeast(t *testing.T) {
	t.Parallel()

	assert.True(t, ConfidenceHigh.AtLeast(ConfidenceMedium))
	assert.True(t, ConfidenceMedium.AtLeast(ConfidenceMedium))
	assert.False(t, ConfidenceLow.AtLeast(ConfidenceMedium))
	assert.False(t, Confidence("unknown").AtLeast(ConfidenceLow))
}

func TestRecord_NormalizeValue(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	rec.NormalizeValue()
	require.NotNil(t, rec.ValueNumeric)
	assert.InDelta(t, 54800000, *rec.ValueNumeric, 0.001)

	pct := validRecord()
	pct.Value = "52.4%"
	pct.Unit = ""
	pct.NormalizeValue()
	require.NotNil(t, pct.ValueNumeric)
	assert.InDelta(t, 52.4, *pct.ValueNumeric, 0.001)
	assert.Equal(t, "percent", pct.Unit)

	text := validRecord()
	text.Value = "roughly half of adults"
	text.NormalizeValue()
	assert.Nil(t, text.ValueNumeric)
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	rec.ID = "rec-1"
	rec.Notes = "starter data enrichment"
	rec.Supersedes = "rec-0"

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rec.ID, decoded.ID)
	assert.Equal(t, rec.MetricName, decoded.MetricName)
	assert.Equal(t, rec.Confidence, decoded.Confidence)
	assert.Equal(t, rec.Supersedes, decoded.Supersedes)
	require.NotNil(t, decoded.AsOfDate)
	assert.True(t, rec.AsOfDate.Equal(*decoded.AsOfDate))
}

func TestSuperseded(t *testing.T) {
	t.Parallel()

	old := validRecord()
	old.ID = "rec-old"
	fix := validRecord()
	fix.ID = "rec-fix"
	fix.Supersedes = "rec-old"
	other := validRecord()
	other.ID = "rec-other"

	all := []Record{old, fix, other}
	assert.True(t, Superseded(&old, all))
	assert.False(t, Superseded(&fix, all))
	assert.False(t, Superseded(&other, all))
}
