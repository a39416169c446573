package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addis-analytics/fidata/internal/model"
)

func date(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testLog() []model.Record {
	base := model.Record{
		SourceURL:      "https://example.et",
		OriginalText:   "excerpt",
		CollectedBy:    "analyst",
		CollectionDate: *date(2025, 8, 12),
	}

	obs1 := base
	obs1.RecordType = model.RecordTypeObservation
	obs1.IndicatorCode = "MM_REG_USERS"
	obs1.Pillar = "digital_payments"
	obs1.SourceName = "Operator report"
	obs1.Confidence = model.ConfidenceHigh
	obs1.AsOfDate = date(2025, 6, 30)

	obs2 := base
	obs2.RecordType = model.RecordTypeObservation
	obs2.IndicatorCode = "MM_REG_USERS"
	obs2.Pillar = "digital_payments"
	obs2.SourceName = "Operator report"
	obs2.Confidence = model.ConfidenceMedium
	obs2.AsOfDate = date(2024, 6, 30)

	obs3 := base
	obs3.RecordType = model.RecordTypeObservation
	obs3.IndicatorCode = "ACC_OWNERSHIP"
	obs3.Pillar = "access"
	obs3.SourceName = "Findex"
	obs3.Confidence = model.ConfidenceHigh
	obs3.AsOfDate = date(2021, 12, 31)

	ev1 := base
	ev1.RecordType = model.RecordTypeEvent
	ev1.MetricName = "Telebirr launch"
	ev1.Confidence = model.ConfidenceHigh
	ev1.AsOfDate = date(2021, 5, 11)

	ev2 := base
	ev2.RecordType = model.RecordTypeEvent
	ev2.MetricName = "Undated policy change"
	ev2.Confidence = model.ConfidenceLow

	link := base
	link.RecordType = model.RecordTypeImpactLink
	link.IndicatorCode = "MM_REG_USERS"
	link.Confidence = model.ConfidenceMedium

	return []model.Record{obs1, obs2, obs3, ev1, ev2, link}
}

func TestCountRecords(t *testing.T) {
	t.Parallel()

	c := CountRecords(testLog())
	assert.Equal(t, 6, c.Total)
	assert.Equal(t, 3, c.ByRecordType["observation"])
	assert.Equal(t, 2, c.ByRecordType["event"])
	assert.Equal(t, 1, c.ByRecordType["impact_link"])
	assert.Equal(t, 2, c.ByPillar["digital_payments"])
	assert.Equal(t, 3, c.ByPillar["(none)"])
	assert.Equal(t, 2, c.BySource["Operator report"])
	assert.Equal(t, 3, c.ByConfidence["high"])
	assert.Equal(t, 2, c.ByConfidence["medium"])
}

func TestComputeTemporalRange(t *testing.T) {
	t.Parallel()

	tr := ComputeTemporalRange(testLog())
	require.NotNil(t, tr.Overall.Min)
	assert.Equal(t, 2021, tr.Overall.Min.Year())
	assert.Equal(t, time.May, tr.Overall.Min.Month())
	require.NotNil(t, tr.Overall.Max)
	assert.Equal(t, 2025, tr.Overall.Max.Year())

	require.NotNil(t, tr.Observations.Min)
	assert.Equal(t, time.December, tr.Observations.Min.Month())
	require.NotNil(t, tr.Events.Min)
	assert.True(t, tr.Events.Min.Equal(*tr.Events.Max)) // one dated event
}

func TestComputeTemporalRange_Empty(t *testing.T) {
	t.Parallel()

	tr := ComputeTemporalRange(nil)
	assert.Nil(t, tr.Overall.Min)
	assert.Nil(t, tr.Overall.Max)
}

func TestListIndicators(t *testing.T) {
	t.Parallel()

	coverage := ListIndicators(testLog())
	require.Len(t, coverage, 2)
	assert.Equal(t, "MM_REG_USERS", coverage[0].IndicatorCode)
	assert.Equal(t, 3, coverage[0].Count)
	assert.Equal(t, "ACC_OWNERSHIP", coverage[1].IndicatorCode)
	assert.Equal(t, 1, coverage[1].Count)
}

func TestEvents_SortedByDate(t *testing.T) {
	t.Parallel()

	events := Events(testLog())
	require.Len(t, events, 2)
	assert.Equal(t, "Telebirr launch", events[0].MetricName)
	// Undated events sort last.
	assert.Equal(t, "Undated policy change", events[1].MetricName)
}

func TestImpactLinks(t *testing.T) {
	t.Parallel()

	links := ImpactLinks(testLog())
	require.Len(t, links, 1)
	assert.Equal(t, "MM_REG_USERS", links[0].IndicatorCode)
}
