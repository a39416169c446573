// Package summary computes dataset coverage reports over the enrichment log.
package summary

import (
	"sort"
	"time"

	"github.com/addis-analytics/fidata/internal/model"
)

// Counts tallies records by the key categorical fields.
type Counts struct {
	Total        int            `json:"total"`
	ByRecordType map[string]int `json:"by_record_type"`
	ByPillar     map[string]int `json:"by_pillar"`
	BySource     map[string]int `json:"by_source"`
	ByConfidence map[string]int `json:"by_confidence"`
}

// CountRecords tallies records by record type, pillar, source name, and
// confidence. Empty pillar and source values are tallied under "(none)".
func CountRecords(records []model.Record) Counts {
	c := Counts{
		Total:        len(records),
		ByRecordType: make(map[string]int),
		ByPillar:     make(map[string]int),
		BySource:     make(map[string]int),
		ByConfidence: make(map[string]int),
	}
	for _, r := range records {
		c.ByRecordType[string(r.RecordType)]++
		c.ByPillar[orNone(r.Pillar)]++
		c.BySource[orNone(r.SourceName)]++
		c.ByConfidence[string(r.Confidence)]++
	}
	return c
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// DateRange is a min/max pair over as-of dates. Nil bounds mean no record
// in the group carried a usable date.
type DateRange struct {
	Min *time.Time `json:"min,omitempty"`
	Max *time.Time `json:"max,omitempty"`
}

func (d *DateRange) observe(t *time.Time) {
	if t == nil {
		return
	}
	if d.Min == nil || t.Before(*d.Min) {
		d.Min = t
	}
	if d.Max == nil || t.After(*d.Max) {
		d.Max = t
	}
}

// TemporalRange reports the as-of date span overall and per record type.
type TemporalRange struct {
	Overall      DateRange `json:"overall"`
	Observations DateRange `json:"observations"`
	Events       DateRange `json:"events"`
}

// ComputeTemporalRange identifies the temporal span of observations and events.
func ComputeTemporalRange(records []model.Record) TemporalRange {
	var tr TemporalRange
	for i := range records {
		r := &records[i]
		tr.Overall.observe(r.AsOfDate)
		switch r.RecordType {
		case model.RecordTypeObservation:
			tr.Observations.observe(r.AsOfDate)
		case model.RecordTypeEvent:
			tr.Events.observe(r.AsOfDate)
		}
	}
	return tr
}

// IndicatorCoverage is the record count for one indicator.
type IndicatorCoverage struct {
	IndicatorCode string `json:"indicator_code"`
	Count         int    `json:"count"`
}

// ListIndicators returns unique indicators with their coverage, most
// covered first. Records without an indicator code are excluded.
func ListIndicators(records []model.Record) []IndicatorCoverage {
	counts := make(map[string]int)
	for _, r := range records {
		if r.IndicatorCode == "" {
			continue
		}
		counts[r.IndicatorCode]++
	}

	coverage := make([]IndicatorCoverage, 0, len(counts))
	for code, n := range counts {
		coverage = append(coverage, IndicatorCoverage{IndicatorCode: code, Count: n})
	}
	sort.Slice(coverage, func(i, j int) bool {
		if coverage[i].Count != coverage[j].Count {
			return coverage[i].Count > coverage[j].Count
		}
		return coverage[i].IndicatorCode < coverage[j].IndicatorCode
	})
	return coverage
}

// Events returns cataloged events sorted by date (undated events last).
func Events(records []model.Record) []model.Record {
	var events []model.Record
	for _, r := range records {
		if r.RecordType == model.RecordTypeEvent {
			events = append(events, r)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		di, dj := events[i].AsOfDate, events[j].AsOfDate
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})
	return events
}

// ImpactLinks returns records linking events to indicators.
func ImpactLinks(records []model.Record) []model.Record {
	var links []model.Record
	for _, r := range records {
		if r.RecordType == model.RecordTypeImpactLink {
			links = append(links, r)
		}
	}
	return links
}
