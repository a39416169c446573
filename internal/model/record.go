// Package model defines the enrichment record schema and its validation rules.
package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// RecordType distinguishes the three kinds of rows in the unified dataset.
type RecordType string

const (
	RecordTypeObservation RecordType = "observation"
	RecordTypeEvent       RecordType = "event"
	RecordTypeImpactLink  RecordType = "impact_link"
)

// Confidence is a qualitative rating of trust in a record's value.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// confidenceRank maps confidence levels to numeric ranks for comparison.
// Lower rank means higher confidence.
var confidenceRank = map[Confidence]int{
	ConfidenceHigh:   0,
	ConfidenceMedium: 1,
	ConfidenceLow:    2,
}

// Valid reports whether c is one of the allowed confidence levels.
func (c Confidence) Valid() bool {
	_, ok := confidenceRank[c]
	return ok
}

// AtLeast reports whether c is at or above the given minimum level.
// Unrecognized levels are never at least anything.
func (c Confidence) AtLeast(min Confidence) bool {
	rank, ok := confidenceRank[c]
	if !ok {
		return false
	}
	minRank, ok := confidenceRank[min]
	if !ok {
		return false
	}
	return rank <= minRank
}

// ParseConfidence normalizes and validates a confidence string.
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", eris.Errorf("invalid confidence %q (want high, medium, or low)", s)
	}
	return c, nil
}

// Record is a single logged data point with provenance metadata.
// Records are immutable once appended; a correction is a new record
// with Supersedes set to the ID of the record it replaces.
type Record struct {
	ID             string     `json:"id,omitempty"`
	RecordType     RecordType `json:"record_type"`
	MetricName     string     `json:"metric_name"`
	IndicatorCode  string     `json:"indicator_code,omitempty"`
	Pillar         string     `json:"pillar,omitempty"`
	Value          string     `json:"value"`
	ValueNumeric   *float64   `json:"value_numeric,omitempty"`
	Unit           string     `json:"unit,omitempty"`
	AsOfDate       *time.Time `json:"as_of_date,omitempty"`
	SourceName     string     `json:"source_name,omitempty"`
	SourceURL      string     `json:"source_url"`
	OriginalText   string     `json:"original_text"`
	Confidence     Confidence `json:"confidence"`
	CollectedBy    string     `json:"collected_by"`
	CollectionDate time.Time  `json:"collection_date"`
	Notes          string     `json:"notes,omitempty"`
	Supersedes     string     `json:"supersedes,omitempty"`
}

// requiredField pairs a field name with its emptiness check, in the order
// validation errors should be reported.
type requiredField struct {
	name  string
	empty func(*Record) bool
}

var requiredFields = []requiredField{
	{"source_url", func(r *Record) bool { return strings.TrimSpace(r.SourceURL) == "" }},
	{"original_text", func(r *Record) bool { return strings.TrimSpace(r.OriginalText) == "" }},
	{"confidence", func(r *Record) bool { return r.Confidence == "" }},
	{"collected_by", func(r *Record) bool { return strings.TrimSpace(r.CollectedBy) == "" }},
	{"collection_date", func(r *Record) bool { return r.CollectionDate.IsZero() }},
}

// Validate enforces the completeness rule: every record must carry
// source_url, original_text, confidence, collected_by, and collection_date,
// and confidence must be a recognized level. A record that fails validation
// must not be appended to the log.
func (r *Record) Validate() error {
	var missing []string
	for _, f := range requiredFields {
		if f.empty(r) {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("record missing required field(s): %s", strings.Join(missing, ", "))
	}
	if !r.Confidence.Valid() {
		return eris.Errorf("invalid confidence %q (want high, medium, or low)", r.Confidence)
	}
	switch r.RecordType {
	case RecordTypeObservation, RecordTypeEvent, RecordTypeImpactLink:
	case "":
		return eris.New("record missing required field(s): record_type")
	default:
		return eris.Errorf("invalid record_type %q", r.RecordType)
	}
	return nil
}

// NormalizeValue parses Value into ValueNumeric when it looks numeric.
// Thousands separators are stripped; values like "52.4%" keep the percent
// in Unit if none was set. Non-numeric values are left as-is.
func (r *Record) NormalizeValue() {
	if r.ValueNumeric != nil {
		return
	}
	s := strings.TrimSpace(r.Value)
	if s == "" {
		return
	}
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return
	}
	r.ValueNumeric = &f
	if pct && r.Unit == "" {
		r.Unit = "percent"
	}
}

// Superseded reports whether any record in the slice supersedes r.
func Superseded(r *Record, all []Record) bool {
	for i := range all {
		if all[i].Supersedes != "" && all[i].Supersedes == r.ID {
			return true
		}
	}
	return false
}
