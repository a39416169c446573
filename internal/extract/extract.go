// Package extract drafts candidate enrichment records from source text using
// an LLM. Drafts are proposals: nothing here writes to the log, and every
// draft must still pass validation and a human review before it is appended.
package extract

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/addis-analytics/fidata/internal/dataset"
	"github.com/addis-analytics/fidata/internal/model"
	"github.com/addis-analytics/fidata/pkg/anthropic"
)

const systemPrompt = `You extract financial inclusion data points from source documents into structured records.

For each quantitative observation, dated event, or stated causal link in the text, emit one JSON object with these fields:
- record_type: "observation", "event", or "impact_link"
- metric_name: what was measured or what happened
- indicator_code: standard indicator code if one clearly applies, else ""
- pillar: "access", "usage", "digital_payments", "credit", or "" if unclear
- value: the value exactly as stated in the text ("" for events)
- unit: unit of measure if stated
- as_of_date: the date the value refers to, ISO format, "" if not stated
- original_text: the verbatim sentence or phrase supporting the record
- confidence: "high" only when the text states the figure directly, "medium" when inferred from context, "low" for estimates or secondhand claims

Respond with a JSON array of these objects and nothing else. Emit an empty array if the text contains no usable data points.`

// Draft is one LLM-proposed record in wire format.
type Draft struct {
	RecordType    string `json:"record_type"`
	MetricName    string `json:"metric_name"`
	IndicatorCode string `json:"indicator_code"`
	Pillar        string `json:"pillar"`
	Value         string `json:"value"`
	Unit          string `json:"unit"`
	AsOfDate      string `json:"as_of_date"`
	OriginalText  string `json:"original_text"`
	Confidence    string `json:"confidence"`
}

// Drafter turns source documents into candidate records.
type Drafter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewDrafter creates a Drafter using the given client and model.
func NewDrafter(client anthropic.Client, modelID string) *Drafter {
	return &Drafter{client: client, model: modelID, maxTokens: 4096}
}

// maxSourceBytes caps how much source text goes into the prompt.
const maxSourceBytes = 100_000

// DraftRecords asks the model to extract candidate records from sourceText.
// The returned records carry the given source URL and collector identity and
// have already passed Validate; drafts the model produced that fail
// validation are logged and dropped.
func (d *Drafter) DraftRecords(ctx context.Context, sourceURL, sourceName, sourceText, collectedBy string) ([]model.Record, error) {
	if len(sourceText) > maxSourceBytes {
		sourceText = sourceText[:maxSourceBytes]
	}

	resp, err := d.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     d.model,
		MaxTokens: d.maxTokens,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: "Source document:\n\n" + sourceText},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: draft records")
	}
	resp.Usage.LogCost(d.model, "draft")

	drafts, err := parseDrafts(resp.Text())
	if err != nil {
		return nil, err
	}

	records := make([]model.Record, 0, len(drafts))
	for _, dr := range drafts {
		rec := draftToRecord(dr, sourceURL, sourceName, collectedBy)
		if err := rec.Validate(); err != nil {
			zap.L().Warn("extract: dropping invalid draft",
				zap.String("metric_name", dr.MetricName),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseDrafts parses the model's response text as a JSON array of drafts,
// tolerating markdown code fences around the payload.
func parseDrafts(text string) ([]Draft, error) {
	cleaned := cleanJSON(text)
	var drafts []Draft
	if err := json.Unmarshal([]byte(cleaned), &drafts); err != nil {
		return nil, eris.Wrap(err, "extract: parse draft JSON")
	}
	return drafts, nil
}

func draftToRecord(d Draft, sourceURL, sourceName, collectedBy string) model.Record {
	conf, err := model.ParseConfidence(d.Confidence)
	if err != nil {
		// Unrecognized confidence from the model is treated as low.
		conf = model.ConfidenceLow
	}
	rec := model.Record{
		RecordType:     model.RecordType(d.RecordType),
		MetricName:     d.MetricName,
		IndicatorCode:  d.IndicatorCode,
		Pillar:         d.Pillar,
		Value:          d.Value,
		Unit:           d.Unit,
		AsOfDate:       dataset.ParseDate(d.AsOfDate),
		SourceName:     sourceName,
		SourceURL:      sourceURL,
		OriginalText:   d.OriginalText,
		Confidence:     conf,
		CollectedBy:    collectedBy,
		CollectionDate: time.Now().UTC(),
	}
	rec.NormalizeValue()
	return rec
}

// cleanJSON strips markdown code fences that models sometimes wrap around
// JSON payloads.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}
