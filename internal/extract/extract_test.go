package extract

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/addis-analytics/fidata/internal/model"
	"github.com/addis-analytics/fidata/pkg/anthropic"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// mockClient returns a canned response and records the request it saw.
type mockClient struct {
	resp *anthropic.MessageResponse
	err  error
	last anthropic.MessageRequest
}

func (m *mockClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.last = req
	return m.resp, m.err
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

const draftJSON = `[
  {
    "record_type": "observation",
    "metric_name": "Registered mobile money users",
    "indicator_code": "MM_REG_USERS",
    "pillar": "digital_payments",
    "value": "54,800,000",
    "unit": "",
    "as_of_date": "2025-06-30",
    "original_text": "registered users reached 54.8 million",
    "confidence": "high"
  },
  {
    "record_type": "event",
    "metric_name": "Telebirr nationwide launch",
    "indicator_code": "",
    "pillar": "digital_payments",
    "value": "",
    "unit": "",
    "as_of_date": "2021-05-11",
    "original_text": "Telebirr launched nationwide",
    "confidence": "certainly"
  }
]`

func TestDraftRecords(t *testing.T) {
	client := &mockClient{resp: textResponse(draftJSON)}
	d := NewDrafter(client, "claude-sonnet-4-5-20250929")

	records, err := d.DraftRecords(context.Background(),
		"https://example.et/reports/2025", "Operator report",
		"full source text", "analyst@addis-analytics.com")
	require.NoError(t, err)
	require.Len(t, records, 2)

	obs := records[0]
	assert.Equal(t, model.RecordTypeObservation, obs.RecordType)
	assert.Equal(t, "54,800,000", obs.Value)
	require.NotNil(t, obs.ValueNumeric)
	assert.InDelta(t, 54800000, *obs.ValueNumeric, 0.001)
	assert.Equal(t, "https://example.et/reports/2025", obs.SourceURL)
	assert.Equal(t, "analyst@addis-analytics.com", obs.CollectedBy)
	require.NoError(t, obs.Validate())

	// Unrecognized confidence degrades to low rather than failing the draft.
	assert.Equal(t, model.ConfidenceLow, records[1].Confidence)

	assert.Contains(t, client.last.Messages[0].Content, "full source text")
	assert.NotEmpty(t, client.last.System)
}

func TestDraftRecords_FencedJSON(t *testing.T) {
	client := &mockClient{resp: textResponse("```json\n" + draftJSON + "\n```")}
	d := NewDrafter(client, "claude-sonnet-4-5-20250929")

	records, err := d.DraftRecords(context.Background(),
		"https://example.et/r", "src", "text", "analyst")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDraftRecords_DropsInvalidDrafts(t *testing.T) {
	// Missing original_text fails validation and is dropped.
	client := &mockClient{resp: textResponse(`[{"record_type":"observation","metric_name":"x","value":"1","confidence":"high"}]`)}
	d := NewDrafter(client, "claude-sonnet-4-5-20250929")

	records, err := d.DraftRecords(context.Background(),
		"https://example.et/r", "src", "text", "analyst")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDraftRecords_EmptyArray(t *testing.T) {
	client := &mockClient{resp: textResponse("[]")}
	d := NewDrafter(client, "claude-sonnet-4-5-20250929")

	records, err := d.DraftRecords(context.Background(),
		"https://example.et/r", "src", "no data here", "analyst")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDraftRecords_BadJSON(t *testing.T) {
	client := &mockClient{resp: textResponse("I could not find any records, sorry.")}
	d := NewDrafter(client, "claude-sonnet-4-5-20250929")

	_, err := d.DraftRecords(context.Background(),
		"https://example.et/r", "src", "text", "analyst")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse draft JSON")
}

func TestDraftRecords_ClientError(t *testing.T) {
	client := &mockClient{err: eris.New("api unavailable")}
	d := NewDrafter(client, "claude-sonnet-4-5-20250929")

	_, err := d.DraftRecords(context.Background(),
		"https://example.et/r", "src", "text", "analyst")
	require.Error(t, err)
}

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `[{"a":1}]`, `[{"a":1}]`},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"bare fence", "```\n[1,2]\n```", "[1,2]"},
		{"surrounding space", "  [1]  ", "[1]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanJSON(tc.in))
		})
	}
}
