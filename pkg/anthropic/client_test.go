package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSDKMessages(t *testing.T) {
	t.Parallel()

	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "extract records"},
		{Role: "assistant", Content: "ok"},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
}

func TestMessageResponse_Text(t *testing.T) {
	t.Parallel()

	resp := MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "part one "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "part two"},
	}}
	assert.Equal(t, "part one part two", resp.Text())
}

func TestEstimateCost(t *testing.T) {
	t.Parallel()

	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 100_000}
	assert.InDelta(t, 3.00+1.50, usage.EstimateCost("claude-sonnet-4-5-20250929"), 0.0001)
	assert.Zero(t, usage.EstimateCost("unknown-model"))
}
