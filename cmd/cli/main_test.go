package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/marcelsud/webhook-analyzer/internal/http/chi"
	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintJSON(t *testing.T) {
	ts := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	event := webhook.Event{
		ID:            "42",
		Source:        "github",
		Timestamp:     ts,
		RawPayload:    []byte(`{"event":"push"}`),
		ParsedData:    map[string]any{"event": "push"},
		Analysis:      &webhook.Analysis{Source: "github", Importance: webhook.Medium, Analyzer: "rules"},
		Importance:    webhook.Medium,
		ForwardStatus: webhook.ForwardSkipped,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}

	t.Run("success - event uses the API field names", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printJSON(&buf, chi.EventView(event)))

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "42", got["id"])
		assert.Equal(t, `{"event":"push"}`, got["raw_payload"])
		assert.Equal(t, "medium", got["importance"])
		assert.Equal(t, "skipped", got["forward_status"])
		assert.Equal(t, map[string]any{}, got["headers"])
		assert.NotContains(t, got, "RawPayload")
	})

	t.Run("success - outcome uses the action view", func(t *testing.T) {
		var buf bytes.Buffer
		outcome := webhook.Outcome{Event: event, Forward: webhook.ForwardResult{Status: webhook.ForwardSkipped, Message: "below threshold"}}
		require.NoError(t, printJSON(&buf, chi.ActionView(outcome)))

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, true, got["success"])
		assert.Equal(t, "42", got["event_id"])
		assert.Equal(t, "medium", got["importance"])
		forward, ok := got["forward"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "skipped", forward["status"])
		assert.NotContains(t, got, "Event")
	})
}
