package classify

import (
	"context"
	"testing"

	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, body string) any {
	t.Helper()
	v, err := payload.Parse([]byte(body))
	require.NoError(t, err)
	return v
}

func TestRules_Classify(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name       string
		body       string
		importance webhook.Importance
		summary    string
		actions    []string
	}{
		{
			name:       "critical keyword",
			body:       `{"event":"Payment_Failed"}`,
			importance: webhook.High,
			summary:    "critical event detected: payment_failed",
			actions:    []string{"inspect logs immediately", "notify responsible party"},
		},
		{
			name:       "completion keyword",
			body:       `{"event":"job_completed"}`,
			importance: webhook.Low,
			summary:    "event completed normally: job_completed",
			actions:    []string{"log for record"},
		},
		{
			name:       "business keyword",
			body:       `{"event":"order.created"}`,
			importance: webhook.High,
			summary:    "business-critical event: order.created",
			actions:    []string{"verify data integrity", "update business state"},
		},
		{
			name:       "anything else",
			body:       `{"event":"deploy.started"}`,
			importance: webhook.Medium,
			summary:    "general event: deploy.started",
			actions:    []string{"routine handling"},
		},
		{
			name:       "critical wins over completion",
			body:       `{"event":"ALERT finished"}`,
			importance: webhook.High,
			summary:    "critical event detected: alert finished",
			actions:    []string{"inspect logs immediately", "notify responsible party"},
		},
		{
			name:       "completion wins over business",
			body:       `{"event":"user_signup_success"}`,
			importance: webhook.Low,
			summary:    "event completed normally: user_signup_success",
			actions:    []string{"log for record"},
		},
		{
			name:       "no event field",
			body:       `{"foo":"bar"}`,
			importance: webhook.Medium,
			summary:    "received webhook event from github",
			actions:    []string{"routine handling"},
		},
		{
			name:       "payload is not an object",
			body:       `["error"]`,
			importance: webhook.Medium,
			summary:    "received webhook event from github",
			actions:    []string{"routine handling"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Rules{}.Classify(ctx, parse(t, tc.body), "github")

			assert.Equal(t, tc.importance, a.Importance)
			assert.Equal(t, tc.summary, a.Summary)
			assert.Equal(t, tc.actions, a.Actions)
			assert.Equal(t, "github", a.Source)
			assert.Equal(t, AnalyzerRules, a.Analyzer)
			assert.NotNil(t, a.Risks)
		})
	}
}

func TestRules_ErrorIsAlwaysHigh(t *testing.T) {
	bodies := []string{
		`{"event":"error"}`,
		`{"event":"job_completed_with_error"}`,
		`{"event":"ERROR","amount":1}`,
		`{"event":"success but error","email":"a@b.c","price":3}`,
	}
	for _, body := range bodies {
		a := Rules{}.Classify(context.Background(), parse(t, body), "x")
		assert.Equal(t, webhook.High, a.Importance, body)
		assert.Contains(t, a.Risks, "may affect service stability", body)
	}
}

func TestRules_DataType(t *testing.T) {
	ctx := context.Background()

	t.Run("user related", func(t *testing.T) {
		a := Rules{}.Classify(ctx, parse(t, `{"event":"ping","user_id":7}`), "x")
		assert.Equal(t, "user_related", a.DataType)
		assert.NotContains(t, a.Risks, financialRisk)
	})

	t.Run("financial overrides user related", func(t *testing.T) {
		for _, body := range []string{
			`{"event":"ping","email":"a@b.c","amount":10}`,
			`{"price":"9.99"}`,
			`{"event":"job_completed","amount":0}`,
		} {
			a := Rules{}.Classify(ctx, parse(t, body), "x")
			assert.Equal(t, "financial", a.DataType, body)
			assert.Contains(t, a.Risks, financialRisk, body)
		}
	})

	t.Run("no tag", func(t *testing.T) {
		a := Rules{}.Classify(ctx, parse(t, `{"event":"ping"}`), "x")
		assert.Empty(t, a.DataType)
	})
}

func TestRules_EventType(t *testing.T) {
	a := Rules{}.Classify(context.Background(), parse(t, `{"event":"Order.Created"}`), "shop")
	assert.Equal(t, "Order.Created", a.EventType)

	a = Rules{}.Classify(context.Background(), parse(t, `{}`), "shop")
	assert.Equal(t, "unknown", a.EventType)
}
