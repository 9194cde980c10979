package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/payload"
)

const financialRisk = "financial data involved, requires extra validation"

var (
	criticalKeywords  = []string{"error", "failure", "critical", "alert"}
	completedKeywords = []string{"success", "completed", "finished"}
	businessKeywords  = []string{"user", "order", "payment"}
)

// Rules classifies payloads from keywords in their event field
type Rules struct{}

// Classify never fails and needs nothing outside the process
func (Rules) Classify(_ context.Context, data any, source string) webhook.Analysis {
	fields := payload.Fields(data)
	raw, _ := payload.Text(fields, "event")
	event := strings.ToLower(raw)

	a := webhook.Analysis{
		Source:    source,
		EventType: "unknown",
		Actions:   []string{},
		Risks:     []string{},
		Analyzer:  AnalyzerRules,
	}
	if raw != "" {
		a.EventType = raw
	}

	switch {
	case containsAny(event, criticalKeywords):
		a.Importance = webhook.High
		a.Summary = fmt.Sprintf("critical event detected: %s", event)
		a.Actions = append(a.Actions, "inspect logs immediately", "notify responsible party")
		a.Risks = append(a.Risks, "may affect service stability")
	case containsAny(event, completedKeywords):
		a.Importance = webhook.Low
		a.Summary = fmt.Sprintf("event completed normally: %s", event)
		a.Actions = append(a.Actions, "log for record")
	case containsAny(event, businessKeywords):
		a.Importance = webhook.High
		a.Summary = fmt.Sprintf("business-critical event: %s", event)
		a.Actions = append(a.Actions, "verify data integrity", "update business state")
	default:
		a.Importance = webhook.Medium
		a.Summary = fmt.Sprintf("general event: %s", event)
		a.Actions = append(a.Actions, "routine handling")
	}

	if payload.Has(fields, "user_id", "email") {
		a.DataType = "user_related"
	}
	if payload.Has(fields, "amount", "price") {
		a.DataType = "financial"
		a.Risks = append(a.Risks, financialRisk)
	}

	if raw == "" {
		a.Summary = fmt.Sprintf("received webhook event from %s", source)
	}
	return a
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
