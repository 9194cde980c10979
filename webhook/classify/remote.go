package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/payload"
)

const (
	summaryMaxRunes = 200

	systemPrompt = "You analyze webhook events for an operations team. Reply with a single JSON object and nothing else."

	promptTemplate = `Analyze the following webhook payload received from source %q.

Payload:
%s

Return a JSON object with these fields:
- "source": the originating system
- "event_type": the kind of event
- "importance": one of "high", "medium", "low"
- "summary": one sentence, at most %d characters
- "actions": list of recommended follow-up actions
- "risks": list of potential risks
- "impact_scope": optional, what is affected
- "monitoring_suggestions": optional list of things to watch`
)

var errMalformed = errors.New("invalid JSON response from model")

// Completer sends a prompt to a reasoning service and returns its raw text answer
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Remote asks a language model to classify the payload
type Remote struct {
	completer Completer
	timeout   time.Duration
}

// NewRemote creates a remote strategy; a nil completer yields Disabled outcomes
func NewRemote(completer Completer, timeout time.Duration) *Remote {
	return &Remote{
		completer: completer,
		timeout:   timeout,
	}
}

// Analyze invokes the model, then parses its answer; every failure is reported through the outcome
func (r *Remote) Analyze(ctx context.Context, data any, source string) Outcome {
	if r == nil || r.completer == nil {
		return Outcome{Status: Disabled}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(promptTemplate, source, payload.Indent(data), summaryMaxRunes)
	text, err := r.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return Outcome{Status: statusFor(err), Err: err}
	}

	analysis, err := parseAnalysis(text, source)
	if err != nil {
		return Outcome{Status: MalformedResponse, Err: err}
	}
	return Outcome{Status: Success, Analysis: analysis}
}

func statusFor(err error) Status {
	var netErr net.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return Timeout
	case errors.As(err, &opErr), errors.As(err, &dnsErr), errors.Is(err, syscall.ECONNREFUSED):
		return ConnectionError
	default:
		return RemoteError
	}
}

type remoteAnalysis struct {
	Source                flexText `json:"source"`
	EventType             flexText `json:"event_type"`
	Importance            flexText `json:"importance"`
	Summary               flexText `json:"summary"`
	Actions               flexList `json:"actions"`
	Risks                 flexList `json:"risks"`
	ImpactScope           flexText `json:"impact_scope"`
	MonitoringSuggestions flexList `json:"monitoring_suggestions"`
}

func parseAnalysis(raw, source string) (webhook.Analysis, error) {
	var out remoteAnalysis
	if err := unmarshalModelJSON(raw, &out); err != nil {
		return webhook.Analysis{}, err
	}

	a := webhook.Analysis{
		Source:                string(out.Source),
		EventType:             string(out.EventType),
		Importance:            webhook.NewImportance(string(out.Importance)),
		Summary:               truncate(strings.TrimSpace(string(out.Summary)), summaryMaxRunes),
		Actions:               []string(out.Actions),
		Risks:                 []string(out.Risks),
		ImpactScope:           string(out.ImpactScope),
		MonitoringSuggestions: []string(out.MonitoringSuggestions),
		Analyzer:              AnalyzerRemote,
	}
	if a.Source == "" {
		a.Source = source
	}
	if a.EventType == "" {
		a.EventType = "unknown"
	}
	if a.Importance == webhook.UnknownImportance {
		a.Importance = webhook.Medium
	}
	if a.Actions == nil {
		a.Actions = []string{}
	}
	if a.Risks == nil {
		a.Risks = []string{}
	}
	return a, nil
}

// unmarshalModelJSON strips code fences, then falls back to the outermost braces
func unmarshalModelJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if strings.HasPrefix(cleaned, "{") {
		if err := json.Unmarshal([]byte(cleaned), out); err == nil {
			return nil
		}
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}
	return errMalformed
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

// flexText accepts a string, a list of strings or any other JSON value
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexText(s)
		return nil
	}
	var list flexList
	if err := json.Unmarshal(data, &list); err == nil {
		*f = flexText(strings.Join(list, "; "))
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	*f = flexText(data)
	return nil
}

// flexList accepts a list of values or a single string
type flexList []string

func (f *flexList) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			if string(data) == "null" {
				*f = nil
				return nil
			}
			return fmt.Errorf("expected list or string: %w", err)
		}
		*f = flexList{s}
		return nil
	}

	list := make(flexList, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			list = append(list, s)
			continue
		}
		list = append(list, string(item))
	}
	*f = list
	return nil
}
