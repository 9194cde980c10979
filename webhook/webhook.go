package webhook

import (
	"errors"
	"time"
)

// DefaultSource tags events whose origin was not supplied
const DefaultSource = "unknown"

var (
	ErrNotFound         = errors.New("webhook event not found")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidPayload   = errors.New("invalid JSON payload")
	ErrTargetNotAllowed = errors.New("forward target not allowed")
)

/* Event is the durable record of one accepted webhook
 * Uses value semantics as it represents data, not behavior
 */
type Event struct {
	ID            string
	Source        string
	ClientIP      string
	Timestamp     time.Time
	RawPayload    []byte
	Headers       map[string]string
	ParsedData    any
	Analysis      *Analysis
	Importance    Importance
	ForwardStatus ForwardStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

/* Analysis is the classification document attached to an event
 * It travels as JSON to the stores, the API and the downstream collector
 */
type Analysis struct {
	Source                string     `json:"source"`
	EventType             string     `json:"event_type"`
	Importance            Importance `json:"importance"`
	Summary               string     `json:"summary"`
	Actions               []string   `json:"actions"`
	Risks                 []string   `json:"risks"`
	ImpactScope           string     `json:"impact_scope,omitempty"`
	MonitoringSuggestions []string   `json:"monitoring_suggestions,omitempty"`
	DataType              string     `json:"data_type,omitempty"`
	Analyzer              string     `json:"analyzer,omitempty"`
}

// Patch holds the mutable fields of an event; nil fields are left untouched
type Patch struct {
	Analysis      *Analysis
	ForwardStatus *ForwardStatus
}

// Apply mutates the event with the patch, keeping importance in sync with the analysis
func (e *Event) Apply(p Patch, now time.Time) {
	if p.Analysis != nil {
		a := *p.Analysis
		e.Analysis = &a
		e.Importance = a.Importance
	}
	if p.ForwardStatus != nil {
		e.ForwardStatus = *p.ForwardStatus
	}
	e.UpdatedAt = now
}

// Receipt describes where a newly created event was persisted
type Receipt struct {
	ID       string
	Backend  string
	Location string
	Degraded bool
}

// ForwardResult is the outcome of relaying an event downstream
type ForwardResult struct {
	Status     ForwardStatus
	StatusCode int
	Response   any
	Message    string
}

// Request carries what the transport layer extracted from an inbound call
type Request struct {
	Body      []byte
	Signature string
	Source    string
	ClientIP  string
	Headers   map[string]string
}

// Outcome is what the pipeline reports back for a processed event
type Outcome struct {
	Event   Event
	Storage Receipt
	Forward ForwardResult
}
