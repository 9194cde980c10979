package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-analyzer/webhook"
)

const (
	// ProcessedBy identifies this service in forwarded envelopes
	ProcessedBy = "webhook-analyzer"

	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// Envelope is the JSON document sent to the downstream collector
type Envelope struct {
	OriginalData      any              `json:"original_data"`
	OriginalSource    string           `json:"original_source"`
	OriginalTimestamp string           `json:"original_timestamp"`
	AIAnalysis        webhook.Analysis `json:"ai_analysis"`
	ProcessedBy       string           `json:"processed_by"`
	ClientIP          string           `json:"client_ip"`
}

// Forwarder relays analyzed events with a bounded timeout and no retries
type Forwarder struct {
	enabled    bool
	defaultURL string
	client     *http.Client
}

// New creates a forwarder; a non-positive timeout uses DefaultTimeout
func New(enabled bool, defaultURL string, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Forwarder{
		enabled:    enabled,
		defaultURL: defaultURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// Forward posts the envelope and maps every outcome to a forward status
func (f *Forwarder) Forward(ctx context.Context, event webhook.Event, analysis webhook.Analysis, targetURL string) webhook.ForwardResult {
	if !f.enabled {
		return webhook.ForwardResult{Status: webhook.ForwardDisabled}
	}
	if targetURL == "" {
		targetURL = f.defaultURL
	}
	if targetURL == "" {
		return webhook.ForwardResult{Status: webhook.ForwardError, Message: "no forward target configured"}
	}

	body, err := json.Marshal(Envelope{
		OriginalData:      event.ParsedData,
		OriginalSource:    event.Source,
		OriginalTimestamp: event.Timestamp.Format(time.RFC3339Nano),
		AIAnalysis:        analysis,
		ProcessedBy:       ProcessedBy,
		ClientIP:          event.ClientIP,
	})
	if err != nil {
		return webhook.ForwardResult{Status: webhook.ForwardError, Message: fmt.Sprintf("encoding envelope: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return webhook.ForwardResult{Status: webhook.ForwardError, Message: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Source", "analyzed-"+event.Source)
	req.Header.Set("X-Analysis-Importance", analysis.Importance.String())

	resp, err := f.client.Do(req)
	if err != nil {
		return failure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return failure(err)
	}

	result := webhook.ForwardResult{
		StatusCode: resp.StatusCode,
		Response:   decodeResponse(raw),
		Status:     webhook.ForwardFailed,
	}
	if resp.StatusCode == http.StatusOK {
		result.Status = webhook.ForwardSuccess
	}
	return result
}

func failure(err error) webhook.ForwardResult {
	var netErr net.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return webhook.ForwardResult{Status: webhook.ForwardTimeout, Message: "forward request timed out"}
	case errors.As(err, &opErr), errors.As(err, &dnsErr), errors.Is(err, syscall.ECONNREFUSED):
		return webhook.ForwardResult{Status: webhook.ForwardConnectionError, Message: "could not connect to forward target"}
	default:
		return webhook.ForwardResult{Status: webhook.ForwardError, Message: err.Error()}
	}
}

// decodeResponse returns the JSON body, an empty object for an empty body, or the raw text
func decodeResponse(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
