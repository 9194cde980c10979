package webhook

import "context"

// Classifier judges the importance of a parsed payload; it always returns an analysis
type Classifier interface {
	Classify(ctx context.Context, data any, source string) Analysis
}

// Forwarder relays an event downstream; an empty targetURL selects the configured default
type Forwarder interface {
	Forward(ctx context.Context, event Event, analysis Analysis, targetURL string) ForwardResult
}

/* SourcePolicy overrides the global settings for one source
 * Zero values mean "use the global setting"
 */
type SourcePolicy struct {
	Secret           string
	RequireSignature bool
	TargetURL        string
	Threshold        Importance
}

// PolicyLookup resolves the policy configured for a source
type PolicyLookup interface {
	Policy(source string) (SourcePolicy, bool)
}

// Observer receives pipeline events for instrumentation
type Observer interface {
	Received(ctx context.Context, source string)
	Rejected(ctx context.Context, source, reason string)
	Stored(ctx context.Context, backend string, degraded bool)
	Classified(ctx context.Context, analyzer string, importance Importance)
	Forwarded(ctx context.Context, status ForwardStatus)
}

type nopObserver struct{}

func (nopObserver) Received(context.Context, string) {}
func (nopObserver) Rejected(context.Context, string, string) {}
func (nopObserver) Stored(context.Context, string, bool) {}
func (nopObserver) Classified(context.Context, string, Importance) {}
func (nopObserver) Forwarded(context.Context, ForwardStatus) {}
