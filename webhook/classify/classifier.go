package classify

import (
	"context"

	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/rs/zerolog"
)

/* Classifier tries the remote strategy first and always falls back to the rules
 * It satisfies webhook.Classifier
 */
type Classifier struct {
	remote *Remote
	rules  Rules
	logger zerolog.Logger
}

// New creates a classifier; with a nil remote only the rules are used
func New(remote *Remote, logger zerolog.Logger) *Classifier {
	return &Classifier{
		remote: remote,
		logger: logger,
	}
}

// Classify returns the remote analysis when it succeeds and the rule-based one otherwise
func (c *Classifier) Classify(ctx context.Context, data any, source string) webhook.Analysis {
	if c.remote != nil {
		out := c.remote.Analyze(ctx, data, source)
		if out.Status == Success {
			return out.Analysis
		}
		c.logger.Warn().
			Err(out.Err).
			Str("source", source).
			Str("status", out.Status.String()).
			Msg("remote classification unavailable, falling back to rules")
	}
	return c.rules.Classify(ctx, data, source)
}
