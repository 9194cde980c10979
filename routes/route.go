package routes

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/marcelsud/webhook-analyzer/webhook"
)

/* Route holds the per-source overrides of the pipeline
 * Zero values fall back to the global configuration
 */
type Route struct {
	Source           string
	TargetURL        string
	Threshold        webhook.Importance // UnknownImportance means the default (high)
	RequireSignature bool
	Secret           string
}

// Validate checks if the route configuration is valid
func (r *Route) Validate() error {
	if r.Source == "" {
		return fmt.Errorf("source cannot be empty")
	}
	if strings.ContainsAny(r.Source, "/ \t") {
		return fmt.Errorf("source %q must be a single path segment", r.Source)
	}
	if r.TargetURL != "" {
		u, err := url.Parse(r.TargetURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("target_url must be an absolute http(s) URL for source %s", r.Source)
		}
	}
	if r.Threshold != webhook.UnknownImportance {
		if err := r.Threshold.Validate(); err != nil {
			return fmt.Errorf("invalid forward_threshold for source %s: %w", r.Source, err)
		}
	}
	if r.Secret != strings.TrimSpace(r.Secret) {
		return fmt.Errorf("secret for source %s has surrounding whitespace", r.Source)
	}
	return nil
}

// Policy converts the route into the pipeline's view of it
func (r *Route) Policy() webhook.SourcePolicy {
	return webhook.SourcePolicy{
		Secret:           r.Secret,
		RequireSignature: r.RequireSignature,
		TargetURL:        r.TargetURL,
		Threshold:        r.Threshold,
	}
}

// EffectiveThreshold returns the threshold the pipeline will apply
func (r *Route) EffectiveThreshold() webhook.Importance {
	if r.Threshold == webhook.UnknownImportance {
		return webhook.High
	}
	return r.Threshold
}
