package chi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marcelsud/webhook-analyzer/routes"
	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/signature"
	"github.com/rs/zerolog"
)

/* HTTP layer DTOs for the webhook API
 * Separate from domain entities to avoid leaking internal structure
 */

// SourceHeader names the source when the path does not
const SourceHeader = "X-Webhook-Source"

type storageResponse struct {
	Backend  string `json:"backend"`
	Location string `json:"location"`
	Degraded bool   `json:"degraded"`
}

type forwardResponse struct {
	Status     webhook.ForwardStatus `json:"status"`
	StatusCode int                   `json:"status_code,omitempty"`
	Reason     string                `json:"reason,omitempty"`
}

// ingestResponse is returned for an accepted webhook
type ingestResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Timestamp  time.Time          `json:"timestamp"`
	EventID    string             `json:"event_id"`
	Source     string             `json:"source"`
	Storage    storageResponse    `json:"storage"`
	Importance webhook.Importance `json:"importance"`
	Analysis   *webhook.Analysis  `json:"ai_analysis"`
	Forward    forwardResponse    `json:"forward"`
}

// routeResponse represents a route in the API; secrets never leave the process
type routeResponse struct {
	Source           string             `json:"source"`
	TargetURL        string             `json:"target_url,omitempty"`
	ForwardThreshold webhook.Importance `json:"forward_threshold"`
	RequireSignature bool               `json:"require_signature"`
	HasSecret        bool               `json:"has_secret"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

func newForwardResponse(r webhook.ForwardResult) forwardResponse {
	return forwardResponse{Status: r.Status, StatusCode: r.StatusCode, Reason: r.Message}
}

// postWebhook handles POST /webhook and POST /webhook/{source}
func postWebhook(webhookService webhook.UseCase, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			fail(w, logger, err)
			return
		}

		source := chi.URLParam(r, "source")
		if source == "" {
			source = strings.TrimSpace(r.Header.Get(SourceHeader))
		}

		outcome, err := webhookService.Ingest(r.Context(), webhook.Request{
			Body:      body,
			Signature: r.Header.Get(signature.Header),
			Source:    source,
			ClientIP:  clientIP(r),
			Headers:   firstValues(r.Header),
		})
		if err != nil {
			fail(w, logger, err)
			return
		}

		event := outcome.Event
		writeJSON(w, http.StatusOK, ingestResponse{
			Success:   true,
			Message:   "Webhook received and processed",
			Timestamp: event.Timestamp,
			EventID:   event.ID,
			Source:    event.Source,
			Storage: storageResponse{
				Backend:  outcome.Storage.Backend,
				Location: outcome.Storage.Location,
				Degraded: outcome.Storage.Degraded,
			},
			Importance: event.Importance,
			Analysis:   event.Analysis,
			Forward:    newForwardResponse(outcome.Forward),
		})
	})
}

// getRoutes handles GET /v1/routes
func getRoutes(routeLoader *routes.Loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		all := routeLoader.List()
		responses := make([]routeResponse, 0, len(all))
		for _, route := range all {
			responses = append(responses, routeResponse{
				Source:           route.Source,
				TargetURL:        route.TargetURL,
				ForwardThreshold: route.EffectiveThreshold(),
				RequireSignature: route.RequireSignature,
				HasSecret:        route.Secret != "",
			})
		}
		writeJSON(w, http.StatusOK, responses)
	})
}

func health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Service:   ServiceName,
		})
	})
}
