package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/rs/zerolog"
)

const maxListLimit = 500

// eventResponse is the API view of a stored event
type eventResponse struct {
	ID            string                `json:"id"`
	Source        string                `json:"source"`
	ClientIP      string                `json:"client_ip"`
	Timestamp     time.Time             `json:"timestamp"`
	RawPayload    string                `json:"raw_payload"`
	Headers       map[string]string     `json:"headers"`
	ParsedData    any                   `json:"parsed_data"`
	Analysis      *webhook.Analysis     `json:"ai_analysis"`
	Importance    webhook.Importance    `json:"importance"`
	ForwardStatus webhook.ForwardStatus `json:"forward_status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type listResponse struct {
	Count  int             `json:"count"`
	Events []eventResponse `json:"events"`
}

// actionResponse answers the manual reanalyze and forward operations
type actionResponse struct {
	Success    bool               `json:"success"`
	EventID    string             `json:"event_id"`
	Source     string             `json:"source"`
	Importance webhook.Importance `json:"importance"`
	Analysis   *webhook.Analysis  `json:"ai_analysis"`
	Forward    forwardResponse    `json:"forward"`
}

type reanalyzeRequest struct {
	Forward bool `json:"forward"`
}

type forwardRequest struct {
	TargetURL string `json:"target_url"`
}

func newEventResponse(e webhook.Event) eventResponse {
	headers := e.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return eventResponse{
		ID:            e.ID,
		Source:        e.Source,
		ClientIP:      e.ClientIP,
		Timestamp:     e.Timestamp,
		RawPayload:    string(e.RawPayload),
		Headers:       headers,
		ParsedData:    e.ParsedData,
		Analysis:      e.Analysis,
		Importance:    e.Importance,
		ForwardStatus: e.ForwardStatus,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func newActionResponse(o webhook.Outcome) actionResponse {
	return actionResponse{
		Success:    true,
		EventID:    o.Event.ID,
		Source:     o.Event.Source,
		Importance: o.Event.Importance,
		Analysis:   o.Event.Analysis,
		Forward:    newForwardResponse(o.Forward),
	}
}

// EventView is the JSON shape GET /v1/events/{id} answers with
func EventView(e webhook.Event) any {
	return newEventResponse(e)
}

// ActionView is the JSON shape of the manual reanalyze and forward operations
func ActionView(o webhook.Outcome) any {
	return newActionResponse(o)
}

// decodeOptional reads an optional JSON body; an empty body leaves v untouched
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// getEvents handles GET /v1/events
func getEvents(webhookService webhook.UseCase, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := webhook.DefaultListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxListLimit)
		}

		events, err := webhookService.List(r.Context(), limit)
		if err != nil {
			fail(w, logger, err)
			return
		}

		responses := make([]eventResponse, 0, len(events))
		for _, e := range events {
			responses = append(responses, newEventResponse(e))
		}
		writeJSON(w, http.StatusOK, listResponse{Count: len(responses), Events: responses})
	})
}

// getEvent handles GET /v1/events/{id}
func getEvent(webhookService webhook.UseCase, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event, err := webhookService.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			fail(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newEventResponse(event))
	})
}

// postReanalyze handles POST /v1/events/{id}/reanalyze
func postReanalyze(webhookService webhook.UseCase, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req reanalyzeRequest
		if err := decodeOptional(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		outcome, err := webhookService.Reanalyze(r.Context(), chi.URLParam(r, "id"), req.Forward)
		if err != nil {
			fail(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newActionResponse(outcome))
	})
}

// postForward handles POST /v1/events/{id}/forward
func postForward(webhookService webhook.UseCase, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req forwardRequest
		if err := decodeOptional(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		outcome, err := webhookService.Forward(r.Context(), chi.URLParam(r, "id"), req.TargetURL)
		if err != nil {
			fail(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newActionResponse(outcome))
	})
}
