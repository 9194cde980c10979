package webhook

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/marcelsud/webhook-analyzer/webhook/payload"
	"github.com/marcelsud/webhook-analyzer/webhook/signature"
	"github.com/rs/zerolog"
)

/* Service is the ingestion pipeline
 * Uses pointer semantics as it's an API, not data
 * It holds no mutable state: concurrent requests share only read-only settings
 */

// UseCase defines the business operations exposed to the transport layer
type UseCase interface {
	Ingest(ctx context.Context, req Request) (Outcome, error)
	Get(ctx context.Context, id string) (Event, error)
	List(ctx context.Context, limit int) ([]Event, error)
	Reanalyze(ctx context.Context, id string, reforward bool) (Outcome, error)
	Forward(ctx context.Context, id, targetURL string) (Outcome, error)
}

// storeTimeout bounds each write that runs after classification
const storeTimeout = 5 * time.Second

// Settings is the part of the configuration the pipeline consumes
type Settings struct {
	Secret           string
	RequireSignature bool
	Classify         bool

	// ForwardTargets lists the URLs a manual forward may name besides the source's own route
	ForwardTargets []string
}

type Service struct {
	Repo       Repository
	Classifier Classifier
	Forwarder  Forwarder

	settings Settings
	policies PolicyLookup
	observer Observer
	logger   zerolog.Logger
}

// Option customizes optional collaborators of the Service
type Option func(*Service)

// WithPolicies sets the per-source policy table
func WithPolicies(p PolicyLookup) Option {
	return func(s *Service) {
		s.policies = p
	}
}

// WithObserver sets the instrumentation hook
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the operational logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a new pipeline with dependency injection
func NewService(repo Repository, classifier Classifier, forwarder Forwarder, settings Settings, opts ...Option) *Service {
	s := &Service{
		Repo:       repo,
		Classifier: classifier,
		Forwarder:  forwarder,
		settings:   settings,
		observer:   nopObserver{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest runs one inbound webhook through verification, storage, classification and forwarding
func (s *Service) Ingest(ctx context.Context, req Request) (Outcome, error) {
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = DefaultSource
	}
	policy := s.policy(source)
	log := s.logger.With().Str("source", source).Str("client_ip", req.ClientIP).Logger()
	s.observer.Received(ctx, source)

	if err := s.authenticate(req, policy); err != nil {
		log.Warn().Err(err).Msg("rejecting webhook")
		s.observer.Rejected(ctx, source, "signature")
		return Outcome{}, err
	}

	data, err := payload.Parse(req.Body)
	if err != nil {
		log.Warn().Err(err).Msg("rejecting webhook")
		s.observer.Rejected(ctx, source, "payload")
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	now := time.Now().UTC()
	event := Event{
		Source:        source,
		ClientIP:      req.ClientIP,
		Timestamp:     now,
		RawPayload:    req.Body,
		Headers:       req.Headers,
		ParsedData:    data,
		Importance:    UnknownImportance,
		ForwardStatus: ForwardPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	receipt, err := s.Repo.Create(ctx, event)
	if err != nil {
		return Outcome{}, fmt.Errorf("storing webhook event: %w", err)
	}
	event.ID = receipt.ID
	s.observer.Stored(ctx, receipt.Backend, receipt.Degraded)
	log.Info().
		Str("event_id", event.ID).
		Str("backend", receipt.Backend).
		Bool("degraded", receipt.Degraded).
		Msg("webhook stored")

	if s.settings.Classify {
		if err := s.classify(ctx, &event); err != nil {
			log.Warn().Err(err).Str("event_id", event.ID).Msg("persisting analysis")
		}
	}

	result, err := s.decide(ctx, &event, policy)
	if err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Msg("persisting forward status")
	}

	return Outcome{Event: event, Storage: receipt, Forward: result}, nil
}

// Get returns a stored event
func (s *Service) Get(ctx context.Context, id string) (Event, error) {
	event, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Event{}, fmt.Errorf("getting webhook event: %w", err)
	}
	return event, nil
}

// List returns the most recent events, newest first
func (s *Service) List(ctx context.Context, limit int) ([]Event, error) {
	events, err := s.Repo.List(ctx, NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing webhook events: %w", err)
	}
	return events, nil
}

/* Reanalyze classifies a stored event again
 * ID, source and creation time are preserved; with reforward the forwarding decision runs again
 */
func (s *Service) Reanalyze(ctx context.Context, id string, reforward bool) (Outcome, error) {
	event, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("getting webhook event: %w", err)
	}

	if err := s.classify(ctx, &event); err != nil {
		return Outcome{}, fmt.Errorf("persisting analysis: %w", err)
	}

	result := ForwardResult{Status: event.ForwardStatus}
	if reforward {
		result, err = s.decide(ctx, &event, s.policy(event.Source))
		if err != nil {
			return Outcome{}, fmt.Errorf("persisting forward status: %w", err)
		}
	}

	return Outcome{Event: event, Forward: result}, nil
}

// Forward relays a stored event regardless of its importance
func (s *Service) Forward(ctx context.Context, id, targetURL string) (Outcome, error) {
	event, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("getting webhook event: %w", err)
	}

	policy := s.policy(event.Source)
	switch {
	case targetURL == "":
		targetURL = policy.TargetURL
	case targetURL != policy.TargetURL && !slices.Contains(s.settings.ForwardTargets, targetURL):
		return Outcome{}, fmt.Errorf("%w: %s", ErrTargetNotAllowed, targetURL)
	}

	if event.Analysis == nil {
		if err := s.classify(ctx, &event); err != nil {
			return Outcome{}, fmt.Errorf("persisting analysis: %w", err)
		}
	}

	result, err := s.forward(ctx, &event, targetURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("persisting forward status: %w", err)
	}

	return Outcome{Event: event, Forward: result}, nil
}

func (s *Service) authenticate(req Request, policy SourcePolicy) error {
	if req.Signature == "" {
		if s.settings.RequireSignature || policy.RequireSignature {
			return ErrMissingSignature
		}
		return nil
	}

	secret := s.settings.Secret
	if policy.Secret != "" {
		secret = policy.Secret
	}
	if !signature.Verify(req.Body, req.Signature, secret) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Service) classify(ctx context.Context, event *Event) error {
	analysis := s.Classifier.Classify(ctx, event.ParsedData, event.Source)
	s.observer.Classified(ctx, analysis.Analyzer, analysis.Importance)
	s.logger.Debug().
		Str("event_id", event.ID).
		Str("analyzer", analysis.Analyzer).
		Str("importance", analysis.Importance.String()).
		Msg("webhook classified")
	return s.update(ctx, event, Patch{Analysis: &analysis})
}

func (s *Service) decide(ctx context.Context, event *Event, policy SourcePolicy) (ForwardResult, error) {
	threshold := policy.Threshold
	if threshold == UnknownImportance {
		threshold = High
	}

	if event.Importance.AtLeast(threshold) {
		return s.forward(ctx, event, policy.TargetURL)
	}

	skipped := ForwardSkipped
	result := ForwardResult{
		Status:  ForwardSkipped,
		Message: fmt.Sprintf("importance is %s, below forwarding threshold %s", event.Importance, threshold),
	}
	s.observer.Forwarded(ctx, skipped)
	return result, s.update(ctx, event, Patch{ForwardStatus: &skipped})
}

func (s *Service) forward(ctx context.Context, event *Event, targetURL string) (ForwardResult, error) {
	analysis := Analysis{Source: event.Source, Importance: event.Importance}
	if event.Analysis != nil {
		analysis = *event.Analysis
	}

	// the forwarder bounds itself; the request deadline may already be spent on classification
	result := s.Forwarder.Forward(context.WithoutCancel(ctx), *event, analysis, targetURL)
	s.observer.Forwarded(ctx, result.Status)
	s.logger.Info().
		Str("event_id", event.ID).
		Str("forward_status", result.Status.String()).
		Int("status_code", result.StatusCode).
		Msg("webhook forwarded")

	status := result.Status
	return result, s.update(ctx, event, Patch{ForwardStatus: &status})
}

/* update applies the patch in memory first so the caller always reports the latest state
 * The write is detached from the caller's cancellation so the stored record matches the response
 */
func (s *Service) update(ctx context.Context, event *Event, p Patch) error {
	event.Apply(p, time.Now().UTC())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := s.Repo.Update(ctx, event.ID, p); err != nil {
		return fmt.Errorf("updating webhook event %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) policy(source string) SourcePolicy {
	if s.policies == nil {
		return SourcePolicy{}
	}
	p, _ := s.policies.Policy(source)
	return p
}
