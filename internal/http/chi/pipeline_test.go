package chi

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/classify"
	"github.com/marcelsud/webhook-analyzer/webhook/file"
	"github.com/marcelsud/webhook-analyzer/webhook/forward"
	"github.com/marcelsud/webhook-analyzer/webhook/signature"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter fails until an answer is set
type scriptedCompleter struct {
	answer atomic.Pointer[string]
}

func (c *scriptedCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	if a := c.answer.Load(); a != nil {
		return *a, nil
	}
	return "", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
}

// stalledCompleter never answers; it returns only when its context ends
type stalledCompleter struct{}

func (stalledCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type collector struct {
	server *httptest.Server
	received chan forward.Envelope
	headers  chan http.Header
}

func newCollector(t *testing.T) *collector {
	t.Helper()
	c := &collector{
		received: make(chan forward.Envelope, 4),
		headers:  make(chan http.Header, 4),
	}
	c.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env forward.Envelope
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &env)
		c.received <- env
		c.headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accepted":true}`))
	}))
	t.Cleanup(c.server.Close)
	return c
}

type pipeline struct {
	handler   http.Handler
	store     *file.Repository
	completer *scriptedCompleter
	collector *collector
}

func newPipeline(t *testing.T, settings webhook.Settings) *pipeline {
	t.Helper()
	store, err := file.NewRepository(t.TempDir())
	require.NoError(t, err)

	completer := &scriptedCompleter{}
	classifier := classify.New(classify.NewRemote(completer, time.Second), zerolog.Nop())
	target := newCollector(t)
	forwarder := forward.New(true, target.server.URL, forward.DefaultTimeout)

	svc := webhook.NewService(store, classifier, forwarder, settings)
	return &pipeline{
		handler:   Handlers(svc, nil, Options{Logger: zerolog.Nop()}),
		store:     store,
		completer: completer,
		collector: target,
	}
}

func (p *pipeline) post(t *testing.T, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:40000"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	p.handler.ServeHTTP(w, req)
	return w
}

func (p *pipeline) stored(t *testing.T) []webhook.Event {
	t.Helper()
	events, err := p.store.List(context.Background(), 0)
	require.NoError(t, err)
	return events
}

func TestPipeline(t *testing.T) {
	settings := webhook.Settings{Secret: "s3cret", Classify: true}

	t.Run("success - unsigned high importance event is forwarded", func(t *testing.T) {
		p := newPipeline(t, settings)

		w := p.post(t, "/webhook/github", `{"event":"payment_failed","amount":10}`, map[string]string{"X-Real-IP": "198.51.100.4"})
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeBody[ingestResponse](t, w)
		assert.True(t, resp.Success)
		assert.Equal(t, "github", resp.Source)
		assert.Equal(t, webhook.High, resp.Importance)
		assert.Equal(t, file.Backend, resp.Storage.Backend)
		assert.Equal(t, webhook.ForwardSuccess, resp.Forward.Status)
		assert.Equal(t, http.StatusOK, resp.Forward.StatusCode)

		env := <-p.collector.received
		assert.Equal(t, "github", env.OriginalSource)
		assert.Equal(t, "198.51.100.4", env.ClientIP)
		assert.Equal(t, forward.ProcessedBy, env.ProcessedBy)
		assert.Equal(t, webhook.High, env.AIAnalysis.Importance)
		hdr := <-p.collector.headers
		assert.Equal(t, "analyzed-github", hdr.Get("X-Webhook-Source"))
		assert.Equal(t, "high", hdr.Get("X-Analysis-Importance"))

		events := p.stored(t)
		require.Len(t, events, 1)
		assert.Equal(t, resp.EventID, events[0].ID)
		assert.Equal(t, webhook.ForwardSuccess, events[0].ForwardStatus)
		assert.Equal(t, "198.51.100.4", events[0].ClientIP)
	})

	t.Run("success - signed request is accepted", func(t *testing.T) {
		p := newPipeline(t, settings)
		body := `{"event":"user_created"}`

		w := p.post(t, "/webhook", body, map[string]string{
			signature.Header: signature.Sign([]byte(body), "s3cret"),
			SourceHeader:     "shop",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "shop", decodeBody[ingestResponse](t, w).Source)
	})

	t.Run("error - bad signature persists nothing", func(t *testing.T) {
		p := newPipeline(t, settings)

		w := p.post(t, "/webhook/github", `{"event":"payment_failed"}`, map[string]string{
			signature.Header: signature.Sign([]byte(`{"event":"other"}`), "s3cret"),
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, p.stored(t))
	})

	t.Run("error - malformed JSON persists nothing", func(t *testing.T) {
		p := newPipeline(t, settings)

		w := p.post(t, "/webhook/github", `{"event":`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, p.stored(t))
	})

	t.Run("success - unreachable model falls back to rules", func(t *testing.T) {
		p := newPipeline(t, settings)

		w := p.post(t, "/webhook/stripe", `{"event":"order_created"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeBody[ingestResponse](t, w)
		require.NotNil(t, resp.Analysis)
		assert.Equal(t, classify.AnalyzerRules, resp.Analysis.Analyzer)
		assert.Equal(t, webhook.High, resp.Importance)
		assert.NotEmpty(t, resp.Analysis.Summary)
	})

	t.Run("success - low importance is skipped", func(t *testing.T) {
		p := newPipeline(t, settings)

		w := p.post(t, "/webhook/ci", `{"event":"job_completed"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeBody[ingestResponse](t, w)
		assert.Equal(t, webhook.Low, resp.Importance)
		assert.Equal(t, webhook.ForwardSkipped, resp.Forward.Status)
		assert.Contains(t, resp.Forward.Reason, "low")
		assert.Empty(t, p.collector.received)

		events := p.stored(t)
		require.Len(t, events, 1)
		assert.Equal(t, webhook.ForwardSkipped, events[0].ForwardStatus)
	})

	t.Run("success - reanalysis keeps identity", func(t *testing.T) {
		p := newPipeline(t, settings)

		w := p.post(t, "/webhook/ci", `{"event":"job_completed"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		id := decodeBody[ingestResponse](t, w).EventID
		before, err := p.store.Get(context.Background(), id)
		require.NoError(t, err)

		answer := `{"source":"ci","event_type":"deploy","importance":"high","summary":"production deploy finished with warnings","actions":["review"],"risks":[]}`
		p.completer.answer.Store(&answer)

		w = p.post(t, "/v1/events/"+id+"/reanalyze", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[actionResponse](t, w)
		assert.Equal(t, id, resp.EventID)
		assert.Equal(t, webhook.High, resp.Importance)
		assert.Equal(t, webhook.ForwardSkipped, resp.Forward.Status)

		after, err := p.store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, before.Source, after.Source)
		assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
		assert.Equal(t, webhook.High, after.Importance)
		require.NotNil(t, after.Analysis)
		assert.Equal(t, classify.AnalyzerRemote, after.Analysis.Analyzer)
		assert.Equal(t, "deploy", after.Analysis.EventType)
	})

	t.Run("success - manual forward ignores importance", func(t *testing.T) {
		p := newPipeline(t, settings)

		w := p.post(t, "/webhook/ci", `{"event":"job_completed"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		id := decodeBody[ingestResponse](t, w).EventID

		w = p.post(t, "/v1/events/"+id+"/forward", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, webhook.ForwardSuccess, decodeBody[actionResponse](t, w).Forward.Status)

		env := <-p.collector.received
		assert.Equal(t, webhook.Low, env.AIAnalysis.Importance)
	})

	t.Run("error - unknown event", func(t *testing.T) {
		p := newPipeline(t, settings)

		w := p.post(t, "/v1/events/nope_20260101_000000_000000/reanalyze", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPipeline_InvalidUTF8(t *testing.T) {
	p := newPipeline(t, webhook.Settings{Classify: true})

	w := p.post(t, "/webhook/shop", "{\"event\":\"order\xff\"}", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON payload", decodeBody[errorResponse](t, w).Error)
	assert.Empty(t, p.stored(t))
}

func TestPipeline_StalledModel(t *testing.T) {
	store, err := file.NewRepository(t.TempDir())
	require.NoError(t, err)
	target := newCollector(t)

	// the model timeout outlasts the request so the request deadline is what ends classification
	classifier := classify.New(classify.NewRemote(stalledCompleter{}, 5*time.Second), zerolog.Nop())
	svc := webhook.NewService(store, classifier, forward.New(true, target.server.URL, forward.DefaultTimeout),
		webhook.Settings{Classify: true})
	handler := Handlers(svc, nil, Options{Logger: zerolog.Nop(), RequestTimeout: 200 * time.Millisecond})

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(`{"event":"payment_failed"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[ingestResponse](t, w)
	assert.Equal(t, webhook.High, resp.Importance)
	assert.Equal(t, webhook.ForwardSuccess, resp.Forward.Status)

	select {
	case env := <-target.received:
		assert.Equal(t, "stripe", env.OriginalSource)
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not receive the event")
	}

	got, err := store.Get(context.Background(), resp.EventID)
	require.NoError(t, err)
	assert.Equal(t, webhook.High, got.Importance)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, webhook.ForwardSuccess, got.ForwardStatus)
}
