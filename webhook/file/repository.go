package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/rs/zerolog"
)

/* File implementation of webhook.Repository
 * One JSON document per event, named {source}_{YYYYMMDD_HHMMSS_micro}.json
 * Files are written to a temp name first and published atomically
 */

const (
	Backend = "file"

	extension     = ".json"
	tempPrefix    = ".tmp-"
	maxCollisions = 1000
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// record is the on-disk layout
type record struct {
	Timestamp     string            `json:"timestamp"`
	Source        string            `json:"source"`
	ClientIP      string            `json:"client_ip"`
	Headers       map[string]string `json:"headers"`
	RawPayload    string            `json:"raw_payload"`
	ParsedData    any               `json:"parsed_data"`
	AIAnalysis    *webhook.Analysis `json:"ai_analysis,omitempty"`
	Importance    string            `json:"importance,omitempty"`
	ForwardStatus string            `json:"forward_status,omitempty"`
	UpdatedAt     string            `json:"updated_at,omitempty"`
}

type Repository struct {
	dir    string
	logger zerolog.Logger
	// mu serializes read-modify-write updates; creates and reads never take it
	mu sync.Mutex
}

// Option customizes a Repository
type Option func(*Repository)

// WithLogger reports files that List cannot decode
func WithLogger(l zerolog.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// NewRepository creates the data directory if needed
func NewRepository(dir string, opts ...Option) (*Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	r := &Repository{dir: dir, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dir returns the data directory
func (r *Repository) Dir() string {
	return r.dir
}

// Create writes the event to a new file; a name collision moves the name forward by one microsecond
func (r *Repository) Create(ctx context.Context, ev webhook.Event) (webhook.Receipt, error) {
	data, err := encode(ev)
	if err != nil {
		return webhook.Receipt{}, err
	}

	tmp, err := r.writeTemp(data)
	if err != nil {
		return webhook.Receipt{}, err
	}
	defer os.Remove(tmp)

	for i := 0; i < maxCollisions; i++ {
		id := FileID(ev.Source, ev.Timestamp.Add(time.Duration(i)*time.Microsecond))
		path := r.path(id)

		err := os.Link(tmp, path)
		if err == nil {
			return webhook.Receipt{ID: id, Backend: Backend, Location: path}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return webhook.Receipt{}, fmt.Errorf("publishing event file: %w", err)
		}
	}
	return webhook.Receipt{}, fmt.Errorf("publishing event file: too many name collisions for source %q", ev.Source)
}

// Get reads one event file
func (r *Repository) Get(ctx context.Context, id string) (webhook.Event, error) {
	if !validID(id) {
		return webhook.Event{}, webhook.ErrNotFound
	}
	return r.read(id)
}

// Update applies the patch and atomically replaces the file
func (r *Repository) Update(ctx context.Context, id string, patch webhook.Patch) error {
	if !validID(id) {
		return webhook.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ev, err := r.read(id)
	if err != nil {
		return err
	}
	ev.Apply(patch, time.Now().UTC())

	data, err := encode(ev)
	if err != nil {
		return err
	}
	tmp, err := r.writeTemp(data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, r.path(id)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing event file: %w", err)
	}
	return nil
}

// List scans the directory and returns the newest events by embedded timestamp
func (r *Repository) List(ctx context.Context, limit int) ([]webhook.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	events := make([]webhook.Event, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, extension) {
			continue
		}
		ev, err := r.read(strings.TrimSuffix(name, extension))
		if err != nil {
			r.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable event file")
			continue
		}
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		return events[i].ID > events[j].ID
	})

	if limit = webhook.NormalizeLimit(limit); len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (r *Repository) Close(ctx context.Context) error {
	return nil
}

// FileID builds the deterministic name of an event file, without extension
func FileID(source string, ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("%s_%s_%06d", sanitize(source), ts.Format("20060102_150405"), ts.Nanosecond()/1000)
}

func sanitize(source string) string {
	s := unsafeChars.ReplaceAllString(source, "_")
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return webhook.DefaultSource
	}
	return s
}

func validID(id string) bool {
	return id != "" && !strings.HasPrefix(id, ".") && filepath.Base(id) == id
}

func (r *Repository) path(id string) string {
	return filepath.Join(r.dir, id+extension)
}

func (r *Repository) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp(r.dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return f.Name(), nil
}

func (r *Repository) read(id string) (webhook.Event, error) {
	data, err := os.ReadFile(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return webhook.Event{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Event{}, fmt.Errorf("reading event file: %w", err)
	}
	return decode(id, data)
}

func encode(ev webhook.Event) ([]byte, error) {
	rec := record{
		Timestamp:     ev.Timestamp.UTC().Format(time.RFC3339Nano),
		Source:        ev.Source,
		ClientIP:      ev.ClientIP,
		Headers:       ev.Headers,
		RawPayload:    string(ev.RawPayload),
		ParsedData:    ev.ParsedData,
		AIAnalysis:    ev.Analysis,
		Importance:    ev.Importance.String(),
		ForwardStatus: ev.ForwardStatus.String(),
		UpdatedAt:     ev.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding event file: %w", err)
	}
	return data, nil
}

func decode(id string, data []byte) (webhook.Event, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rec record
	if err := dec.Decode(&rec); err != nil {
		return webhook.Event{}, fmt.Errorf("decoding event file %s: %w", id, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
	if err != nil {
		return webhook.Event{}, fmt.Errorf("parsing timestamp of %s: %w", id, err)
	}
	updated := ts
	if rec.UpdatedAt != "" {
		if u, err := time.Parse(time.RFC3339Nano, rec.UpdatedAt); err == nil {
			updated = u
		}
	}

	ev := webhook.Event{
		ID:            id,
		Source:        rec.Source,
		ClientIP:      rec.ClientIP,
		Timestamp:     ts,
		RawPayload:    []byte(rec.RawPayload),
		Headers:       rec.Headers,
		ParsedData:    rec.ParsedData,
		Analysis:      rec.AIAnalysis,
		Importance:    webhook.NewImportance(rec.Importance),
		ForwardStatus: webhook.NewForwardStatus(rec.ForwardStatus),
		CreatedAt:     ts,
		UpdatedAt:     updated,
	}
	if ev.Analysis != nil {
		ev.Importance = ev.Analysis.Importance
	}
	if rec.ForwardStatus == "" {
		ev.ForwardStatus = webhook.ForwardPending
	}
	return ev, nil
}
