package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite" // pure Go SQLite driver
	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/record"
)

/*
SQLite implementation of webhook.Repository
- Same schema as the PostgreSQL store in SQLite dialect
- JSON columns are TEXT, timestamps are unix nanoseconds so ordering stays numeric
- A single connection serializes writers; reads go through a separate read-only pool so WAL keeps them unblocked
*/

const (
	Backend = "sqlite"

	maxReaders = 4
)

type Repository struct {
	DB     *sql.DB // writer, one connection
	Reader *sql.DB
	path   string
}

// NewRepository opens (or creates) the database file
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=query_only(1)")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening sqlite reader: %w", err)
	}
	if err := reader.Ping(); err != nil {
		reader.Close()
		db.Close()
		return nil, fmt.Errorf("pinging sqlite reader: %w", err)
	}
	reader.SetMaxOpenConns(maxReaders)

	return &Repository{DB: db, Reader: reader, path: path}, nil
}

const columns = `source, client_ip, timestamp, raw_payload, headers, parsed_data, ai_analysis, importance, forward_status, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, ev webhook.Event) (webhook.Receipt, error) {
	c, err := record.FromEvent(ev)
	if err != nil {
		return webhook.Receipt{}, err
	}

	result, err := r.DB.ExecContext(ctx,
		`INSERT INTO webhook_events (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Source, c.ClientIP, c.Timestamp.UnixNano(), c.RawPayload, c.Headers, c.ParsedData,
		c.Analysis, c.Importance, c.ForwardStatus, c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return webhook.Receipt{}, fmt.Errorf("inserting webhook event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return webhook.Receipt{}, fmt.Errorf("getting last insert ID: %w", err)
	}

	return webhook.Receipt{ID: record.FormatID(id), Backend: Backend, Location: r.path}, nil
}

func (r *Repository) Get(ctx context.Context, id string) (webhook.Event, error) {
	n, ok := record.ParseID(id)
	if !ok {
		return webhook.Event{}, webhook.ErrNotFound
	}

	row := r.Reader.QueryRowContext(ctx, `SELECT id, `+columns+` FROM webhook_events WHERE id = ?`, n)
	ev, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Event{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Event{}, fmt.Errorf("selecting webhook event: %w", err)
	}
	return ev, nil
}

// Update writes only the patched columns; COALESCE keeps the others
func (r *Repository) Update(ctx context.Context, id string, patch webhook.Patch) error {
	n, ok := record.ParseID(id)
	if !ok {
		return webhook.ErrNotFound
	}
	c, err := record.FromPatch(patch, time.Now())
	if err != nil {
		return err
	}

	result, err := r.DB.ExecContext(ctx, `
		UPDATE webhook_events
		SET ai_analysis = COALESCE(?, ai_analysis),
			importance = COALESCE(?, importance),
			forward_status = COALESCE(?, forward_status),
			updated_at = ?
		WHERE id = ?`,
		c.Analysis, c.Importance, c.ForwardStatus, c.UpdatedAt.UnixNano(), n,
	)
	if err != nil {
		return fmt.Errorf("updating webhook event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]webhook.Event, error) {
	rows, err := r.Reader.QueryContext(ctx,
		`SELECT id, `+columns+` FROM webhook_events ORDER BY timestamp DESC, id DESC LIMIT ?`,
		webhook.NormalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("selecting webhook events: %w", err)
	}
	defer rows.Close()

	events := []webhook.Event{}
	for rows.Next() {
		ev, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning webhook event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating webhook events: %w", err)
	}
	return events, nil
}

func (r *Repository) Close(ctx context.Context) error {
	var errs []error
	if r.Reader != nil {
		errs = append(errs, r.Reader.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS webhook_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		client_ip TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		raw_payload TEXT NOT NULL,
		headers TEXT NOT NULL DEFAULT '{}',
		parsed_data TEXT,
		ai_analysis TEXT,
		importance TEXT NOT NULL DEFAULT 'unknown',
		forward_status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_events_source ON webhook_events (source)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_events_timestamp ON webhook_events (timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_events_importance ON webhook_events (importance)`,
}

// CreateTable creates the schema when missing
func (r *Repository) CreateTable(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (webhook.Event, error) {
	var (
		id, ts, created, updated int64
		parsed                   sql.NullString
		c                        record.Columns
	)
	err := s.Scan(&id, &c.Source, &c.ClientIP, &ts, &c.RawPayload, &c.Headers, &parsed,
		&c.Analysis, &c.Importance, &c.ForwardStatus, &created, &updated)
	if err != nil {
		return webhook.Event{}, err
	}
	c.ParsedData = parsed.String
	c.Timestamp = time.Unix(0, ts)
	c.CreatedAt = time.Unix(0, created)
	c.UpdatedAt = time.Unix(0, updated)
	return c.Event(record.FormatID(id))
}
