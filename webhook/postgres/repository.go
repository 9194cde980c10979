package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/record"
)

/*
PostgreSQL implementation of webhook.Repository
- BIGSERIAL ids returned with RETURNING
- headers, parsed_data and ai_analysis are JSONB
- Updates touch only the patched columns
*/

const Backend = "postgres"

type Repository struct {
	DB *sql.DB
}

// NewRepository opens a repository with the default pool (25, 5, 5 min)
func NewRepository(connectionString string) (*Repository, error) {
	return NewRepositoryWithPoolConfig(connectionString, 25, 5, 5)
}

// NewRepositoryWithPoolConfig opens a repository with a custom pool
// maxOpenConns: maximum simultaneous connections (0 = unlimited)
// maxIdleConns: idle connections kept in the pool
// maxLifeMinutes: how long a connection may be reused
func NewRepositoryWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Repository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Repository{
		DB: db,
	}, nil
}

const selectEvent = `SELECT id, source, client_ip, timestamp, raw_payload, headers, parsed_data, ai_analysis, importance, forward_status, created_at, updated_at FROM webhook_events`

// Create inserts the event and returns the generated ID
func (r *Repository) Create(ctx context.Context, ev webhook.Event) (webhook.Receipt, error) {
	c, err := record.FromEvent(ev)
	if err != nil {
		return webhook.Receipt{}, err
	}

	query := `
		INSERT INTO webhook_events (source, client_ip, timestamp, raw_payload, headers, parsed_data, ai_analysis, importance, forward_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var id int64
	err = r.DB.QueryRowContext(ctx, query,
		c.Source, c.ClientIP, c.Timestamp, c.RawPayload, c.Headers, c.ParsedData,
		c.Analysis, c.Importance, c.ForwardStatus, c.CreatedAt, c.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return webhook.Receipt{}, fmt.Errorf("inserting webhook event: %w", err)
	}

	return webhook.Receipt{ID: record.FormatID(id), Backend: Backend, Location: "webhook_events"}, nil
}

// Get fetches one event by ID
func (r *Repository) Get(ctx context.Context, id string) (webhook.Event, error) {
	n, ok := record.ParseID(id)
	if !ok {
		return webhook.Event{}, webhook.ErrNotFound
	}

	ev, err := scan(r.DB.QueryRowContext(ctx, selectEvent+` WHERE id = $1`, n))
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Event{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Event{}, fmt.Errorf("selecting webhook event: %w", err)
	}
	return ev, nil
}

// Update writes the patched columns and bumps updated_at
func (r *Repository) Update(ctx context.Context, id string, patch webhook.Patch) error {
	n, ok := record.ParseID(id)
	if !ok {
		return webhook.ErrNotFound
	}
	c, err := record.FromPatch(patch, time.Now())
	if err != nil {
		return err
	}

	query := `
		UPDATE webhook_events
		SET ai_analysis = COALESCE($1::jsonb, ai_analysis),
			importance = COALESCE($2, importance),
			forward_status = COALESCE($3, forward_status),
			updated_at = $4
		WHERE id = $5
	`

	result, err := r.DB.ExecContext(ctx, query, c.Analysis, c.Importance, c.ForwardStatus, c.UpdatedAt, n)
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

// List returns the newest events first
func (r *Repository) List(ctx context.Context, limit int) ([]webhook.Event, error) {
	rows, err := r.DB.QueryContext(ctx, selectEvent+` ORDER BY timestamp DESC, id DESC LIMIT $1`, webhook.NormalizeLimit(limit))
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

// Close closes the connection pool
func (r *Repository) Close(ctx context.Context) error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// CreateTable creates the webhook_events table and its indexes
func (r *Repository) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS webhook_events (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			client_ip TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL,
			raw_payload TEXT NOT NULL,
			headers JSONB NOT NULL DEFAULT '{}',
			parsed_data JSONB,
			ai_analysis JSONB,
			importance TEXT NOT NULL DEFAULT 'unknown',
			forward_status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_webhook_events_source ON webhook_events (source);
		CREATE INDEX IF NOT EXISTS idx_webhook_events_timestamp ON webhook_events (timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_webhook_events_importance ON webhook_events (importance);
	`

	_, err := r.DB.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	return nil
}

// DropTable removes the table (used by tests)
func (r *Repository) DropTable(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, "DROP TABLE IF EXISTS webhook_events CASCADE")
	if err != nil {
		return fmt.Errorf("dropping table: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (webhook.Event, error) {
	var (
		id       int64
		headers  []byte
		parsed   []byte
		analysis []byte
		c        record.Columns
	)
	err := s.Scan(&id, &c.Source, &c.ClientIP, &c.Timestamp, &c.RawPayload, &headers, &parsed,
		&analysis, &c.Importance, &c.ForwardStatus, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return webhook.Event{}, err
	}
	c.Headers = string(headers)
	c.ParsedData = string(parsed)
	c.Analysis.String, c.Analysis.Valid = string(analysis), analysis != nil
	return c.Event(record.FormatID(id))
}
