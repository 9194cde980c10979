package redis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/record"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of webhook.Repository
 * Uses a hash per event and a sorted set as the timeline
 * Source and importance sets act as secondary indexes
 */

const (
	Backend = "redis"

	hashPrefix       = "event"             // Hash naming: event:{uuid}
	timelineKey      = "events:timeline"   // Sorted set scored by timestamp in microseconds
	sourcePrefix     = "events:source"     // Set naming: events:source:{source}
	importancePrefix = "events:importance" // Set naming: events:importance:{importance}
)

type Repository struct {
	client *redis.Client
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Repository{
		client: client,
	}, nil
}

// Create stores the event hash and its index entries in one transaction
func (r *Repository) Create(ctx context.Context, ev webhook.Event) (webhook.Receipt, error) {
	c, err := record.FromEvent(ev)
	if err != nil {
		return webhook.Receipt{}, err
	}

	id := uuid.NewString()
	key := hashKey(id)

	fields := map[string]interface{}{
		"id":             id,
		"source":         c.Source,
		"client_ip":      c.ClientIP,
		"timestamp":      c.Timestamp.UnixNano(),
		"raw_payload":    c.RawPayload,
		"headers":        c.Headers,
		"parsed_data":    c.ParsedData,
		"importance":     c.Importance,
		"forward_status": c.ForwardStatus,
		"created_at":     c.CreatedAt.UnixNano(),
		"updated_at":     c.UpdatedAt.UnixNano(),
	}
	if c.Analysis.Valid {
		fields["ai_analysis"] = c.Analysis.String
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.ZAdd(ctx, timelineKey, redis.Z{Score: float64(c.Timestamp.UnixMicro()), Member: id})
		pipe.SAdd(ctx, sourceKey(c.Source), id)
		pipe.SAdd(ctx, importanceKey(c.Importance), id)
		return nil
	})
	if err != nil {
		return webhook.Receipt{}, fmt.Errorf("storing webhook event: %w", err)
	}

	return webhook.Receipt{ID: id, Backend: Backend, Location: key}, nil
}

// Get retrieves an event by ID from its hash
func (r *Repository) Get(ctx context.Context, id string) (webhook.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return webhook.Event{}, webhook.ErrNotFound
	}

	data, err := r.client.HGetAll(ctx, hashKey(id)).Result()
	if err != nil {
		return webhook.Event{}, fmt.Errorf("getting webhook event: %w", err)
	}
	if len(data) == 0 {
		return webhook.Event{}, webhook.ErrNotFound
	}
	return decode(id, data)
}

// Update patches the hash under WATCH and moves the event between importance sets
func (r *Repository) Update(ctx context.Context, id string, patch webhook.Patch) error {
	if _, err := uuid.Parse(id); err != nil {
		return webhook.ErrNotFound
	}
	c, err := record.FromPatch(patch, time.Now())
	if err != nil {
		return err
	}
	key := hashKey(id)

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		previous, err := tx.HGet(ctx, key, "importance").Result()
		if errors.Is(err, redis.Nil) {
			return webhook.ErrNotFound
		}
		if err != nil {
			return err
		}

		fields := map[string]interface{}{"updated_at": c.UpdatedAt.UnixNano()}
		if c.Analysis.Valid {
			fields["ai_analysis"] = c.Analysis.String
		}
		if c.Importance.Valid {
			fields["importance"] = c.Importance.String
		}
		if c.ForwardStatus.Valid {
			fields["forward_status"] = c.ForwardStatus.String
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			if c.Importance.Valid && c.Importance.String != previous {
				pipe.SRem(ctx, importanceKey(previous), id)
				pipe.SAdd(ctx, importanceKey(c.Importance.String), id)
			}
			return nil
		})
		return err
	}, key)
	if errors.Is(err, webhook.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("updating webhook event: %w", err)
	}
	return nil
}

// List walks the timeline from the newest entry
func (r *Repository) List(ctx context.Context, limit int) ([]webhook.Event, error) {
	limit = webhook.NormalizeLimit(limit)

	ids, err := r.client.ZRevRange(ctx, timelineKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading timeline: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, hashKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting webhook events: %w", err)
	}

	events := make([]webhook.Event, 0, len(ids))
	for i, cmd := range cmds {
		data := cmd.Val()
		if len(data) == 0 {
			continue
		}
		ev, err := decode(ids[i], data)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// CountBySource returns how many events a source has sent
func (r *Repository) CountBySource(ctx context.Context, source string) (int64, error) {
	n, err := r.client.SCard(ctx, sourceKey(source)).Result()
	if err != nil {
		return 0, fmt.Errorf("counting events of source %s: %w", source, err)
	}
	return n, nil
}

// CountByImportance returns how many events currently hold the importance
func (r *Repository) CountByImportance(ctx context.Context, importance webhook.Importance) (int64, error) {
	n, err := r.client.SCard(ctx, importanceKey(importance.String())).Result()
	if err != nil {
		return 0, fmt.Errorf("counting events of importance %s: %w", importance, err)
	}
	return n, nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

func hashKey(id string) string {
	return fmt.Sprintf("%s:%s", hashPrefix, id)
}

func sourceKey(source string) string {
	return fmt.Sprintf("%s:%s", sourcePrefix, source)
}

func importanceKey(importance string) string {
	return fmt.Sprintf("%s:%s", importancePrefix, importance)
}

func decode(id string, data map[string]string) (webhook.Event, error) {
	analysis, ok := data["ai_analysis"]
	c := record.Columns{
		Source:        data["source"],
		ClientIP:      data["client_ip"],
		Timestamp:     unixNano(data["timestamp"]),
		RawPayload:    data["raw_payload"],
		Headers:       data["headers"],
		ParsedData:    data["parsed_data"],
		Analysis:      sql.NullString{String: analysis, Valid: ok},
		Importance:    data["importance"],
		ForwardStatus: data["forward_status"],
		CreatedAt:     unixNano(data["created_at"]),
		UpdatedAt:     unixNano(data["updated_at"]),
	}
	return c.Event(id)
}

func unixNano(s string) time.Time {
	n, _ := strconv.ParseInt(s, 10, 64)
	return time.Unix(0, n)
}
