// Package record flattens events into the column and field values shared by the structured stores
package record

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/marcelsud/webhook-analyzer/webhook"
)

// Columns is an event flattened to column values; JSON columns are carried as text
type Columns struct {
	Source        string
	ClientIP      string
	Timestamp     time.Time
	RawPayload    string
	Headers       string
	ParsedData    string
	Analysis      sql.NullString
	Importance    string
	ForwardStatus string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Changes are the column values written by an update
type Changes struct {
	Analysis      sql.NullString
	Importance    sql.NullString
	ForwardStatus sql.NullString
	UpdatedAt     time.Time
}

func FromEvent(ev webhook.Event) (Columns, error) {
	headers := ev.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	h, err := json.Marshal(headers)
	if err != nil {
		return Columns{}, fmt.Errorf("encoding headers: %w", err)
	}
	data, err := json.Marshal(ev.ParsedData)
	if err != nil {
		return Columns{}, fmt.Errorf("encoding parsed data: %w", err)
	}
	analysis, err := encodeAnalysis(ev.Analysis)
	if err != nil {
		return Columns{}, err
	}

	return Columns{
		Source:        ev.Source,
		ClientIP:      ev.ClientIP,
		Timestamp:     ev.Timestamp.UTC(),
		RawPayload:    string(ev.RawPayload),
		Headers:       string(h),
		ParsedData:    string(data),
		Analysis:      analysis,
		Importance:    ev.Importance.String(),
		ForwardStatus: ev.ForwardStatus.String(),
		CreatedAt:     ev.CreatedAt.UTC(),
		UpdatedAt:     ev.UpdatedAt.UTC(),
	}, nil
}

// FromPatch runs the patch through Event.Apply so importance follows the analysis
func FromPatch(p webhook.Patch, now time.Time) (Changes, error) {
	var ev webhook.Event
	ev.Apply(p, now)

	c := Changes{UpdatedAt: ev.UpdatedAt.UTC()}
	if p.Analysis != nil {
		analysis, err := encodeAnalysis(ev.Analysis)
		if err != nil {
			return Changes{}, err
		}
		c.Analysis = analysis
		c.Importance = sql.NullString{String: ev.Importance.String(), Valid: true}
	}
	if p.ForwardStatus != nil {
		c.ForwardStatus = sql.NullString{String: ev.ForwardStatus.String(), Valid: true}
	}
	return c, nil
}

// Event rebuilds the domain value from a scanned row
func (c Columns) Event(id string) (webhook.Event, error) {
	ev := webhook.Event{
		ID:            id,
		Source:        c.Source,
		ClientIP:      c.ClientIP,
		Timestamp:     c.Timestamp.UTC(),
		RawPayload:    []byte(c.RawPayload),
		Importance:    webhook.NewImportance(c.Importance),
		ForwardStatus: webhook.NewForwardStatus(c.ForwardStatus),
		CreatedAt:     c.CreatedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
	}

	if c.Headers != "" {
		if err := json.Unmarshal([]byte(c.Headers), &ev.Headers); err != nil {
			return webhook.Event{}, fmt.Errorf("decoding headers of event %s: %w", id, err)
		}
	}
	if c.ParsedData != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(c.ParsedData)))
		dec.UseNumber()
		if err := dec.Decode(&ev.ParsedData); err != nil {
			return webhook.Event{}, fmt.Errorf("decoding parsed data of event %s: %w", id, err)
		}
	}
	if c.Analysis.Valid && c.Analysis.String != "" {
		var a webhook.Analysis
		if err := json.Unmarshal([]byte(c.Analysis.String), &a); err != nil {
			return webhook.Event{}, fmt.Errorf("decoding analysis of event %s: %w", id, err)
		}
		ev.Analysis = &a
		ev.Importance = a.Importance
	}
	return ev, nil
}

// ParseID accepts the decimal identifiers issued by the SQL stores
func ParseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func encodeAnalysis(a *webhook.Analysis) (sql.NullString, error) {
	if a == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding analysis: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
