package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

// EventStore appends classified events to the leak_events table.
type EventStore struct {
	db *DB
}

var _ ports.EventSink = (*EventStore)(nil)

// NewEventStore wires the table-backed event sink.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// Emit inserts ev; an event id already stored is ignored.
func (s *EventStore) Emit(ctx context.Context, ev domain.Event) error {
	reasons, err := json.Marshal(ev.Reasons)
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}
	attrs, err := json.Marshal(ev.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}

	query, args, err := s.db.builder.
		Insert("leak_events").
		Columns("id", "source", "kind", "title", "link", "severity", "score",
			"reasons", "content_hash", "size_bytes", "artifact_path", "attributes", "ts").
		Values(ev.ID, string(ev.Source), ev.Kind, ev.Title, ev.Link, string(ev.Severity), ev.Score,
			string(reasons), ev.ContentHash, ev.SizeBytes, ev.ArtifactPath, string(attrs),
			ev.Timestamp.UTC().Format(time.RFC3339Nano)).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first, optionally filtered by source.
func (s *EventStore) Recent(ctx context.Context, source domain.SourceKind, limit int) ([]domain.Event, error) {
	builder := s.db.builder.
		Select("id", "source", "kind", "title", "link", "severity", "score",
			"reasons", "content_hash", "size_bytes", "artifact_path", "attributes", "ts").
		From("leak_events").
		OrderBy("ts DESC")
	if source != "" {
		builder = builder.Where(sq.Eq{"source": string(source)})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	var out []domain.Event
	for rows.Next() {
		var (
			ev                   domain.Event
			source, severity, ts string
			reasons, attributes  string
		)
		if err := rows.Scan(&ev.ID, &source, &ev.Kind, &ev.Title, &ev.Link, &severity, &ev.Score,
			&reasons, &ev.ContentHash, &ev.SizeBytes, &ev.ArtifactPath, &attributes, &ts); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Source = domain.SourceKind(source)
		ev.Severity = domain.Severity(severity)
		if err := json.Unmarshal([]byte(reasons), &ev.Reasons); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode reasons: %w", err)
		}
		if err := json.Unmarshal([]byte(attributes), &ev.Attributes); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode attributes: %w", err)
		}
		if ev.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		out = append(out, ev)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}
	return out, nil
}
