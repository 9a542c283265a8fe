package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"LeakScanner/internal/ports"
)

// DedupStore persists seen keys in the dedup_keys table.
type DedupStore struct {
	db  *DB
	now func() time.Time
}

var _ ports.DedupStore = (*DedupStore)(nil)

// NewDedupStore wires the table-backed dedup store.
func NewDedupStore(db *DB) *DedupStore {
	return &DedupStore{db: db, now: time.Now}
}

// Seen reports whether key exists.
func (s *DedupStore) Seen(ctx context.Context, key string) (bool, error) {
	query, args, err := s.db.builder.
		Select("COUNT(1)").
		From("dedup_keys").
		Where(sq.Eq{"dedup_key": key}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build seen query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("query seen: %w", err)
	}
	return count > 0, nil
}

// MarkSeen records key; existing keys are left untouched.
func (s *DedupStore) MarkSeen(ctx context.Context, key string) error {
	_, err := s.MarkIfNew(ctx, key)
	return err
}

// MarkIfNew inserts key and reports whether this call created it. The
// database arbitrates concurrent callers through the primary key.
func (s *DedupStore) MarkIfNew(ctx context.Context, key string) (bool, error) {
	query, args, err := s.db.builder.
		Insert("dedup_keys").
		Columns("dedup_key", "created_at").
		Values(key, s.now().UTC().Format(time.RFC3339Nano)).
		Suffix("ON CONFLICT (dedup_key) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert dedup key: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// Unmark deletes key.
func (s *DedupStore) Unmark(ctx context.Context, key string) error {
	query, args, err := s.db.builder.
		Delete("dedup_keys").
		Where(sq.Eq{"dedup_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete dedup key: %w", err)
	}
	return nil
}
