package firestore

import (
	"context"
	"fmt"

	gfirestore "cloud.google.com/go/firestore"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

type writeFunc func(ctx context.Context, id string, ev domain.Event) error

// Store writes one Firestore document per event, keyed by event id.
type Store struct {
	write writeFunc
}

var _ ports.EventSink = (*Store)(nil)

// NewStore binds the collection on client.
func NewStore(client *gfirestore.Client, collection string) *Store {
	col := client.Collection(collection)
	return &Store{write: func(ctx context.Context, id string, ev domain.Event) error {
		_, err := col.Doc(id).Set(ctx, ev)
		return err
	}}
}

// Emit stores ev; re-emitting an id overwrites the same document.
func (s *Store) Emit(ctx context.Context, ev domain.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("firestore: event without id")
	}
	if err := s.write(ctx, ev.ID, ev); err != nil {
		return fmt.Errorf("firestore set %s: %w", ev.ID, err)
	}
	return nil
}
