package ports

import (
	"context"
	"time"

	"LeakScanner/internal/domain"
)

// Adapter enumerates and fetches candidates from one content source.
type Adapter interface {
	Kind() domain.SourceKind
	ListCandidates(ctx context.Context, limit int) ([]domain.Candidate, error)
	Peek(ctx context.Context, c domain.Candidate) (domain.FetchResult, error)
	FullFetch(ctx context.Context, c domain.Candidate) (domain.FetchResult, error)
}

// Subscriber is a push-style source; Subscribe blocks for the lifetime of ctx
// and hands every eligible candidate to deliver.
type Subscriber interface {
	Adapter
	Subscribe(ctx context.Context, deliver func(domain.Candidate)) error
}

// ListingSource returns structured rows whose value is the metadata itself.
type ListingSource interface {
	Kind() domain.SourceKind
	ListRows(ctx context.Context, limit int) ([]domain.ListingRow, error)
}

// DedupStore is the durable set of previously accepted keys.
type DedupStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	MarkSeen(ctx context.Context, key string) error
	// MarkIfNew atomically inserts key and reports whether it was absent.
	MarkIfNew(ctx context.Context, key string) (bool, error)
	// Unmark forgets key so a row whose persistence failed is retried.
	Unmark(ctx context.Context, key string) error
}

// ListingArchive keeps the accepted listing rows, newest first.
type ListingArchive interface {
	Prepend(ctx context.Context, rows []domain.ListingRow) error
}

// EventSink receives classified events.
type EventSink interface {
	Emit(ctx context.Context, ev domain.Event) error
}

// ArtifactStore persists full-fetched content and returns its location.
type ArtifactStore interface {
	Save(ctx context.Context, c domain.Candidate, res domain.FetchResult) (string, error)
}

// HostMetrics is a point-in-time reading of host resources.
type HostMetrics struct {
	FreeDiskGB      float64
	CPUPercent      float64
	ActiveDownloads int64
}

// MetricsProvider samples host resources; CPU is measured over a short window.
type MetricsProvider interface {
	Sample(ctx context.Context) (HostMetrics, error)
}

// Scheduler controls when periodic jobs execute. Run blocks until ctx is done.
type Scheduler interface {
	Run(ctx context.Context, job func(context.Context, time.Time)) error
}
