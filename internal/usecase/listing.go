package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

// ListingDeps wires a listing source to its dedup state and sinks.
type ListingDeps struct {
	Source  ports.ListingSource
	Dedup   ports.DedupStore
	Archive ports.ListingArchive
	Sink    ports.EventSink
	Metrics Recorder
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

// ListingIngest accepts every newly seen listing row. Rows carry no content
// to score, so their events are unscored.
type ListingIngest struct {
	source  ports.ListingSource
	dedup   ports.DedupStore
	archive ports.ListingArchive
	sink    ports.EventSink
	metrics Recorder
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewListingIngest constructs the listing use case.
func NewListingIngest(deps ListingDeps) *ListingIngest {
	l := &ListingIngest{
		source:  deps.Source,
		dedup:   deps.Dedup,
		archive: deps.Archive,
		sink:    deps.Sink,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Now,
		newID:   deps.NewID,
	}
	if l.metrics == nil {
		l.metrics = noopRecorder{}
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.newID == nil {
		l.newID = func() string { return uuid.NewString() }
	}
	return l
}

// Kind reports the wrapped source.
func (l *ListingIngest) Kind() domain.SourceKind {
	return l.source.Kind()
}

// Run polls up to limit rows, keeps the unseen ones, archives them newest
// first and emits one event per accepted row.
func (l *ListingIngest) Run(ctx context.Context, limit int) BatchReport {
	kind := l.source.Kind()
	report := BatchReport{Source: kind}
	logger := l.logger.With("source", kind)

	rows, err := l.source.ListRows(ctx, limit)
	if err != nil {
		report.Outcome = OutcomeFailed
		report.Err = fmt.Errorf("list %s: %w", kind, err)
		logger.Warn("listing failed", "error", err)
		l.metrics.Batch(string(kind), string(report.Outcome))
		return report
	}

	var fresh []domain.ListingRow
	for _, row := range rows {
		key := row.DedupKey()
		cr := CandidateReport{
			Candidate: domain.Candidate{Source: kind, ID: key, Title: row.Name, Link: row.Link},
			State:     StateEnumerated,
		}

		isNew, err := l.dedup.MarkIfNew(ctx, key)
		switch {
		case err != nil:
			cr.Err = err
			logger.Warn("dedup check failed", "key", key, "error", err)
		case !isNew:
			cr.State = StateDuplicate
		default:
			cr.State = StateAccepted
			fresh = append(fresh, row)
		}
		report.Candidates = append(report.Candidates, cr)
	}

	if len(fresh) > 0 && l.archive != nil {
		if err := l.archive.Prepend(ctx, fresh); err != nil {
			// Nothing was persisted: release the claimed keys so the next
			// poll accepts these rows again, and emit nothing.
			report.Err = fmt.Errorf("archive rows: %w", err)
			logger.Warn("archive write failed", "rows", len(fresh), "error", err)
			l.release(ctx, &report, err)
			report.Outcome = OutcomeFailed
			l.record(report)
			return report
		}
	}

	acceptedIdx := 0
	for i := range report.Candidates {
		if report.Candidates[i].State != StateAccepted {
			continue
		}
		row := fresh[acceptedIdx]
		acceptedIdx++

		ev := l.event(kind, row)
		report.Candidates[i].EventID = ev.ID
		report.Events++
		l.metrics.Event(string(kind), "")
		if l.sink != nil {
			if err := l.sink.Emit(ctx, ev); err != nil {
				report.Candidates[i].Err = err
				logger.Warn("event sink failed", "event", ev.ID, "error", err)
			}
		}
		logger.Info("new listing", "name", row.Name, "group", row.SourceGroup, "country", row.Country)
	}

	report.Outcome = OutcomeCompleted
	l.record(report)
	logger.Info("listing poll finished", "rows", len(rows), "new", len(fresh))
	return report
}

func (l *ListingIngest) record(report BatchReport) {
	for _, cr := range report.Candidates {
		l.metrics.Candidate(string(report.Source), string(cr.State))
	}
	l.metrics.Batch(string(report.Source), string(report.Outcome))
}

func (l *ListingIngest) release(ctx context.Context, report *BatchReport, cause error) {
	for i := range report.Candidates {
		cr := &report.Candidates[i]
		if cr.State != StateAccepted {
			continue
		}
		cr.State = StateEnumerated
		cr.Err = cause
		if err := l.dedup.Unmark(ctx, cr.Candidate.ID); err != nil {
			cr.Err = errors.Join(cause, err)
			l.logger.Warn("dedup rollback failed", "key", cr.Candidate.ID, "error", err)
		}
	}
}

func (l *ListingIngest) event(kind domain.SourceKind, row domain.ListingRow) domain.Event {
	attrs := map[string]string{}
	for k, v := range map[string]string{
		"country":      row.Country,
		"source_group": row.SourceGroup,
		"discovered":   row.DiscoveredAt,
	} {
		if v != "" {
			attrs[k] = v
		}
	}
	if len(attrs) == 0 {
		attrs = nil
	}
	return domain.Event{
		ID:         l.newID(),
		Source:     kind,
		Kind:       domain.KindFor(kind),
		Title:      row.Name,
		Link:       row.Link,
		Severity:   domain.SeverityUnscored,
		Attributes: attrs,
		Timestamp:  l.now().UTC(),
	}
}
