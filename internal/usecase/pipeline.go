package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"LeakScanner/internal/config"
	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
	"LeakScanner/internal/severity"
	"LeakScanner/internal/signals"
)

// Admission reserves a full-download slot or returns an error wrapping
// domain.ErrGuardDenied.
type Admission interface {
	Acquire(ctx context.Context) (func(), error)
}

// Recorder receives pipeline counters.
type Recorder interface {
	Candidate(source, state string)
	Batch(source, outcome string)
	Event(source, severity string)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Guard      Admission
	Sink       ports.EventSink
	Artifacts  ports.ArtifactStore
	Extractor  *signals.Extractor
	Thresholds domain.ThresholdConfig
	Delays     config.DelayConfig
	Metrics    Recorder
	Logger     *slog.Logger

	// Sleep, Now and NewID default to real time and random UUIDs.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
	NewID func() string
}

// Pipeline implements peek, score, guard, full fetch, re-score and emit.
type Pipeline struct {
	guard      Admission
	sink       ports.EventSink
	artifacts  ports.ArtifactStore
	extractor  *signals.Extractor
	thresholds domain.ThresholdConfig
	delays     config.DelayConfig
	metrics    Recorder
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	newID      func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		guard:      deps.Guard,
		sink:       deps.Sink,
		artifacts:  deps.Artifacts,
		extractor:  deps.Extractor,
		thresholds: deps.Thresholds,
		delays:     deps.Delays,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		sleep:      deps.Sleep,
		now:        deps.Now,
		newID:      deps.NewID,
	}
	if p.extractor == nil {
		p.extractor = signals.NewExtractor(nil)
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = func() string { return uuid.NewString() }
	}
	if p.metrics == nil {
		p.metrics = noopRecorder{}
	}
	return p
}

// RunBatch enumerates up to limit candidates and processes them one by one.
// A guard denial stops the pass; the remaining candidates stay enumerated.
func (p *Pipeline) RunBatch(ctx context.Context, adapter ports.Adapter, limit int) BatchReport {
	report := BatchReport{Source: adapter.Kind()}
	logger := p.loggerFor(adapter.Kind())

	candidates, err := adapter.ListCandidates(ctx, limit)
	if err != nil {
		report.Outcome = OutcomeFailed
		report.Err = fmt.Errorf("list %s: %w", adapter.Kind(), err)
		logger.Warn("listing failed", "error", err)
		p.metrics.Batch(string(report.Source), string(report.Outcome))
		return report
	}

	report.Candidates = make([]CandidateReport, len(candidates))
	for i, c := range candidates {
		report.Candidates[i] = CandidateReport{Candidate: c, State: StateEnumerated}
	}
	logger.Info("batch started", "candidates", len(candidates))

	report.Outcome = OutcomeCompleted
	for i := range report.Candidates {
		if err := ctx.Err(); err != nil {
			report.Outcome = OutcomeFailed
			report.Err = err
			break
		}

		cr, err := p.ProcessCandidate(ctx, adapter, report.Candidates[i].Candidate)
		report.Candidates[i] = cr
		p.metrics.Candidate(string(report.Source), string(cr.State))
		if cr.State == StateClassified && cr.EventID != "" {
			report.Events++
		}
		if errors.Is(err, domain.ErrGuardDenied) {
			report.Outcome = OutcomePaused
			report.Err = err
			logger.Warn("batch paused by download guard", "candidate", cr.Candidate.ID, "remaining", len(report.Candidates)-i-1)
			break
		}

		if err := p.delay(ctx, p.delays.AfterMin, p.delays.AfterMax); err != nil {
			report.Outcome = OutcomeFailed
			report.Err = err
			break
		}
	}

	p.metrics.Batch(string(report.Source), string(report.Outcome))
	logger.Info("batch finished",
		"outcome", report.Outcome,
		"classified", report.Count(StateClassified),
		"skipped_low", report.Count(StateSkippedLow),
		"failed", report.Count(StatePeekFailed)+report.Count(StateFetchFailed),
	)
	return report
}

// ProcessCandidate moves one candidate through the state machine. The only
// error returned is a guard denial; every other failure is recorded in the
// report and logged.
func (p *Pipeline) ProcessCandidate(ctx context.Context, adapter ports.Adapter, c domain.Candidate) (CandidateReport, error) {
	logger := p.loggerFor(c.Source).With("candidate", c.ID)
	cr := CandidateReport{Candidate: c, State: StateEnumerated}

	peek, err := adapter.Peek(ctx, c)
	if err != nil {
		cr.State = StatePeekFailed
		cr.Err = err
		logger.Warn("peek failed", "gone", errors.Is(err, domain.ErrGone), "error", err)
		return cr, nil
	}
	cr.State = StatePeeked

	verdict, err := p.score(peek)
	if err != nil {
		cr.State = StatePeekFailed
		cr.Err = err
		logger.Warn("peek not scorable", "error", err)
		return cr, nil
	}
	cr.Score, cr.Label, cr.Reasons = verdict.Score, verdict.Label, verdict.Reasons
	logger.Debug("peek scored", "score", verdict.Score, "label", verdict.Label, "reasons", verdict.Reasons, "bytes", peek.ByteLength)

	if verdict.Label == domain.SeverityLow {
		cr.State = StateSkippedLow
		if err := p.delay(ctx, p.delays.SkipMin, p.delays.SkipMax); err != nil {
			cr.Err = err
		}
		return cr, nil
	}

	if p.guard != nil {
		release, err := p.guard.Acquire(ctx)
		if err != nil {
			cr.State = StateGuardDenied
			cr.Err = err
			return cr, err
		}
		defer release()
	}

	full, err := adapter.FullFetch(ctx, c)
	if err != nil {
		cr.State = StateFetchFailed
		cr.Err = err
		logger.Warn("full fetch failed", "oversize", errors.Is(err, domain.ErrResourceExceeded), "error", err)
		return cr, nil
	}
	cr.State = StateFetched

	if peek.ContentHash != "" && full.ContentHash != "" && peek.ContentHash != full.ContentHash {
		logger.Warn("content changed between peek and full fetch", "peek_hash", peek.ContentHash, "full_hash", full.ContentHash)
	}

	verdict, err = p.score(full)
	if err != nil {
		cr.State = StateFetchFailed
		cr.Err = err
		logger.Warn("full fetch not scorable", "error", err)
		return cr, nil
	}
	cr.Score, cr.Label, cr.Reasons = verdict.Score, verdict.Label, verdict.Reasons

	if p.artifacts != nil && full.Body != nil {
		path, err := p.artifacts.Save(ctx, c, full)
		if err != nil {
			logger.Warn("artifact not saved", "error", err)
		} else {
			cr.ArtifactPath = path
		}
	}

	ev := domain.Event{
		ID:           p.newID(),
		Source:       c.Source,
		Kind:         domain.KindFor(c.Source),
		Title:        c.Title,
		Link:         c.Link,
		Severity:     verdict.Label,
		Score:        verdict.Score,
		Reasons:      verdict.Reasons,
		ContentHash:  full.ContentHash,
		SizeBytes:    full.ByteLength,
		ArtifactPath: cr.ArtifactPath,
		Timestamp:    p.now().UTC(),
	}
	cr.State = StateClassified
	cr.EventID = ev.ID

	logger.Info("candidate classified", "source", c.Source, "score", verdict.Score, "label", verdict.Label, "reasons", verdict.Reasons)
	if err := p.emit(ctx, ev); err != nil {
		cr.Err = err
		logger.Warn("event sink failed", "event", ev.ID, "error", err)
	}
	return cr, nil
}

func (p *Pipeline) score(res domain.FetchResult) (domain.SeverityResult, error) {
	counts := p.extractor.Extract(res.Text)
	counts.SizeBytes = int(res.ByteLength)
	return severity.Evaluate(counts, p.thresholds)
}

func (p *Pipeline) emit(ctx context.Context, ev domain.Event) error {
	p.metrics.Event(string(ev.Source), string(ev.Severity))
	if p.sink == nil {
		return nil
	}
	return p.sink.Emit(ctx, ev)
}

func (p *Pipeline) delay(ctx context.Context, lo, hi time.Duration) error {
	if hi <= 0 {
		return nil
	}
	d := lo
	if hi > lo {
		d += rand.N(hi - lo)
	}
	return p.sleep(ctx, d)
}

func (p *Pipeline) loggerFor(source domain.SourceKind) *slog.Logger {
	logger := p.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With("source", source)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type noopRecorder struct{}

func (noopRecorder) Candidate(string, string) {}
func (noopRecorder) Batch(string, string)     {}
func (noopRecorder) Event(string, string)     {}
