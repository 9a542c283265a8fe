package usecase

import (
	"context"
	"errors"
	"log/slog"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

type delivery struct {
	adapter   ports.Adapter
	candidate domain.Candidate
}

// Classifier is the shared pipeline consumer for push-style sources.
type Classifier struct {
	pipeline *Pipeline
	queue    chan delivery
	logger   *slog.Logger
}

// NewClassifier buffers up to buffer pending candidates.
func NewClassifier(pipeline *Pipeline, buffer int, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Classifier{
		pipeline: pipeline,
		queue:    make(chan delivery, buffer),
		logger:   logger,
	}
}

// Deliverer returns the callback handed to adapter.Subscribe. It blocks while
// the queue is full and gives up once ctx is done.
func (c *Classifier) Deliverer(ctx context.Context, adapter ports.Adapter) func(domain.Candidate) {
	return func(cand domain.Candidate) {
		select {
		case c.queue <- delivery{adapter: adapter, candidate: cand}:
		case <-ctx.Done():
		}
	}
}

// Run processes queued candidates until ctx is done. A guard denial drops
// the candidate; the subscription keeps running.
func (c *Classifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-c.queue:
			cr, err := c.pipeline.ProcessCandidate(ctx, d.adapter, d.candidate)
			c.pipeline.metrics.Candidate(string(d.candidate.Source), string(cr.State))
			if errors.Is(err, domain.ErrGuardDenied) {
				c.logger.Warn("download paused by guard", "source", d.candidate.Source, "candidate", d.candidate.ID)
			}
		}
	}
}
