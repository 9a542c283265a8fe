package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"LeakScanner/internal/ports"
)

type periodicTask struct {
	name   string
	driver ports.Scheduler
	run    func(ctx context.Context)
}

// Scheduler runs periodic batch tasks and standing subscriptions together.
// Each source is sequential; sources run concurrently.
type Scheduler struct {
	periodic    []periodicTask
	subscribers []ports.Subscriber
	classifier  *Classifier
	logger      *slog.Logger
}

// NewScheduler returns an empty scheduler. classifier may be nil when no
// subscriptions are added.
func NewScheduler(classifier *Classifier, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{classifier: classifier, logger: logger}
}

// AddBatch runs pipeline.RunBatch for adapter on every driver tick.
func (s *Scheduler) AddBatch(pipeline *Pipeline, adapter ports.Adapter, driver ports.Scheduler, limit int) {
	s.periodic = append(s.periodic, periodicTask{
		name:   string(adapter.Kind()),
		driver: driver,
		run: func(ctx context.Context) {
			pipeline.RunBatch(ctx, adapter, limit)
		},
	})
}

// AddListing runs ingest.Run on every driver tick.
func (s *Scheduler) AddListing(ingest *ListingIngest, driver ports.Scheduler, limit int) {
	s.periodic = append(s.periodic, periodicTask{
		name:   string(ingest.Kind()),
		driver: driver,
		run: func(ctx context.Context) {
			ingest.Run(ctx, limit)
		},
	})
}

// AddSubscriber registers a standing subscription feeding the classifier.
func (s *Scheduler) AddSubscriber(sub ports.Subscriber) {
	s.subscribers = append(s.subscribers, sub)
}

// Tasks reports how many periodic and standing tasks are registered.
func (s *Scheduler) Tasks() (periodic, standing int) {
	return len(s.periodic), len(s.subscribers)
}

// Run blocks until ctx is done or a task fails.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, task := range s.periodic {
		task := task
		g.Go(func() error {
			s.logger.Info("periodic task started", "task", task.name)
			return task.driver.Run(ctx, func(ctx context.Context, _ time.Time) {
				task.run(ctx)
			})
		})
	}

	if len(s.subscribers) > 0 && s.classifier != nil {
		g.Go(func() error {
			return s.classifier.Run(ctx)
		})
		for _, sub := range s.subscribers {
			sub := sub
			g.Go(func() error {
				s.logger.Info("subscription started", "source", sub.Kind())
				return sub.Subscribe(ctx, s.classifier.Deliverer(ctx, sub))
			})
		}
	}

	return g.Wait()
}
