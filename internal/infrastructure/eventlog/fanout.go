package eventlog

import (
	"context"
	"errors"
	"fmt"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

// Named attaches a label to a sink for error reporting.
type Named struct {
	Name string
	Sink ports.EventSink
}

// Fanout delivers every event to all sinks. One failing sink does not stop
// delivery to the others.
type Fanout struct {
	sinks []Named
}

var _ ports.EventSink = (*Fanout)(nil)

// NewFanout combines sinks in order.
func NewFanout(sinks ...Named) *Fanout {
	return &Fanout{sinks: sinks}
}

// Len reports how many sinks are attached.
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Emit sends ev everywhere and joins the failures.
func (f *Fanout) Emit(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Sink.Emit(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
