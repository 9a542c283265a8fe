package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"LeakScanner/internal/domain"
)

type fakeAdapter struct {
	kind       domain.SourceKind
	candidates []domain.Candidate
	listErr    error
	peeks      map[string]domain.FetchResult
	peekErrs   map[string]error
	fulls      map[string]domain.FetchResult
	fullErrs   map[string]error

	mu      sync.Mutex
	peeked  []string
	fetched []string
}

func (f *fakeAdapter) Kind() domain.SourceKind { return f.kind }

func (f *fakeAdapter) ListCandidates(_ context.Context, limit int) ([]domain.Candidate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && len(f.candidates) > limit {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

func (f *fakeAdapter) Peek(_ context.Context, c domain.Candidate) (domain.FetchResult, error) {
	f.mu.Lock()
	f.peeked = append(f.peeked, c.ID)
	f.mu.Unlock()
	if err := f.peekErrs[c.ID]; err != nil {
		return domain.FetchResult{}, err
	}
	return f.peeks[c.ID], nil
}

func (f *fakeAdapter) FullFetch(_ context.Context, c domain.Candidate) (domain.FetchResult, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, c.ID)
	f.mu.Unlock()
	if err := f.fullErrs[c.ID]; err != nil {
		return domain.FetchResult{}, err
	}
	return f.fulls[c.ID], nil
}

func (f *fakeAdapter) fetchedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// fakeGuard allows the first allow acquisitions and denies the rest.
type fakeGuard struct {
	mu     sync.Mutex
	allow  int
	calls  int
	active int
}

func (g *fakeGuard) Acquire(context.Context) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls > g.allow {
		return nil, fmt.Errorf("%w: test", domain.ErrGuardDenied)
	}
	g.active++
	return func() {
		g.mu.Lock()
		g.active--
		g.mu.Unlock()
	}, nil
}

type memorySink struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (s *memorySink) Emit(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *memorySink) snapshot() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

type memoryArtifacts struct {
	mu    sync.Mutex
	saved []string
}

func (a *memoryArtifacts) Save(_ context.Context, c domain.Candidate, res domain.FetchResult) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	path := fmt.Sprintf("mem/%s/%s", c.Source, c.ID)
	a.saved = append(a.saved, path)
	return path, nil
}

const (
	sensitiveText = "leak@corp.test password: hunter2"
	benignText    = "hello world"
)

func candidate(id string) domain.Candidate {
	return domain.Candidate{Source: domain.SourcePaste, ID: id, Title: "paste " + id, Link: "https://paste.test/" + id, Ext: ".txt"}
}

func peekOf(text string) domain.FetchResult {
	return domain.FetchResult{Text: text, ByteLength: int64(len(text)), StreamLength: int64(len(text))}
}

func fullOf(text, hash string) domain.FetchResult {
	return domain.FetchResult{Text: text, Body: []byte(text), ContentHash: hash, ByteLength: int64(len(text)), StreamLength: int64(len(text))}
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("ev-%d", n)
	}
}
