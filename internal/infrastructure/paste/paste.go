package paste

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/infrastructure/fetch"
	"LeakScanner/internal/ports"
)

const (
	defaultBaseURL  = "https://pastebin.com"
	archiveSelector = "div.archive-table table.maintable a[href^='/']"
	// Archive links look like "/AbCdEfGh".
	pasteHrefLen = 9
)

// Adapter enumerates the public paste archive and reads pastes by id.
type Adapter struct {
	baseURL string
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

var _ ports.Adapter = (*Adapter)(nil)

// New builds the adapter; baseURL defaults to the public paste site.
func New(baseURL string, fetcher *fetch.Fetcher, logger *slog.Logger) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		fetcher: fetcher,
		logger:  logger,
	}
}

// Kind identifies the adapter inside the registry.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourcePaste
}

// ListCandidates returns up to limit archive entries, most recent first.
func (a *Adapter) ListCandidates(ctx context.Context, limit int) ([]domain.Candidate, error) {
	doc, err := a.fetcher.Document(ctx, a.baseURL+"/archive")
	if err != nil {
		return nil, fmt.Errorf("paste archive: %w", err)
	}

	candidates := a.extractCandidates(doc, limit)
	a.debug("archive listed", "candidates", len(candidates))
	return candidates, nil
}

func (a *Adapter) extractCandidates(doc *goquery.Document, limit int) []domain.Candidate {
	var (
		out  []domain.Candidate
		seen = map[string]struct{}{}
	)

	doc.Find(archiveSelector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		href, _ := link.Attr("href")
		if len(href) != pasteHrefLen || strings.Count(href, "/") != 1 {
			return true
		}
		id := href[1:]
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}

		out = append(out, a.candidate(id, strings.TrimSpace(link.Text())))
		return true
	})
	return out
}

func (a *Adapter) candidate(id, title string) domain.Candidate {
	raw := fmt.Sprintf("%s/raw/%s", a.baseURL, id)
	return domain.Candidate{
		Source:  domain.SourcePaste,
		ID:      id,
		Title:   title,
		Link:    fmt.Sprintf("%s/%s", a.baseURL, id),
		PeekRef: raw,
		FullRef: raw,
		Ext:     ".txt",
	}
}

// Peek reads the bounded prefix of the raw paste.
func (a *Adapter) Peek(ctx context.Context, c domain.Candidate) (domain.FetchResult, error) {
	return a.fetcher.Peek(ctx, c.PeekRef)
}

// FullFetch downloads the whole raw paste up to the configured cap.
func (a *Adapter) FullFetch(ctx context.Context, c domain.Candidate) (domain.FetchResult, error) {
	return a.fetcher.Full(ctx, c.FullRef)
}

func (a *Adapter) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
