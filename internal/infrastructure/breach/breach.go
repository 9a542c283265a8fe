package breach

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/infrastructure/fetch"
	"LeakScanner/internal/ports"
)

// Renderer returns the rendered HTML of a page.
type Renderer func(ctx context.Context, pageURL string) (string, error)

// Source reads the breach-listing table.
type Source struct {
	pageURL string
	fetcher *fetch.Fetcher
	render  Renderer
	logger  *slog.Logger
}

var _ ports.ListingSource = (*Source)(nil)

// New builds a listing source. With a nil renderer the page is fetched as
// static HTML.
func New(pageURL string, fetcher *fetch.Fetcher, render Renderer, logger *slog.Logger) *Source {
	return &Source{pageURL: pageURL, fetcher: fetcher, render: render, logger: logger}
}

// Kind identifies the source inside the registry.
func (s *Source) Kind() domain.SourceKind {
	return domain.SourceBreach
}

// ListRows returns the first limit rows of the listing in page order.
func (s *Source) ListRows(ctx context.Context, limit int) ([]domain.ListingRow, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return nil, fmt.Errorf("breach listing: %w", err)
	}
	rows := ParseRows(doc, s.pageURL, limit)
	s.debug("listing parsed", "rows", len(rows))
	return rows, nil
}

func (s *Source) document(ctx context.Context) (*goquery.Document, error) {
	if s.render == nil {
		return s.fetcher.Document(ctx, s.pageURL)
	}
	html, err := s.render(ctx, s.pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: render: %w", domain.ErrTransientFetch, err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// ParseRows extracts listing rows; links are resolved against pageURL.
func ParseRows(doc *goquery.Document, pageURL string, limit int) []domain.ListingRow {
	base, _ := url.Parse(pageURL)

	var rows []domain.ListingRow
	doc.Find("tr.data-row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if limit > 0 && len(rows) >= limit {
			return false
		}
		rows = append(rows, parseRow(row, base))
		return true
	})
	return rows
}

func parseRow(row *goquery.Selection, base *url.URL) domain.ListingRow {
	var r domain.ListingRow

	r.Name = strings.TrimSpace(row.AttrOr("data-target", ""))
	if r.Name == "" {
		r.Name = strings.TrimSpace(row.Find("strong.target").First().Text())
	}

	if t := row.Find(`td[data-title="Discovered"] time`).First(); t.Length() > 0 {
		r.DiscoveredAt = strings.TrimSpace(t.AttrOr("datetime", ""))
		if r.DiscoveredAt == "" {
			r.DiscoveredAt = strings.TrimSpace(t.Text())
		}
	}

	if c := row.Find(`td[data-title="Country"] .badge__text`).First(); c.Length() > 0 {
		r.Country = strings.TrimSpace(c.Text())
	} else {
		r.Country = strings.TrimSpace(row.AttrOr("data-country", ""))
	}

	if g := row.Find(`td[data-title="Source"] a`).First(); g.Length() > 0 {
		r.SourceGroup = strings.TrimSpace(g.Text())
	} else {
		r.SourceGroup = strings.TrimSpace(row.AttrOr("data-group", ""))
	}

	if href, ok := row.Find(`td[data-title="Post"] a`).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		r.Link = resolve(base, strings.TrimSpace(href))
	}

	return r
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
