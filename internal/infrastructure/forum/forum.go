package forum

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/infrastructure/fetch"
	"LeakScanner/internal/ports"
)

// DefaultKeywords select board posts worth a look.
var DefaultKeywords = []string{"dump", "database", "combo", "vpn access", "ransom", "shell", "leak"}

// Options tune the forum adapter.
type Options struct {
	Boards    []string
	Keywords  []string
	UserAgent string
	// BoardDelay is the colly random delay between board requests.
	BoardDelay time.Duration
}

// Adapter walks forum boards through a proxy and surfaces posts whose
// anchor text matches a keyword.
type Adapter struct {
	opts      Options
	transport http.RoundTripper
	fetcher   *fetch.Fetcher
	logger    *slog.Logger
}

var _ ports.Adapter = (*Adapter)(nil)

// New wires the adapter. The fetcher must share transport so post pages go
// through the same proxy as the boards.
func New(opts Options, transport http.RoundTripper, fetcher *fetch.Fetcher, logger *slog.Logger) *Adapter {
	if len(opts.Keywords) == 0 {
		opts.Keywords = DefaultKeywords
	}
	keywords := make([]string, 0, len(opts.Keywords))
	for _, k := range opts.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	opts.Keywords = keywords
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Adapter{opts: opts, transport: transport, fetcher: fetcher, logger: logger}
}

// Kind identifies the adapter inside the registry.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourceForum
}

// ListCandidates visits every board and returns matching posts in page order.
func (a *Adapter) ListCandidates(ctx context.Context, limit int) ([]domain.Candidate, error) {
	var (
		out     []domain.Candidate
		seen    = map[string]struct{}{}
		lastErr error
		visited int
	)

	c := a.newCollector()
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if limit > 0 && len(out) >= limit {
			return
		}
		title := strings.TrimSpace(e.Text)
		href := strings.TrimSpace(e.Attr("href"))
		if title == "" || href == "" || !a.matches(title) {
			return
		}
		link := e.Request.AbsoluteURL(href)
		if link == "" {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		out = append(out, domain.Candidate{
			Source:  domain.SourceForum,
			ID:      link,
			Title:   title,
			Link:    link,
			PeekRef: link,
			FullRef: link,
			Ext:     ".html",
		})
	})
	c.OnError(func(r *colly.Response, err error) {
		a.warn("board request failed", "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	for _, board := range a.opts.Boards {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		if err := c.Visit(board); err != nil {
			lastErr = err
			continue
		}
		visited++
	}
	c.Wait()

	if visited == 0 && lastErr != nil {
		return nil, fmt.Errorf("%w: forum boards: %w", domain.ErrTransientFetch, lastErr)
	}
	a.debug("boards listed", "boards", len(a.opts.Boards), "candidates", len(out))
	return out, nil
}

func (a *Adapter) newCollector() *colly.Collector {
	options := []func(*colly.Collector){colly.MaxDepth(1)}
	if a.opts.UserAgent != "" {
		options = append(options, colly.UserAgent(a.opts.UserAgent))
	}
	c := colly.NewCollector(options...)
	c.WithTransport(a.transport)
	c.SetRequestTimeout(30 * time.Second)
	if a.opts.BoardDelay > 0 {
		if err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			RandomDelay: a.opts.BoardDelay,
		}); err != nil {
			a.warn("set board limit", "error", err)
		}
	}
	return c
}

func (a *Adapter) matches(title string) bool {
	lower := strings.ToLower(title)
	for _, k := range a.opts.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Peek reads the bounded prefix of the post page and returns the title plus
// its visible text.
func (a *Adapter) Peek(ctx context.Context, c domain.Candidate) (domain.FetchResult, error) {
	res, err := a.fetcher.Peek(ctx, c.PeekRef)
	if err != nil {
		return domain.FetchResult{}, err
	}
	res.Text = c.Title + "\n" + visibleText(res.Text)
	return res, nil
}

// FullFetch downloads the whole post page.
func (a *Adapter) FullFetch(ctx context.Context, c domain.Candidate) (domain.FetchResult, error) {
	res, err := a.fetcher.Full(ctx, c.FullRef)
	if err != nil {
		return domain.FetchResult{}, err
	}
	res.Text = c.Title + "\n" + visibleText(res.Text)
	return res, nil
}

// visibleText strips markup, scripts and styles. A truncated document is
// still parsed as far as it goes.
func visibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func (a *Adapter) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func (a *Adapter) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
