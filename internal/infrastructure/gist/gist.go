package gist

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/infrastructure/fetch"
	"LeakScanner/internal/ports"
)

// Adapter lists recent public gists and reads their raw file content.
type Adapter struct {
	client  *github.Client
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

var _ ports.Adapter = (*Adapter)(nil)

// New builds a gist adapter. An empty token uses anonymous API access; apiURL
// overrides the public API endpoint.
func New(ctx context.Context, token, apiURL string, fetcher *fetch.Fetcher, logger *slog.Logger) (*Adapter, error) {
	var tc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(tc)
	if apiURL != "" {
		base, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("%w: gist api url: %v", domain.ErrConfiguration, err)
		}
		client.BaseURL = base
	}

	return &Adapter{client: client, fetcher: fetcher, logger: logger}, nil
}

// Kind identifies the adapter inside the registry.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourceGist
}

// ListCandidates returns the newest public gists, one candidate per gist.
func (a *Adapter) ListCandidates(ctx context.Context, limit int) ([]domain.Candidate, error) {
	perPage := limit
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	opts := &github.GistListOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	gists, _, err := a.client.Gists.ListAll(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list gists: %w", domain.ErrTransientFetch, err)
	}

	var (
		out  []domain.Candidate
		seen = map[string]struct{}{}
	)
	for _, g := range gists {
		if limit > 0 && len(out) >= limit {
			break
		}
		c, ok := toCandidate(g)
		if !ok {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}

	a.debug("gists listed", "received", len(gists), "candidates", len(out))
	return out, nil
}

// toCandidate picks the first file by name; gists without a raw file are skipped.
func toCandidate(g *github.Gist) (domain.Candidate, bool) {
	if g == nil || g.GetID() == "" || len(g.Files) == 0 {
		return domain.Candidate{}, false
	}

	names := make([]string, 0, len(g.Files))
	for name := range g.Files {
		names = append(names, string(name))
	}
	sort.Strings(names)

	file := g.Files[github.GistFilename(names[0])]
	raw := file.GetRawURL()
	if raw == "" {
		return domain.Candidate{}, false
	}

	title := strings.TrimSpace(g.GetDescription())
	if title == "" {
		title = file.GetFilename()
	}

	return domain.Candidate{
		Source:       domain.SourceGist,
		ID:           g.GetID(),
		Title:        title,
		Link:         g.GetHTMLURL(),
		PeekRef:      raw,
		FullRef:      raw,
		Ext:          strings.ToLower(path.Ext(file.GetFilename())),
		DeclaredSize: int64(file.GetSize()),
	}, true
}

// Peek reads the bounded prefix of the gist file.
func (a *Adapter) Peek(ctx context.Context, c domain.Candidate) (domain.FetchResult, error) {
	return a.fetcher.Peek(ctx, c.PeekRef)
}

// FullFetch downloads the gist file up to the configured cap.
func (a *Adapter) FullFetch(ctx context.Context, c domain.Candidate) (domain.FetchResult, error) {
	return a.fetcher.Full(ctx, c.FullRef)
}

func (a *Adapter) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
