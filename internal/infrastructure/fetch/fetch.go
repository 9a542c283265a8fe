package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"LeakScanner/internal/config"
	"LeakScanner/internal/domain"
)

// Fetcher performs bounded HTTP reads shared by the source adapters.
type Fetcher struct {
	client *http.Client
	cfg    config.FetchConfig
	logger *slog.Logger
}

// New wires an HTTP client with the configured read limits. The client must
// not set its own Timeout; per-call deadlines come from cfg.
func New(client *http.Client, cfg config.FetchConfig, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client, cfg: cfg, logger: logger}
}

// Limits exposes the configured read limits.
func (f *Fetcher) Limits() config.FetchConfig {
	return f.cfg
}

// Peek reads at most PeekBytes into Text. The rest of the stream is hashed up
// to MaxBytes so the peek carries the content identity; a stream longer than
// the cap leaves ContentHash empty.
func (f *Fetcher) Peek(ctx context.Context, rawURL string) (domain.FetchResult, error) {
	return f.PeekN(ctx, rawURL, f.cfg.PeekBytes)
}

// PeekN is Peek with an explicit prefix size.
func (f *Fetcher) PeekN(ctx context.Context, rawURL string, peekBytes int64) (domain.FetchResult, error) {
	ctx, cancel := withTimeout(ctx, f.cfg.PeekTimeout)
	defer cancel()

	resp, err := f.open(ctx, rawURL)
	if err != nil {
		return domain.FetchResult{}, err
	}
	defer resp.Body.Close()

	hasher := sha256.New()
	prefix := &prefixWriter{limit: peekBytes}
	n, err := io.Copy(io.MultiWriter(hasher, prefix), io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("%w: read %s: %w", domain.ErrTransientFetch, rawURL, err)
	}

	res := domain.FetchResult{
		Text:         decode(prefix.buf.Bytes()),
		ByteLength:   int64(prefix.buf.Len()),
		StreamLength: n,
	}
	if n <= f.cfg.MaxBytes {
		res.ContentHash = hex.EncodeToString(hasher.Sum(nil))
	}
	f.debug("peek", "url", rawURL, "prefix", res.ByteLength, "stream", n)
	return res, nil
}

// Full downloads the whole resource, failing with ErrResourceExceeded as soon
// as more than MaxBytes arrive.
func (f *Fetcher) Full(ctx context.Context, rawURL string) (domain.FetchResult, error) {
	return f.FullN(ctx, rawURL, f.cfg.MaxBytes)
}

// FullN is Full with an explicit cap.
func (f *Fetcher) FullN(ctx context.Context, rawURL string, maxBytes int64) (domain.FetchResult, error) {
	ctx, cancel := withTimeout(ctx, f.cfg.FullTimeout)
	defer cancel()

	resp, err := f.open(ctx, rawURL)
	if err != nil {
		return domain.FetchResult{}, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > maxBytes {
		return domain.FetchResult{}, fmt.Errorf("%w: %s declares %d bytes (cap %d)",
			domain.ErrResourceExceeded, rawURL, resp.ContentLength, maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("%w: read %s: %w", domain.ErrTransientFetch, rawURL, err)
	}
	if int64(len(body)) > maxBytes {
		return domain.FetchResult{}, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrResourceExceeded, rawURL, maxBytes)
	}

	sum := sha256.Sum256(body)
	f.debug("full fetch", "url", rawURL, "bytes", len(body))
	return domain.FetchResult{
		Text:         decode(body),
		Body:         body,
		ContentHash:  hex.EncodeToString(sum[:]),
		ByteLength:   int64(len(body)),
		StreamLength: int64(len(body)),
	}, nil
}

// Document fetches an HTML page for listing.
func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	ctx, cancel := withTimeout(ctx, f.cfg.PeekTimeout)
	defer cancel()

	resp, err := f.open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.cfg.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrTransientFetch, rawURL, err)
	}
	return doc, nil
}

func (f *Fetcher) open(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request %s: %w", domain.ErrTransientFetch, rawURL, err)
	}
	if err := CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}
	return resp, nil
}

// CheckStatus maps HTTP status codes onto the fetch error taxonomy.
func CheckStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s", domain.ErrGone, resp.Status)
	default:
		return fmt.Errorf("%w: unexpected status %s", domain.ErrTransientFetch, resp.Status)
	}
}

// NewClient returns an HTTP client without a global timeout.
func NewClient(transport http.RoundTripper) *http.Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{Transport: transport}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// decode replaces every invalid byte run with U+FFFD so removed bytes never
// join neighbouring text into new signals.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

type prefixWriter struct {
	buf   bytes.Buffer
	limit int64
}

func (w *prefixWriter) Write(p []byte) (int, error) {
	if room := w.limit - int64(w.buf.Len()); room > 0 {
		if int64(len(p)) > room {
			w.buf.Write(p[:room])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
