package paste

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"LeakScanner/internal/config"
	"LeakScanner/internal/domain"
	"LeakScanner/internal/infrastructure/fetch"
)

const archiveHTML = `
<html><body>
<div class="archive-table">
  <table class="maintable">
    <tr><th>Name</th></tr>
    <tr><td><a href="/AAAAAAAA">combo list</a></td></tr>
    <tr><td><a href="/archive/js">JavaScript</a></td></tr>
    <tr><td><a href="/BBBBBBBB">config dump</a></td></tr>
    <tr><td><a href="/AAAAAAAA">combo list</a></td></tr>
    <tr><td><a href="/CCCCCCCC">untitled</a></td></tr>
  </table>
</div>
<a href="/ZZZZZZZZ">sidebar</a>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(archiveHTML))
	})
	mux.HandleFunc("/raw/AAAAAAAA", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("admin@example.com:password123\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAdapter(srv *httptest.Server) *Adapter {
	f := fetch.New(srv.Client(), config.FetchConfig{
		PeekBytes:   16,
		MaxBytes:    1 << 20,
		PeekTimeout: 2 * time.Second,
		FullTimeout: 2 * time.Second,
	}, nil)
	return New(srv.URL+"/", f, nil)
}

func TestListCandidatesDedupsAndFilters(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	a := newAdapter(srv)

	got, err := a.ListCandidates(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	if diff := cmp.Diff([]string{"AAAAAAAA", "BBBBBBBB", "CCCCCCCC"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	first := got[0]
	if first.Title != "combo list" || first.Source != domain.SourcePaste {
		t.Fatalf("unexpected candidate %+v", first)
	}
	if first.PeekRef != srv.URL+"/raw/AAAAAAAA" || first.Link != srv.URL+"/AAAAAAAA" {
		t.Fatalf("unexpected refs %+v", first)
	}
}

func TestListCandidatesRespectsLimit(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(archiveHTML))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	a := New("https://paste.test", nil, nil)
	if got := a.extractCandidates(doc, 2); len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
}

func TestPeekAndFullFetch(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	a := newAdapter(srv)
	c := a.candidate("AAAAAAAA", "combo list")

	peek, err := a.Peek(context.Background(), c)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if peek.Text != "admin@example.co" {
		t.Fatalf("unexpected peek text %q", peek.Text)
	}

	full, err := a.FullFetch(context.Background(), c)
	if err != nil {
		t.Fatalf("full: %v", err)
	}
	if full.Text != "admin@example.com:password123\n" {
		t.Fatalf("unexpected full text %q", full.Text)
	}
	if full.ContentHash != peek.ContentHash {
		t.Fatalf("peek and full digests should match")
	}
}

func TestPeekGone(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	a := newAdapter(srv)

	_, err := a.Peek(context.Background(), a.candidate("DDDDDDDD", ""))
	if !errors.Is(err, domain.ErrGone) {
		t.Fatalf("expected ErrGone, got %v", err)
	}
}
