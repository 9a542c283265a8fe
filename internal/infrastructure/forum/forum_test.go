package forum

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"LeakScanner/internal/config"
	"LeakScanner/internal/domain"
	"LeakScanner/internal/infrastructure/fetch"
)

const boardHTML = `<html><body>
<a href="/t/1">Fresh combo 2M lines</a>
<a href="/t/2">Weekly chat</a>
<a href="/t/3">Corp DATABASE for sale</a>
<a href="/t/1">Fresh combo 2M lines</a>
<a href="">leak without href</a>
<a href="/t/4">VPN access to bank</a>
</body></html>`

const postHTML = `<html><head><style>body{}</style><script>var x=1;</script></head>
<body><h1>Corp database</h1><p>contact: seller@mail.test</p></body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/board", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(boardHTML))
	})
	mux.HandleFunc("/t/3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(postHTML))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAdapter(srv *httptest.Server, boards ...string) *Adapter {
	transport := srv.Client().Transport
	f := fetch.New(&http.Client{Transport: transport}, config.FetchConfig{
		PeekBytes:   4096,
		MaxBytes:    1 << 20,
		PeekTimeout: 2 * time.Second,
		FullTimeout: 2 * time.Second,
	}, nil)
	return New(Options{Boards: boards}, transport, f, nil)
}

func TestListCandidatesFiltersByKeyword(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	a := newAdapter(srv, srv.URL+"/board")

	got, err := a.ListCandidates(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	titles := make([]string, 0, len(got))
	for _, c := range got {
		titles = append(titles, c.Title)
	}
	want := []string{"Fresh combo 2M lines", "Corp DATABASE for sale", "VPN access to bank"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	if got[1].Link != srv.URL+"/t/3" {
		t.Fatalf("expected absolute link, got %q", got[1].Link)
	}
}

func TestListCandidatesLimit(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	a := newAdapter(srv, srv.URL+"/board")

	got, err := a.ListCandidates(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
}

func TestListCandidatesAllBoardsFail(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	a := newAdapter(srv, srv.URL+"/missing")

	if _, err := a.ListCandidates(context.Background(), 5); !errors.Is(err, domain.ErrTransientFetch) {
		t.Fatalf("expected ErrTransientFetch, got %v", err)
	}
}

func TestPeekExtractsVisibleText(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	a := newAdapter(srv)
	c := domain.Candidate{Source: domain.SourceForum, Title: "Corp DATABASE for sale", PeekRef: srv.URL + "/t/3", FullRef: srv.URL + "/t/3"}

	res, err := a.Peek(context.Background(), c)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if !strings.HasPrefix(res.Text, "Corp DATABASE for sale\n") {
		t.Fatalf("title missing from text %q", res.Text)
	}
	if strings.Contains(res.Text, "var x") || strings.Contains(res.Text, "body{}") {
		t.Fatalf("script or style leaked into text %q", res.Text)
	}
	if !strings.Contains(res.Text, "seller@mail.test") {
		t.Fatalf("body text missing from %q", res.Text)
	}

	full, err := a.FullFetch(context.Background(), c)
	if err != nil {
		t.Fatalf("full: %v", err)
	}
	if full.Text != res.Text {
		t.Fatalf("full text %q differs from peek %q", full.Text, res.Text)
	}
}

func TestNewProxyTransport(t *testing.T) {
	t.Parallel()

	tr, err := NewProxyTransport("socks5://127.0.0.1:9050")
	if err != nil || tr.DialContext == nil {
		t.Fatalf("expected socks5 transport, got %v", err)
	}
	if _, err := NewProxyTransport("http://127.0.0.1:8080"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for http proxy, got %v", err)
	}
	direct, err := NewProxyTransport("")
	if err != nil || direct.DialContext == nil {
		t.Fatalf("expected direct transport, got %v", err)
	}
}
