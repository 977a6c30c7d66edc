package preview

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestFetcher(t *testing.T, timeout time.Duration) *Fetcher {
	t.Helper()
	return NewFetcher(timeout, zerolog.Nop())
}

func TestExtractURL(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"no url", "just chatting", ""},
		{"bare url", "https://example.com/stream", "https://example.com/stream"},
		{"url in sentence", "listen to http://radio.example/live right now", "http://radio.example/live"},
		{"first of several", "https://a.example and https://b.example", "https://a.example"},
		{"scheme only elsewhere", "ftp://a.example is not ours", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractURL(tc.text); got != tc.want {
				t.Errorf("ExtractURL(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestFetchNoURL(t *testing.T) {
	f := newTestFetcher(t, DefaultTimeout)

	if p := f.Fetch("nothing to see here"); p != nil {
		t.Errorf("expected nil preview, got %+v", p)
	}
}

func TestFetchOpenGraphPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Mozilla/5.0" {
			t.Errorf("unexpected User-Agent: %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`<html><head>
			<meta property="og:title" content="Night Radio">
			<meta property="og:image" content="https://img.example/cover.jpg">
			<title>fallback title</title>
		</head><body>hi</body></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, DefaultTimeout)
	p := f.Fetch("check out " + srv.URL + " tonight")

	if p == nil {
		t.Fatal("expected a preview")
	}
	if p.Title != "Night Radio" {
		t.Errorf("expected og:title, got %q", p.Title)
	}
	if p.ImageURL != "https://img.example/cover.jpg" {
		t.Errorf("unexpected image: %q", p.ImageURL)
	}
	if p.SourceURL != srv.URL {
		t.Errorf("unexpected source: %q", p.SourceURL)
	}
}

func TestFetchTitleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<title>Plain Title</title>
			<meta property="og:image" content="/cover.jpg">
		</head></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, DefaultTimeout)
	p := f.Fetch(srv.URL)

	if p == nil {
		t.Fatal("expected a preview")
	}
	if p.Title != "Plain Title" {
		t.Errorf("expected <title> fallback, got %q", p.Title)
	}
}

func TestFetchNoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>No pictures</title></head></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, DefaultTimeout)
	if p := f.Fetch(srv.URL); p != nil {
		t.Errorf("expected nil preview for page without image, got %+v", p)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newTestFetcher(t, DefaultTimeout)
	if p := f.Fetch(srv.URL); p != nil {
		t.Errorf("expected nil preview for 404, got %+v", p)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	f := newTestFetcher(t, 50*time.Millisecond)

	start := time.Now()
	p := f.Fetch(srv.URL)
	if p != nil {
		t.Errorf("expected nil preview on timeout, got %+v", p)
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("fetch did not respect timeout, took %v", elapsed)
	}
}

func TestFetchUnreachableHost(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	f := newTestFetcher(t, 200*time.Millisecond)
	if p := f.Fetch(target); p != nil {
		t.Errorf("expected nil preview for unreachable host, got %+v", p)
	}
}
