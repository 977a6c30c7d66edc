package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(zerolog.Nop())
}

func TestMissingURL(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/radio-proxy", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUnsupportedScheme(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/radio-proxy?url=ftp%3A%2F%2Fexample.com", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRedirectPassthrough(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://next.example/stream")
		w.WriteHeader(http.StatusFound)
	}))
	defer origin.Close()

	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/radio-proxy?url="+origin.URL, nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 passthrough, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "http://next.example/stream" {
		t.Errorf("expected advertised redirect target, got %q", loc)
	}
}

func TestRedirectWithoutLocationCopiedVerbatim(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound) // no Location header
		w.Write([]byte("dead end"))
	}))
	defer origin.Close()

	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/radio-proxy?url="+origin.URL, nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected origin status copied, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("expected no redirect target, got %q", loc)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "dead end" {
		t.Errorf("expected origin body copied, got %q", body)
	}
}

func TestStreamsBodyAndHeaders(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Mozilla/5.0" {
			t.Errorf("unexpected User-Agent: %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Icy-Name", "Night Radio")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("mp3-bytes-go-here"))
	}))
	defer origin.Close()

	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/radio-proxy?url="+origin.URL, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("content type not copied: %q", ct)
	}
	if icy := rec.Header().Get("Icy-Name"); icy != "Night Radio" {
		t.Errorf("origin header not copied: %q", icy)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "mp3-bytes-go-here" {
		t.Errorf("body not streamed verbatim: %q", body)
	}
}

func TestOriginStatusCopied(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("denied"))
	}))
	defer origin.Close()

	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/radio-proxy?url="+origin.URL, nil))

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected origin status 403, got %d", rec.Code)
	}
}

func TestUpstreamUnreachable(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := origin.URL
	origin.Close()

	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/radio-proxy?url="+target, nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 for unreachable origin, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
}
