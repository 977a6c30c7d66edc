// Package relay implements the radio proxy: it fetches a target URL and
// pipes the response through to the browser so clients sidestep
// mixed-content and CORS restrictions on the origin stream.
package relay

import (
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"geochat/internal/metrics"
)

const browserUserAgent = "Mozilla/5.0"

// Handler serves GET /radio-proxy?url=<target>.
type Handler struct {
	client *http.Client
	log    zerolog.Logger
}

func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{
		// Redirects are passed back to the client one hop at a time rather
		// than chased server-side. No timeout: a live stream ends only when
		// the client disconnects or the origin closes.
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: logger.With().Str("component", "relay").Logger(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		metrics.RelayRequests.WithLabelValues("bad_request").Inc()
		http.Error(w, "No URL provided", http.StatusBadRequest)
		return
	}

	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		metrics.RelayRequests.WithLabelValues("bad_request").Inc()
		http.Error(w, "Invalid URL", http.StatusBadRequest)
		return
	}

	// The request rides the client's context, so a disconnecting listener
	// releases the upstream connection.
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		metrics.RelayRequests.WithLabelValues("bad_request").Inc()
		http.Error(w, "Invalid URL", http.StatusBadRequest)
		return
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		metrics.RelayRequests.WithLabelValues("upstream_error").Inc()
		h.log.Warn().Err(err).Str("url", target).Msg("upstream fetch failed")
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound {
		// A redirect without a target is copied through verbatim below
		// instead of bouncing the client to an empty URL.
		if location := resp.Header.Get("Location"); location != "" {
			metrics.RelayRequests.WithLabelValues("redirect").Inc()
			http.Redirect(w, r, location, resp.StatusCode)
			return
		}
	}

	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	metrics.RelayRequests.WithLabelValues("streamed").Inc()
	if _, err := io.Copy(w, resp.Body); err != nil {
		// Broken upstream or client gone mid-stream; nothing left to send.
		h.log.Debug().Err(err).Str("url", target).Msg("stream ended")
	}
}
