// Package preview resolves link metadata for chat messages. Everything here
// is best effort: any failure, timeout, or missing image degrades to "no
// preview" and never surfaces to the sender.
package preview

import (
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"geochat/internal/models"
)

// DefaultTimeout bounds the whole metadata fetch. The timeout is internal
// and absolute, not caller-cancellable.
const DefaultTimeout = 2 * time.Second

const browserUserAgent = "Mozilla/5.0"

// maxBodyBytes caps how much of the target page is read while looking for
// metadata. OpenGraph tags live in <head>, well within this.
const maxBodyBytes = 512 * 1024

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// ExtractURL returns the first http(s) URL substring in text, or "".
func ExtractURL(text string) string {
	return urlPattern.FindString(text)
}

// Fetcher fetches link previews with a bounded-time HTTP client.
type Fetcher struct {
	client *http.Client
	log    zerolog.Logger
}

func NewFetcher(timeout time.Duration, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		log:    logger.With().Str("component", "preview").Logger(),
	}
}

// Fetch scans text for a URL and resolves its OpenGraph metadata. Returns nil
// when text has no URL, the fetch fails or times out, or the page exposes no
// usable image.
func (f *Fetcher) Fetch(text string) *models.Preview {
	target := ExtractURL(text)
	if target == "" {
		return nil
	}

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debug().Err(err).Str("url", target).Msg("preview fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.log.Debug().Int("status", resp.StatusCode).Str("url", target).Msg("preview fetch rejected")
		return nil
	}

	meta := parseMetadata(io.LimitReader(resp.Body, maxBodyBytes))
	if meta.image == "" {
		return nil
	}

	title := meta.ogTitle
	if title == "" {
		title = meta.pageTitle
	}
	if title == "" {
		title = target
	}

	return &models.Preview{
		Title:     title,
		ImageURL:  meta.image,
		SourceURL: target,
	}
}

type pageMetadata struct {
	ogTitle   string
	pageTitle string
	image     string
}

// parseMetadata tokenizes the page looking for og:title, og:image, and the
// <title> element, stopping at the end of <head>.
func parseMetadata(r io.Reader) pageMetadata {
	var meta pageMetadata
	z := html.NewTokenizer(r)

	for {
		switch z.Next() {
		case html.ErrorToken:
			return meta

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "meta":
				var property, content string
				for _, a := range tok.Attr {
					switch a.Key {
					case "property", "name":
						property = a.Val
					case "content":
						content = a.Val
					}
				}
				switch property {
				case "og:title":
					meta.ogTitle = content
				case "og:image":
					meta.image = content
				}
			case "title":
				if z.Next() == html.TextToken {
					meta.pageTitle = strings.TrimSpace(z.Token().Data)
				}
			case "body":
				// Metadata lives in <head>; no point scanning further.
				return meta
			}

		case html.EndTagToken:
			if z.Token().Data == "head" {
				return meta
			}
		}
	}
}
