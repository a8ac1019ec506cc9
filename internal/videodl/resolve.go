package videodl

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var hostReplacements = map[string]string{
	"ddinstagram.com":     "instagram.com",
	"www.ddinstagram.com": "www.instagram.com",
}

type Resolver struct {
	client  *http.Client
	timeout time.Duration
}

func NewResolver(client *http.Client, timeout time.Duration) *Resolver {
	if client == nil {
		client = &http.Client{}
	}
	return &Resolver{client: client, timeout: timeout}
}

// Resolve follows redirects with a single HEAD request. On a 200 it returns the
// final URL without its query string; on anything else the input comes back
// untouched.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return rawURL
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return rawURL
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.Request == nil || resp.Request.URL == nil {
		return rawURL
	}
	final, _, _ := strings.Cut(resp.Request.URL.String(), "?")
	return final
}

// Normalize rewrites embed-proxy hosts to the site yt-dlp knows how to extract.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	replacement, ok := hostReplacements[strings.ToLower(u.Host)]
	if !ok {
		return rawURL
	}
	u.Host = replacement
	return u.String()
}

// DownloadURL is what gets handed to the downloader and shown in the caption.
func (r *Resolver) DownloadURL(ctx context.Context, rawURL string) string {
	return Normalize(r.Resolve(ctx, rawURL))
}
