package videodl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveFollowsRedirectAndStripsQuery(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		switch r.URL.Path {
		case "/short":
			http.Redirect(w, r, "/@user/video/123?is_from_webapp=1&sender_device=pc", http.StatusFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	r := NewResolver(srv.Client(), time.Second)
	got := r.Resolve(context.Background(), srv.URL+"/short")

	assert.Equal(t, srv.URL+"/@user/video/123", got)
	assert.Equal(t, []string{http.MethodHead, http.MethodHead}, methods)
}

func TestResolveKeepsOriginalOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := NewResolver(srv.Client(), time.Second)
	in := srv.URL + "/reel/abc/?igsh=1"
	assert.Equal(t, in, r.Resolve(context.Background(), in))
}

func TestResolveKeepsOriginalOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL + "/p/abc/"
	srv.Close()

	r := NewResolver(nil, time.Second)
	assert.Equal(t, url, r.Resolve(context.Background(), url))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/reel/abc/", Normalize("https://www.ddinstagram.com/reel/abc/"))
	assert.Equal(t, "https://instagram.com/p/xyz", Normalize("https://ddinstagram.com/p/xyz"))
	assert.Equal(t, "https://vt.tiktok.com/ZS/", Normalize("https://vt.tiktok.com/ZS/"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestDownloadURLRewritesDDInstagram(t *testing.T) {
	var seen []string
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = append(seen, r.Method+" "+r.URL.String())
		return &http.Response{StatusCode: http.StatusNotFound, Body: http.NoBody, Request: r}, nil
	})}

	r := NewResolver(client, time.Second)
	got := r.DownloadURL(context.Background(), "https://ddinstagram.com/reel/abc/")

	assert.Equal(t, "https://instagram.com/reel/abc/", got)
	assert.Equal(t, []string{"HEAD https://ddinstagram.com/reel/abc/"}, seen)
}

func TestDownloadURLRewritesAfterRedirect(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Host == "ddinstagram.com" {
			resp := &http.Response{StatusCode: http.StatusFound, Header: http.Header{}, Body: http.NoBody, Request: r}
			resp.Header.Set("Location", "https://www.ddinstagram.com/reel/abc/?igsh=xyz")
			return resp, nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})}

	r := NewResolver(client, time.Second)
	got := r.DownloadURL(context.Background(), "https://ddinstagram.com/reel/abc/")
	assert.Equal(t, "https://www.instagram.com/reel/abc/", got)
}
