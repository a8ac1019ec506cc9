package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/coah80/userbot/internal/config"
)

var ErrMissingCredential = errors.New("missing spotify credential")

type Authenticator struct {
	cfg    config.Spotify
	oauth  *oauth2.Config
	out    io.Writer
	logger *zap.Logger
}

// NewAuthenticator validates the credentials up front. out receives the
// authorize URL when an interactive login is needed.
func NewAuthenticator(cfg config.Spotify, out io.Writer, logger *zap.Logger) (*Authenticator, error) {
	for _, kv := range []struct{ key, val string }{
		{"spotify.username", cfg.Username},
		{"spotify.client_id", cfg.ClientID},
		{"spotify.client_secret", cfg.ClientSecret},
	} {
		if strings.TrimSpace(kv.val) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingCredential, kv.key)
		}
	}
	if out == nil {
		out = io.Discard
	}

	return &Authenticator{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		out:    out,
		logger: logger.With(zap.String("component", "spotify")),
	}, nil
}

// Client returns an API client, reusing the cached token when there is one and
// running the interactive login otherwise.
func (a *Authenticator) Client(ctx context.Context) (*spotifyapi.Client, error) {
	tok, err := a.loadToken()
	if err != nil {
		a.logger.Info("No cached token, starting login", zap.String("cache", a.cfg.CachePath()), zap.Error(err))
		tok, err = a.Login(ctx, a.out)
		if err != nil {
			return nil, err
		}
	}

	ts := &cachingTokenSource{
		base:   a.oauth.TokenSource(ctx, tok),
		save:   a.saveToken,
		last:   tok.AccessToken,
		logger: a.logger,
	}
	return spotifyapi.New(oauth2.NewClient(ctx, ts)), nil
}

type callbackResult struct {
	code string
	err  error
}

// Login runs the authorization-code flow: it prints the authorize URL, waits
// for the redirect on the local callback server and exchanges the code.
func (a *Authenticator) Login(ctx context.Context, out io.Writer) (*oauth2.Token, error) {
	redirect, err := url.Parse(a.cfg.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid spotify.redirect_uri: %w", err)
	}
	if redirect.Host == "" {
		return nil, fmt.Errorf("invalid spotify.redirect_uri %q: no host", a.cfg.RedirectURI)
	}

	state := uuid.NewString()
	results := make(chan callbackResult, 1)

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen for spotify callback: %w", err)
	}
	srv := &http.Server{
		Handler:           a.callbackRouter(redirect.Path, state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(out, "Open this URL to authorize userbot:\n\n%s\n\n", a.oauth.AuthCodeURL(state))
	a.logger.Info("Waiting for spotify callback", zap.String("addr", redirect.Host), zap.String("path", redirect.Path))

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := a.oauth.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("exchange spotify code: %w", err)
	}
	if err := a.saveToken(tok); err != nil {
		return nil, err
	}
	a.logger.Info("Spotify token cached", zap.String("cache", a.cfg.CachePath()))
	return tok, nil
}

func (a *Authenticator) callbackRouter(path, state string, results chan<- callbackResult) http.Handler {
	if path == "" {
		path = "/"
	}
	var once sync.Once
	deliver := func(res callbackResult) {
		once.Do(func() { results <- res })
	}

	r := chi.NewRouter()
	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			deliver(callbackResult{err: fmt.Errorf("spotify authorization failed: %s", e)})
			http.Error(w, "authorization failed: "+e, http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		deliver(callbackResult{code: code})
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "Spotify authorized. You can close this window.")
	})
	return r
}

func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.cfg.CachePath())
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token cache: %w", err)
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return nil, errors.New("cached token expired and has no refresh token")
	}
	return &tok, nil
}

func (a *Authenticator) saveToken(tok *oauth2.Token) error {
	path := a.cfg.CachePath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create token cache dir: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return nil
}

// cachingTokenSource writes every refreshed token back to the cache file.
type cachingTokenSource struct {
	base   oauth2.TokenSource
	save   func(*oauth2.Token) error
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

func (s *cachingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.save(tok); err != nil {
			s.logger.Warn("Failed to cache refreshed token", zap.Error(err))
		}
	}
	return tok, nil
}
