package videodl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/coah80/userbot/internal/util"
)

var ErrNoFiles = errors.New("no files downloaded")

// DownloadError is a failed downloader run. Stderr is what the user gets shown.
type DownloadError struct {
	Stderr   string
	ExitCode int
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("yt-dlp exited with code %d: %s", e.ExitCode, util.YtdlpErrorLine(e.Stderr))
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Invocation is one run of the downloader binary.
type Invocation struct {
	URL           string
	Output        string
	SkipCertCheck bool
	CookiesFile   string
	Proxy         string
}

type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

type ytdlpRunner struct {
	binary string
}

// NewYtdlpRunner runs the yt-dlp executable found at binary (or on PATH).
func NewYtdlpRunner(binary string) Runner {
	return &ytdlpRunner{binary: binary}
}

func (r *ytdlpRunner) Run(ctx context.Context, inv Invocation) error {
	cmd := ytdlp.New().Output(inv.Output)
	if r.binary != "" {
		cmd.SetExecutable(r.binary)
	}
	// go-ytdlp only passes PATH through; yt-dlp also needs HOME, proxy and
	// certificate variables.
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" && k != "PATH" {
			cmd.SetEnvVar(k, v)
		}
	}
	if inv.SkipCertCheck {
		cmd.NoCheckCertificates()
	}
	if inv.CookiesFile != "" {
		cmd.Cookies(inv.CookiesFile)
	}
	if inv.Proxy != "" {
		cmd.Proxy(inv.Proxy)
	}

	res, err := cmd.Run(ctx, inv.URL)
	if err == nil {
		return nil
	}
	dlErr := &DownloadError{Err: err, ExitCode: -1, Stderr: err.Error()}
	if res != nil {
		dlErr.ExitCode = res.ExitCode
		if strings.TrimSpace(res.Stderr) != "" {
			dlErr.Stderr = res.Stderr
		}
	}
	return dlErr
}

type FetcherOpts struct {
	OutputTemplate string
	CookiesFile    string
	Proxies        []string
	Timeout        time.Duration
}

type Fetcher struct {
	runner Runner
	opts   FetcherOpts
	logger *zap.Logger
}

func NewFetcher(runner Runner, opts FetcherOpts, logger *zap.Logger) *Fetcher {
	if opts.OutputTemplate == "" {
		opts.OutputTemplate = "%(title)s [%(id)s].%(ext)s"
	}
	return &Fetcher{runner: runner, opts: opts, logger: logger}
}

// Fetch downloads url into dir and returns the path of the produced file. A
// failed first run is retried exactly once with certificate checks disabled;
// onRetry is told about the first failure before the retry starts.
func (f *Fetcher) Fetch(ctx context.Context, url, dir string, onRetry func(*DownloadError)) (string, error) {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	inv := Invocation{
		URL:    url,
		Output: filepath.Join(dir, f.opts.OutputTemplate),
		Proxy:  util.RandomProxy(f.opts.Proxies),
	}
	if path, ok := util.CookiesFile(f.opts.CookiesFile); ok {
		inv.CookiesFile = path
	}

	err := f.runner.Run(ctx, inv)
	if err != nil {
		first := asDownloadError(err)
		f.logger.Warn("Download failed, retrying without certificate check",
			zap.String("url", url), zap.Int("exit_code", first.ExitCode))
		if onRetry != nil {
			onRetry(first)
		}

		inv.SkipCertCheck = true
		if err := f.runner.Run(ctx, inv); err != nil {
			return "", asDownloadError(err)
		}
	}

	return FindOutput(dir)
}

func asDownloadError(err error) *DownloadError {
	var dlErr *DownloadError
	if errors.As(err, &dlErr) {
		return dlErr
	}
	return &DownloadError{Err: err, ExitCode: -1, Stderr: err.Error()}
}

// FindOutput returns the first finished file in dir, by name.
func FindOutput(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read download dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ".part") || strings.Contains(name, ".part-Frag") ||
			strings.HasSuffix(name, ".ytdl") {
			continue
		}
		return filepath.Join(dir, name), nil
	}
	return "", ErrNoFiles
}
