package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coah80/userbot/internal/videodl"
)

type chatCall struct {
	Op      string
	ChatID  string
	MsgID   string
	Text    string
	Path    string
	Caption string
}

type fakeChat struct {
	mu      sync.Mutex
	calls   []chatCall
	nextID  int
	failOps map[string]error
}

func (c *fakeChat) record(call chatCall) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.failOps[call.Op]
}

func (c *fakeChat) Send(ctx context.Context, chatID, text string) (string, error) {
	if err := c.record(chatCall{Op: "send", ChatID: chatID, Text: text}); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.nextID++
	id := fmt.Sprintf("status-%d", c.nextID)
	c.mu.Unlock()
	return id, nil
}

func (c *fakeChat) Edit(ctx context.Context, chatID, messageID, text string) error {
	return c.record(chatCall{Op: "edit", ChatID: chatID, MsgID: messageID, Text: text})
}

func (c *fakeChat) Delete(ctx context.Context, chatID, messageID string) error {
	return c.record(chatCall{Op: "delete", ChatID: chatID, MsgID: messageID})
}

func (c *fakeChat) SendVideo(ctx context.Context, chatID, path, caption string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return c.record(chatCall{Op: "video", ChatID: chatID, Path: path, Caption: caption})
}

func (c *fakeChat) ops(op string) []chatCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []chatCall
	for _, call := range c.calls {
		if call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

func (c *fakeChat) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, call := range c.calls {
		if call.Op == "send" || call.Op == "edit" {
			out = append(out, call.Text)
		}
	}
	return out
}

// fakeResolver mimics the production resolver: a fixed redirect table followed
// by host normalization.
type fakeResolver struct {
	redirects map[string]string
}

func (r fakeResolver) DownloadURL(ctx context.Context, rawURL string) string {
	if to, ok := r.redirects[rawURL]; ok {
		rawURL = to
	}
	return videodl.Normalize(rawURL)
}

type fakeDownloader struct {
	mu       sync.Mutex
	urls     []string
	filename string
	firstErr *videodl.DownloadError
	err      error
}

func (d *fakeDownloader) Fetch(ctx context.Context, url, dir string, onRetry func(*videodl.DownloadError)) (string, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	d.mu.Unlock()

	if d.firstErr != nil && onRetry != nil {
		onRetry(d.firstErr)
	}
	if d.err != nil {
		return "", d.err
	}
	if d.filename == "" {
		return "", errors.New("fakeDownloader: no filename")
	}
	path := filepath.Join(dir, d.filename)
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeAlerter struct {
	mu    sync.Mutex
	count int
}

func (a *fakeAlerter) DownloadFailed(jobID, url string, err error) {
	a.mu.Lock()
	a.count++
	a.mu.Unlock()
}
