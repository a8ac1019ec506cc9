package bot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/coah80/userbot/internal/jobs"
	"github.com/coah80/userbot/internal/util"
	"github.com/coah80/userbot/internal/videodl"
)

type URLResolver interface {
	DownloadURL(ctx context.Context, rawURL string) string
}

type Downloader interface {
	Fetch(ctx context.Context, url, dir string, onRetry func(*videodl.DownloadError)) (string, error)
}

type Alerter interface {
	DownloadFailed(jobID, url string, err error)
}

type VideoPluginOpts struct {
	Resolver   URLResolver
	Downloader Downloader
	TempDir    string
	ErrorLimit int
	Tracker    *jobs.Tracker
	Alerts     Alerter
	Logger     *zap.Logger
}

// VideoPlugin downloads Instagram and TikTok links posted on their own and
// reposts the video with a clean caption.
type VideoPlugin struct {
	resolver   URLResolver
	downloader Downloader
	tempDir    string
	errorLimit int
	tracker    *jobs.Tracker
	alerts     Alerter
	logger     *zap.Logger
}

func NewVideoPlugin(opts VideoPluginOpts) *VideoPlugin {
	if opts.ErrorLimit <= 0 {
		opts.ErrorLimit = 500
	}
	if opts.Tracker == nil {
		opts.Tracker = jobs.NewTracker(0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &VideoPlugin{
		resolver:   opts.Resolver,
		downloader: opts.Downloader,
		tempDir:    opts.TempDir,
		errorLimit: opts.ErrorLimit,
		tracker:    opts.Tracker,
		alerts:     opts.Alerts,
		logger:     opts.Logger.With(zap.String("component", "video_dl")),
	}
}

func (p *VideoPlugin) RegisterHelp(h *Help) {
	h.Add("video_dl",
		HelpEntry{
			Usage:       "https://instagram.com/reel/... or https://ddinstagram.com/reel/...",
			Description: "Automatically downloads Instagram videos/reels when you send a link and uploads them with a proper caption.",
		},
		HelpEntry{
			Usage:       "https://tiktok.com/... or https://vt.tiktok.com/...",
			Description: "Automatically downloads TikTok videos when you send a link and uploads them with the original caption and link.",
		},
	)
}

func (p *VideoPlugin) Handle(ctx context.Context, chat Chat, msg Message) bool {
	link, ok := videodl.Find(msg.Text)
	if !ok {
		return false
	}
	p.process(ctx, chat, msg, link)
	return true
}

type statusMessage struct {
	chat   Chat
	chatID string
	id     string
}

func (s *statusMessage) edit(ctx context.Context, text string) error {
	return s.chat.Edit(ctx, s.chatID, s.id, text)
}

func (p *VideoPlugin) process(ctx context.Context, chat Chat, msg Message, link videodl.Link) {
	job := p.tracker.Start(string(link.Platform), link.URL)
	log := p.logger.With(
		zap.String("job", job.ID()),
		zap.String("platform", string(link.Platform)),
		zap.String("chat", msg.ChatID))

	downloadURL := p.resolver.DownloadURL(ctx, link.URL)
	job.SetURL(downloadURL)
	log.Info("Video link received", zap.String("url", link.URL), zap.String("download_url", downloadURL))

	statusID, err := chat.Send(ctx, msg.ChatID, fmt.Sprintf("Downloading from %s: %s", link.Platform, downloadURL))
	if err != nil {
		log.Error("Failed to send status message", zap.Error(err))
		job.SetError(err.Error())
		return
	}
	status := &statusMessage{chat: chat, chatID: msg.ChatID, id: statusID}

	if err := p.run(ctx, status, msg, link, downloadURL, job, log); err != nil {
		log.Error("Video download failed", zap.Error(err))
		job.SetError(err.Error())
		if editErr := status.edit(ctx, fmt.Sprintf("❌ Error: %s...", p.clip(err.Error()))); editErr != nil {
			log.Warn("Failed to report error", zap.Error(editErr))
		}
	}
}

// run is the straight-line download pipeline. Failures it reports to the user
// itself return nil; anything returned is reported by the caller.
func (p *VideoPlugin) run(ctx context.Context, status *statusMessage, msg Message, link videodl.Link, downloadURL string, job *jobs.Job, log *zap.Logger) error {
	if err := os.MkdirAll(p.tempDir, 0755); err != nil {
		return err
	}
	dir, err := os.MkdirTemp(p.tempDir, util.TempPrefix+"*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	if err := status.edit(ctx, fmt.Sprintf("⬇️ Downloading: %s", downloadURL)); err != nil {
		return err
	}

	job.SetStatus(jobs.StatusDownloading)
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var retryEditErr error
	path, err := p.downloader.Fetch(fetchCtx, downloadURL, dir, func(first *videodl.DownloadError) {
		job.SetStatus(jobs.StatusRetrying)
		retryEditErr = status.edit(ctx, fmt.Sprintf("⚠️ Failed to download: %s...\n\nTrying with different options...", p.clip(first.Stderr)))
		if retryEditErr != nil {
			cancel()
		}
	})
	if retryEditErr != nil {
		return retryEditErr
	}

	var dlErr *videodl.DownloadError
	switch {
	case errors.As(err, &dlErr):
		job.SetError(util.YtdlpErrorLine(dlErr.Stderr))
		if p.alerts != nil {
			p.alerts.DownloadFailed(job.ID(), downloadURL, dlErr)
		}
		log.Warn("Download failed after retry", zap.Int("exit_code", dlErr.ExitCode))
		if editErr := status.edit(ctx, fmt.Sprintf("❌ Download failed. Error: %s...", p.clip(dlErr.Stderr))); editErr != nil {
			log.Warn("Failed to report download failure", zap.Error(editErr))
		}
		return nil
	case errors.Is(err, videodl.ErrNoFiles):
		job.SetError(err.Error())
		if editErr := status.edit(ctx, "❌ No files downloaded."); editErr != nil {
			log.Warn("Failed to report missing files", zap.Error(editErr))
		}
		return nil
	case err != nil:
		return err
	}

	caption := videodl.Caption(path, downloadURL)
	deleteTrigger := videodl.OnlyLink(msg.Text, link)

	if err := status.edit(ctx, "⬆️ Uploading video..."); err != nil {
		return err
	}
	job.SetStatus(jobs.StatusUploading)
	if err := status.chat.SendVideo(ctx, msg.ChatID, path, caption); err != nil {
		return err
	}

	if deleteTrigger {
		if err := status.chat.Delete(ctx, msg.ChatID, msg.ID); err != nil {
			return err
		}
	}
	if err := status.chat.Delete(ctx, status.chatID, status.id); err != nil {
		return err
	}

	job.SetComplete()
	log.Info("Video uploaded", zap.Bool("deleted_trigger", deleteTrigger))
	return nil
}

func (p *VideoPlugin) clip(s string) string {
	return util.Truncate(s, p.errorLimit)
}
