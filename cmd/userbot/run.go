package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coah80/userbot/internal/alerts"
	"github.com/coah80/userbot/internal/bot"
	"github.com/coah80/userbot/internal/config"
	"github.com/coah80/userbot/internal/jobs"
	"github.com/coah80/userbot/internal/middleware"
	"github.com/coah80/userbot/internal/server"
	"github.com/coah80/userbot/internal/util"
	"github.com/coah80/userbot/internal/videodl"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect the chat transports and start the video downloader",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}
}

func (a *app) run(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	deps := util.CheckDependencies(cfg.Downloader.Binary)
	for _, d := range deps {
		if d.Found {
			logger.Info("Dependency found", zap.String("name", d.Name), zap.String("path", d.Path))
		} else if !d.Required {
			logger.Warn("Optional dependency missing", zap.String("name", d.Name))
		}
	}
	if missing := util.MissingRequired(deps); len(missing) > 0 {
		return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
	}

	tracker := jobs.NewTracker(config.MaxTrackedJobs)
	notifier := alerts.New(cfg.Alerts, logger)
	defer notifier.Wait()

	fetcher := videodl.NewFetcher(videodl.NewYtdlpRunner(cfg.Downloader.Binary), videodl.FetcherOpts{
		OutputTemplate: cfg.Downloader.OutputTemplate,
		CookiesFile:    cfg.Downloader.CookiesFile,
		Proxies:        cfg.Downloader.Proxies,
		Timeout:        cfg.Downloader.DownloadTimeout,
	}, logger.With(zap.String("component", "ytdlp")))

	video := bot.NewVideoPlugin(bot.VideoPluginOpts{
		Resolver:   videodl.NewResolver(&http.Client{}, cfg.Downloader.ResolveTimeout),
		Downloader: fetcher,
		TempDir:    cfg.Downloader.TempDir,
		ErrorLimit: cfg.Bot.ErrorLimit,
		Tracker:    tracker,
		Alerts:     notifier,
		Logger:     logger,
	})
	help := bot.NewHelp(cfg.Bot.CommandPrefix, logger)
	video.RegisterHelp(help)
	dispatcher := bot.NewDispatcher(logger, help, video)

	transports, err := buildTransports(cfg, dispatcher, logger)
	if err != nil {
		return err
	}

	if err := util.ClearTempDir(cfg.Downloader.TempDir); err != nil {
		return fmt.Errorf("prepare temp dir: %w", err)
	}
	if disk, err := util.GetDiskSpace(cfg.Downloader.TempDir); err == nil {
		logger.Info("Temp dir ready", zap.String("dir", cfg.Downloader.TempDir), zap.Float64("avail_gb", disk.AvailGB()))
	}
	util.StartCleanupInterval(ctx, cfg.Downloader.TempDir, config.CleanupInterval, config.FileRetention, logger)

	var names []string
	for _, t := range transports {
		if err := t.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", t.Name(), err)
		}
		defer t.Stop()
		names = append(names, t.Name())
	}

	var srv *http.Server
	srvErr := make(chan error, 1)
	if cfg.HTTP.Addr != "" {
		limiter := middleware.NewRateLimiter(config.RateLimitWindow, config.RateLimitMax)
		go limiter.Cleanup(ctx)
		srv = server.New(cfg.HTTP, cfg.Downloader.TempDir, tracker, limiter, logger)
		go func() {
			logger.Info("Ops server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				srvErr <- err
			}
		}()
	}

	notifier.BotStarted(names)
	logger.Info("Userbot running", zap.Strings("transports", names), zap.String("version", config.Version))

	select {
	case <-ctx.Done():
	case err = <-srvErr:
		logger.Error("Ops server failed", zap.Error(err))
	}

	logger.Info("Shutting down")
	notifier.BotStopping()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Ops server shutdown", zap.Error(err))
		}
	}
	return err
}

func buildTransports(cfg *config.Config, dispatcher *bot.Dispatcher, logger *zap.Logger) ([]bot.Transport, error) {
	var transports []bot.Transport
	if cfg.Discord.Enabled() {
		if len(cfg.Discord.OwnerIDs) == 0 {
			return nil, errors.New("discord.owner_ids is required when discord.token is set")
		}
		d, err := bot.NewDiscord(cfg.Discord, dispatcher, logger)
		if err != nil {
			return nil, fmt.Errorf("discord: %w", err)
		}
		transports = append(transports, d)
	}
	if cfg.Telegram.Enabled() {
		if len(cfg.Telegram.OwnerIDs) == 0 {
			return nil, errors.New("telegram.owner_ids is required when telegram.token is set")
		}
		t, err := bot.NewTelegram(cfg.Telegram, dispatcher, logger)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		transports = append(transports, t)
	}
	if len(transports) == 0 {
		return nil, errors.New("no chat transport configured: set discord.token or telegram.token")
	}
	return transports, nil
}
