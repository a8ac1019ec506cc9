package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Version = "dev"

const (
	DefaultFile     = "config/userbot.ini"
	EnvPrefix       = "USERBOT"
	FileRetention   = 20 * time.Minute
	CleanupInterval = 5 * time.Minute
	MaxTrackedJobs  = 50
	RateLimitWindow = 60 * time.Second
	RateLimitMax    = 60
)

type Spotify struct {
	Username     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
	CacheDir     string
}

// CachePath is the token cache file, one per username.
func (s Spotify) CachePath() string {
	return filepath.Join(s.CacheDir, ".cache-"+s.Username)
}

type Transport struct {
	Token    string
	OwnerIDs []string
}

func (t Transport) Enabled() bool {
	return t.Token != ""
}

type Downloader struct {
	Binary          string
	TempDir         string
	OutputTemplate  string
	CookiesFile     string
	Proxies         []string
	ResolveTimeout  time.Duration
	DownloadTimeout time.Duration
}

type Bot struct {
	CommandPrefix string
	ErrorLimit    int
}

type HTTP struct {
	Addr        string
	CORSOrigins []string
}

type Alerts struct {
	WebhookURL string
	PingUserID string
}

type Log struct {
	Level  string
	Format string
}

type Config struct {
	Spotify    Spotify
	Discord    Transport
	Telegram   Transport
	Downloader Downloader
	Bot        Bot
	HTTP       HTTP
	Alerts     Alerts
	Log        Log
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("spotify.redirect_uri", "http://localhost:8888/callback")
	v.SetDefault("spotify.scope", "user-read-currently-playing app-remote-control streaming")
	v.SetDefault("spotify.cache_dir", "config")

	v.SetDefault("downloader.binary", "yt-dlp")
	v.SetDefault("downloader.temp_dir", filepath.Join(os.TempDir(), "userbot"))
	v.SetDefault("downloader.output_template", "%(title)s [%(id)s].%(ext)s")
	v.SetDefault("downloader.resolve_timeout", "15s")
	v.SetDefault("downloader.download_timeout", "10m")

	v.SetDefault("bot.command_prefix", ".")
	v.SetDefault("bot.error_limit", 500)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads .env, then the INI file at path (if it exists), then USERBOT_* env
// overrides. A missing file is not an error; a malformed one is.
func Load(v *viper.Viper, path string) (*Config, error) {
	godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("ini")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	resolveTimeout, err := duration(v, "downloader.resolve_timeout")
	if err != nil {
		return nil, err
	}
	downloadTimeout, err := duration(v, "downloader.download_timeout")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Spotify: Spotify{
			Username:     v.GetString("spotify.username"),
			ClientID:     v.GetString("spotify.client_id"),
			ClientSecret: v.GetString("spotify.client_secret"),
			RedirectURI:  v.GetString("spotify.redirect_uri"),
			Scope:        v.GetString("spotify.scope"),
			CacheDir:     v.GetString("spotify.cache_dir"),
		},
		Discord: Transport{
			Token:    v.GetString("discord.token"),
			OwnerIDs: SplitList(v.GetString("discord.owner_ids")),
		},
		Telegram: Transport{
			Token:    v.GetString("telegram.token"),
			OwnerIDs: SplitList(v.GetString("telegram.owner_ids")),
		},
		Downloader: Downloader{
			Binary:          v.GetString("downloader.binary"),
			TempDir:         v.GetString("downloader.temp_dir"),
			OutputTemplate:  v.GetString("downloader.output_template"),
			CookiesFile:     v.GetString("downloader.cookies_file"),
			Proxies:         SplitList(v.GetString("downloader.proxies")),
			ResolveTimeout:  resolveTimeout,
			DownloadTimeout: downloadTimeout,
		},
		Bot: Bot{
			CommandPrefix: v.GetString("bot.command_prefix"),
			ErrorLimit:    v.GetInt("bot.error_limit"),
		},
		HTTP: HTTP{
			Addr:        v.GetString("http.addr"),
			CORSOrigins: SplitList(v.GetString("http.cors_origins")),
		},
		Alerts: Alerts{
			WebhookURL: v.GetString("alerts.webhook_url"),
			PingUserID: v.GetString("alerts.ping_user_id"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	if cfg.Bot.ErrorLimit <= 0 {
		cfg.Bot.ErrorLimit = 500
	}
	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// SplitList splits a comma separated INI value, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func Contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
