package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/coah80/userbot/internal/config"
	"github.com/coah80/userbot/internal/util"
)

const (
	colorOrange = 0xFFA500
	colorRed    = 0xFF4444
	colorGreen  = 0x2ECC71
)

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp"`
	Footer      *footer `json:"footer,omitempty"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type footer struct {
	Text string `json:"text"`
}

type payload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

// Notifier posts alerts to a Discord webhook. A zero webhook URL disables it.
type Notifier struct {
	webhookURL string
	pingUserID string
	client     *http.Client
	logger     *zap.Logger

	mu                sync.Mutex
	categoryCooldowns map[string]time.Time
	wg                sync.WaitGroup
}

func New(cfg config.Alerts, logger *zap.Logger) *Notifier {
	return &Notifier{
		webhookURL:        cfg.WebhookURL,
		pingUserID:        cfg.PingUserID,
		client:            &http.Client{Timeout: 10 * time.Second},
		logger:            logger.With(zap.String("component", "alerts")),
		categoryCooldowns: make(map[string]time.Time),
	}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

func (n *Notifier) send(category string, cooldown time.Duration, ping bool, color int, title, description string, fields map[string]string) {
	if !n.Enabled() {
		return
	}

	n.mu.Lock()
	now := time.Now()
	if cooldown > 0 {
		if last, ok := n.categoryCooldowns[category]; ok && now.Sub(last) < cooldown {
			n.mu.Unlock()
			return
		}
	}
	n.categoryCooldowns[category] = now
	n.mu.Unlock()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var embedFields []field
	for _, k := range keys {
		v := fields[k]
		if v == "" {
			continue
		}
		embedFields = append(embedFields, field{Name: k, Value: truncate(v, 1024), Inline: true})
	}

	p := payload{
		Embeds: []embed{{
			Title:       title,
			Description: truncate(description, 2048),
			Color:       color,
			Fields:      embedFields,
			Timestamp:   now.UTC().Format(time.RFC3339),
			Footer:      &footer{Text: "userbot " + config.Version},
		}},
	}

	if ping && n.pingUserID != "" {
		p.Content = fmt.Sprintf("<@%s>", n.pingUserID)
	}

	body, _ := json.Marshal(p)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			n.logger.Warn("Webhook send failed", zap.String("category", category), zap.Error(err))
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			n.logger.Warn("Webhook rejected alert", zap.String("category", category), zap.Int("status", resp.StatusCode))
		}
	}()
}

// Wait blocks until in-flight webhook posts finish.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) BotStarted(transports []string) {
	n.send("bot-start", 0, false, colorGreen, "Userbot Started",
		fmt.Sprintf("userbot %s listening on %s", config.Version, strings.Join(transports, ", ")), nil)
}

func (n *Notifier) BotStopping() {
	n.send("bot-stop", 0, false, colorOrange, "Userbot Stopping", "userbot is shutting down", nil)
}

func (n *Notifier) DownloadFailed(jobID, url string, err error) {
	n.send("download", 5*time.Second, true, colorRed, "Download Failed", err.Error(), map[string]string{
		"Job":   jobID,
		"URL":   truncate(url, 200),
		"Error": truncate(err.Error(), 500),
	})
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) > maxLen {
		return util.Truncate(s, maxLen-3) + "..."
	}
	return s
}
