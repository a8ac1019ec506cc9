package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type HelpEntry struct {
	Usage       string
	Description string
}

// Help answers "<prefix>help" and "<prefix>help <module>".
type Help struct {
	prefix string
	logger *zap.Logger

	mu      sync.RWMutex
	modules map[string][]HelpEntry
}

func NewHelp(prefix string, logger *zap.Logger) *Help {
	if prefix == "" {
		prefix = "."
	}
	return &Help{prefix: prefix, logger: logger, modules: make(map[string][]HelpEntry)}
}

func (h *Help) Add(module string, entries ...HelpEntry) {
	h.mu.Lock()
	h.modules[module] = append(h.modules[module], entries...)
	h.mu.Unlock()
}

func (h *Help) Handle(ctx context.Context, chat Chat, msg Message) bool {
	text := strings.TrimSpace(msg.Text)
	cmd := h.prefix + "help"
	if !strings.HasPrefix(text, cmd) {
		return false
	}
	rest := text[len(cmd):]
	if rest != "" && rest[0] != ' ' {
		return false
	}

	var reply string
	if args := strings.Fields(rest); len(args) > 0 {
		reply = h.module(args[0])
	} else {
		reply = h.overview()
	}

	if _, err := chat.Send(ctx, msg.ChatID, reply); err != nil {
		h.logger.Warn("Failed to send help", zap.String("chat", msg.ChatID), zap.Error(err))
	}
	return true
}

func (h *Help) overview() string {
	h.mu.RLock()
	names := make([]string, 0, len(h.modules))
	for name := range h.modules {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available modules:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "• %s\n", name)
	}
	fmt.Fprintf(&b, "\nUse %shelp <module> for details.", h.prefix)
	return b.String()
}

func (h *Help) module(name string) string {
	h.mu.RLock()
	entries, ok := h.modules[name]
	h.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("Module not found: %s", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Help for %s:\n", name)
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s\n    %s\n", e.Usage, e.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}
