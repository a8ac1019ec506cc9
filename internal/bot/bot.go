package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/coah80/userbot/internal/config"
)

// Message is an inbound chat message, independent of the transport it came from.
type Message struct {
	ChatID   string
	ID       string
	AuthorID string
	Text     string
}

// Chat is the set of chat primitives plugins use. Send posts silently with link
// previews disabled and returns the new message's ID.
type Chat interface {
	Send(ctx context.Context, chatID, text string) (string, error)
	Edit(ctx context.Context, chatID, messageID, text string) error
	Delete(ctx context.Context, chatID, messageID string) error
	SendVideo(ctx context.Context, chatID, path, caption string) error
}

// Plugin reacts to a message. Handle reports whether the message was consumed.
type Plugin interface {
	Handle(ctx context.Context, chat Chat, msg Message) bool
}

// Transport connects the dispatcher to a chat network.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
}

type Dispatcher struct {
	plugins []Plugin
	logger  *zap.Logger
}

func NewDispatcher(logger *zap.Logger, plugins ...Plugin) *Dispatcher {
	return &Dispatcher{plugins: plugins, logger: logger}
}

// Dispatch hands msg to the first plugin that accepts it. A panicking plugin
// is logged and does not take the transport down with it.
func (d *Dispatcher) Dispatch(ctx context.Context, chat Chat, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Plugin panicked",
				zap.String("chat", msg.ChatID),
				zap.String("message", msg.ID),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()

	for _, p := range d.plugins {
		if p.Handle(ctx, chat, msg) {
			return
		}
	}
}

// Allowed reports whether authorID may trigger plugins. An empty owner list
// allows nobody.
func Allowed(owners []string, authorID string) bool {
	return authorID != "" && config.Contains(owners, authorID)
}
