package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/coah80/userbot/internal/config"
	"github.com/coah80/userbot/internal/util"
)

const (
	maxTelegramFileSize = 50 * 1024 * 1024
	maxTelegramText     = 4096
	maxTelegramCaption  = 1024
	telegramPollTimeout = 60
)

// telegramAPI is the subset of *tgbotapi.BotAPI the chat adapter needs.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Telegram struct {
	api        *tgbotapi.BotAPI
	chat       *telegramChat
	dispatcher *Dispatcher
	owners     []string
	logger     *zap.Logger
}

func NewTelegram(cfg config.Transport, dispatcher *Dispatcher, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		api:        api,
		chat:       &telegramChat{api: api},
		dispatcher: dispatcher,
		owners:     cfg.OwnerIDs,
		logger:     logger.With(zap.String("transport", "telegram")),
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Start(ctx context.Context) error {
	t.logger.Info("Bot logged in", zap.String("user", t.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = telegramPollTimeout
	updates := t.api.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if msg, ok := t.inbound(update); ok {
					go t.dispatcher.Dispatch(ctx, t.chat, msg)
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	t.api.StopReceivingUpdates()
}

func (t *Telegram) inbound(update tgbotapi.Update) (Message, bool) {
	m := update.Message
	if m == nil || m.From == nil || m.From.IsBot || m.Chat == nil {
		return Message{}, false
	}
	authorID := strconv.FormatInt(m.From.ID, 10)
	if !Allowed(t.owners, authorID) {
		return Message{}, false
	}
	return Message{
		ChatID:   strconv.FormatInt(m.Chat.ID, 10),
		ID:       strconv.Itoa(m.MessageID),
		AuthorID: authorID,
		Text:     m.Text,
	}, true
}

type telegramChat struct {
	api telegramAPI
}

func parseTelegramIDs(chatID, messageID string) (int64, int, error) {
	cid, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	if messageID == "" {
		return cid, 0, nil
	}
	mid, err := strconv.Atoi(messageID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid telegram message id %q: %w", messageID, err)
	}
	return cid, mid, nil
}

func (c *telegramChat) Send(ctx context.Context, chatID, text string) (string, error) {
	cid, _, err := parseTelegramIDs(chatID, "")
	if err != nil {
		return "", err
	}
	msg := tgbotapi.NewMessage(cid, util.Truncate(text, maxTelegramText))
	msg.DisableNotification = true
	msg.DisableWebPagePreview = true
	sent, err := c.api.Send(msg)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.MessageID), nil
}

func (c *telegramChat) Edit(ctx context.Context, chatID, messageID, text string) error {
	cid, mid, err := parseTelegramIDs(chatID, messageID)
	if err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(cid, mid, util.Truncate(text, maxTelegramText))
	edit.DisableWebPagePreview = true
	_, err = c.api.Send(edit)
	return err
}

func (c *telegramChat) Delete(ctx context.Context, chatID, messageID string) error {
	cid, mid, err := parseTelegramIDs(chatID, messageID)
	if err != nil {
		return err
	}
	_, err = c.api.Request(tgbotapi.NewDeleteMessage(cid, mid))
	return err
}

func (c *telegramChat) SendVideo(ctx context.Context, chatID, path, caption string) error {
	cid, _, err := parseTelegramIDs(chatID, "")
	if err != nil {
		return err
	}
	if err := checkUploadSize(path, maxTelegramFileSize, "Telegram"); err != nil {
		return err
	}
	video := tgbotapi.NewVideo(cid, tgbotapi.FilePath(path))
	video.Caption = util.Truncate(caption, maxTelegramCaption)
	video.SupportsStreaming = true
	_, err = c.api.Send(video)
	return err
}
