package bot

import (
	"context"
	"mime"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/coah80/userbot/internal/config"
	"github.com/coah80/userbot/internal/util"
)

const (
	maxDiscordFileSize = 25 * 1024 * 1024
	maxDiscordContent  = 2000
)

type Discord struct {
	session    *discordgo.Session
	chat       *discordChat
	dispatcher *Dispatcher
	owners     []string
	logger     *zap.Logger
	ctx        context.Context
}

func NewDiscord(cfg config.Transport, dispatcher *Dispatcher, logger *zap.Logger) (*Discord, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}

	b := &Discord{
		session:    s,
		chat:       &discordChat{session: s},
		dispatcher: dispatcher,
		owners:     cfg.OwnerIDs,
		logger:     logger.With(zap.String("transport", "discord")),
		ctx:        context.Background(),
	}

	s.AddHandler(b.handleMessage)
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return b, nil
}

func (b *Discord) Name() string {
	return "discord"
}

func (b *Discord) Start(ctx context.Context) error {
	b.ctx = ctx
	if err := b.session.Open(); err != nil {
		return err
	}
	b.logger.Info("Bot logged in", zap.String("user", b.session.State.User.Username))
	return nil
}

func (b *Discord) Stop() {
	b.session.Close()
}

// handleMessage runs on its own goroutine per event; discordgo dispatches
// handlers asynchronously.
func (b *Discord) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	if !Allowed(b.owners, m.Author.ID) {
		return
	}

	b.dispatcher.Dispatch(b.ctx, b.chat, Message{
		ChatID:   m.ChannelID,
		ID:       m.ID,
		AuthorID: m.Author.ID,
		Text:     m.Content,
	})
}

type discordChat struct {
	session *discordgo.Session
}

func (c *discordChat) Send(ctx context.Context, chatID, text string) (string, error) {
	msg, err := c.session.ChannelMessageSendComplex(chatID, &discordgo.MessageSend{
		Content: util.Truncate(text, maxDiscordContent),
		Flags:   discordgo.MessageFlagsSuppressEmbeds | discordgo.MessageFlagsSuppressNotifications,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (c *discordChat) Edit(ctx context.Context, chatID, messageID, text string) error {
	content := util.Truncate(text, maxDiscordContent)
	_, err := c.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:      messageID,
		Channel: chatID,
		Content: &content,
		Flags:   discordgo.MessageFlagsSuppressEmbeds,
	}, discordgo.WithContext(ctx))
	return err
}

func (c *discordChat) Delete(ctx context.Context, chatID, messageID string) error {
	return c.session.ChannelMessageDelete(chatID, messageID, discordgo.WithContext(ctx))
}

func (c *discordChat) SendVideo(ctx context.Context, chatID, path, caption string) error {
	if err := checkUploadSize(path, maxDiscordFileSize, "Discord"); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "video/mp4"
	}

	_, err = c.session.ChannelMessageSendComplex(chatID, &discordgo.MessageSend{
		Content: util.Truncate(caption, maxDiscordContent),
		Flags:   discordgo.MessageFlagsSuppressEmbeds,
		Files: []*discordgo.File{
			{
				Name:        util.SanitizeFilename(filepath.Base(path)),
				ContentType: contentType,
				Reader:      f,
			},
		},
	}, discordgo.WithContext(ctx))
	return err
}
