package telegram

import (
	"bytes"
	"context"
	"crypto-oracle-bot/internal/commands"
	"crypto-oracle-bot/internal/database"
	"crypto-oracle-bot/internal/report"
	"crypto-oracle-bot/internal/types"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net/http"
	"runtime"
	"strconv"
	"time"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig, chats ChatRegistry) (*Bot, error) {
	endpoint := c.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	bot, err := tgbotapi.NewBotAPIWithClient(c.Token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:      bot,
		Config:   c,
		chats:    chats,
		knownSet: make(map[int64]string),
	}, nil
}

// SetServices wires the command backends
func (b *Bot) SetServices(s Services) {
	b.services = s
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	updatesConfig.AllowedUpdates = []string{"message", "my_chat_member"}
	return b.Bot.GetUpdatesChan(updatesConfig)
}

// Run handles updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) {
	updates := b.GetUpdatesChannel()
	for {
		select {
		case <-ctx.Done():
			b.Bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}

// NotifyUser sends a triggered alert to the user's private chat
func (b *Bot) NotifyUser(ctx context.Context, userID string, ev types.TriggeredEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid telegram user id %q", userID)
	}
	return b.SendMessage(Message{ChatID: chatID, Text: commands.TriggeredText(ev)})
}

// Destinations lists every group chat the bot was added to. A chat has a
// single channel, the chat itself.
func (b *Bot) Destinations(ctx context.Context) ([]report.Destination, error) {
	chats, err := b.chats.ListChats(ctx)
	if err != nil {
		return nil, err
	}

	dests := make([]report.Destination, 0, len(chats))
	for _, c := range chats {
		if c.Type == "private" {
			continue
		}
		id := strconv.FormatInt(c.ID, 10)
		dests = append(dests, report.Destination{
			ID:       id,
			Name:     c.Title,
			Channels: []report.Channel{{ID: id, Name: c.Title, Writable: true}},
		})
	}
	return dests, nil
}

// Send posts a report, with the movers chart when one was rendered
func (b *Bot) Send(ctx context.Context, ch report.Channel, r report.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(ch.ID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid chat id %q", ch.ID)
	}

	if r.Chart != nil {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
			Name:  "movers.png",
			Bytes: r.Chart,
		})
		photo.Caption = commands.ReportCaption(r)
		photo.ParseMode = tgbotapi.ModeMarkdownV2
		if _, err := b.Bot.Send(photo); err != nil {
			log.WithError(err).Warn("error sending report chart, sending text only")
		}
	}
	return b.SendMessage(Message{ChatID: chatID, Text: commands.ReportText(r)})
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	if update.MyChatMember != nil {
		b.handleMembership(ctx, update.MyChatMember)
		return
	}

	if update.Message == nil || !update.Message.IsCommand() {
		log.Debug("Received non-message or non-command")
		return
	}

	chat := update.Message.Chat
	chatName := chat.Title
	if chatName == "" {
		chatName = fmt.Sprintf("%s-%d", "PrivateChat", chat.ID)
	}
	b.services.Metrics.MessageHandled(chat.ID, chatName)
	if !chat.IsPrivate() {
		b.rememberChat(ctx, database.Chat{ID: chat.ID, Title: chat.Title, Type: chat.Type})
	}

	text := b.HandleUpdate(ctx, update)
	if text == "" {
		return
	}

	err := b.SendMessage(Message{
		ChatID:    chat.ID,
		Text:      text,
		MessageID: update.Message.MessageID,
	})
	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else {
		b.services.Metrics.CommandProcessed()
	}
}

// HandleUpdate processes a command and returns the reply, empty when the
// command already answered by itself
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) string {
	text := commands.HelpText()
	log.Debugf("received command: %s", u.Message.Command())

	var err error

	switch u.Message.Command() {
	case "source":
		text = commands.SourceText()
	case "p":
		if text, err = commands.CommandPrice(ctx, b.services.Quotes, u.Message.CommandArguments()); err != nil {
			text = commands.UserError(err)
			log.Error(err)
		}
	case "alert":
		userID := strconv.FormatInt(u.Message.Chat.ID, 10)
		if u.Message.From != nil {
			userID = strconv.FormatInt(u.Message.From.ID, 10)
		}
		text = commands.CommandAlert(ctx, b.services.Alerts, userID, u.Message.CommandArguments())
	case "dailyreport":
		ch := report.Channel{
			ID:       strconv.FormatInt(u.Message.Chat.ID, 10),
			Name:     u.Message.Chat.Title,
			Writable: true,
		}
		if err = b.services.Reports.SendNow(ctx, ch); err != nil {
			log.Error(err)
			return commands.UserError(err)
		}
		return ""
	}

	return text
}

func (b *Bot) handleMembership(ctx context.Context, m *tgbotapi.ChatMemberUpdated) {
	chat := m.Chat
	if chat.IsPrivate() {
		return
	}

	switch m.NewChatMember.Status {
	case "member", "administrator", "creator":
		b.rememberChat(ctx, database.Chat{ID: chat.ID, Title: chat.Title, Type: chat.Type})
		log.Infof("Bot added to %s (%d)", chat.Title, chat.ID)
	case "left", "kicked":
		b.forgetChat(ctx, chat.ID)
		log.Infof("Bot removed from %s (%d)", chat.Title, chat.ID)
	}
}

func (b *Bot) rememberChat(ctx context.Context, c database.Chat) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if title, exists := b.knownSet[c.ID]; exists && title == c.Title {
		return
	}
	if err := b.chats.UpsertChat(ctx, c); err != nil {
		log.WithError(err).Error("Failed to remember chat")
		return
	}
	b.knownSet[c.ID] = c.Title
	b.services.Metrics.SetChannels(len(b.knownSet))
}

func (b *Bot) forgetChat(ctx context.Context, chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.chats.DeleteChat(ctx, chatID); err != nil {
		log.WithError(err).Error("Failed to forget chat")
		return
	}
	delete(b.knownSet, chatID)
	b.services.Metrics.SetChannels(len(b.knownSet))
}

// LoadChats fills the known chat set from the registry
func (b *Bot) LoadChats(ctx context.Context) error {
	chats, err := b.chats.ListChats(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range chats {
		b.knownSet[c.ID] = c.Title
	}
	b.services.Metrics.SetChannels(len(b.knownSet))
	log.Debugf("Loaded %d known chats", len(chats))
	return nil
}
