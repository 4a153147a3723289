package telegram

import (
	"context"
	"crypto-oracle-bot/internal/commands"
	"crypto-oracle-bot/internal/database"
	"crypto-oracle-bot/internal/metrics"
	"crypto-oracle-bot/internal/report"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"sync"
	"time"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
	// APIEndpoint overrides the Bot API url format, tgbotapi.APIEndpoint when empty
	APIEndpoint    string
	RequestTimeout time.Duration
}

// ChatRegistry remembers the group chats the bot can post to
type ChatRegistry interface {
	UpsertChat(ctx context.Context, c database.Chat) error
	DeleteChat(ctx context.Context, chatID int64) error
	ListChats(ctx context.Context) ([]database.Chat, error)
}

// ReportSender sends a report to one channel on demand
type ReportSender interface {
	SendNow(ctx context.Context, ch report.Channel) error
}

// Services are the command backends, wired after construction because the
// report job needs the bot as its broadcaster
type Services struct {
	Quotes  commands.QuoteSource
	Alerts  commands.AlertManager
	Reports ReportSender
	Metrics *metrics.BotMetrics
}

// Bot telegram interaction client
type Bot struct {
	Bot      *tgbotapi.BotAPI
	Config   BotConfig
	chats    ChatRegistry
	services Services

	mu       sync.Mutex
	knownSet map[int64]string
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
