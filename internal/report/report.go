package report

import (
	"context"
	"crypto-oracle-bot/internal/ai"
	"crypto-oracle-bot/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"strings"
	"time"
)

const (
	// SummaryUnavailable replaces the AI commentary when it cannot be produced
	SummaryUnavailable = "AI market analysis is currently unavailable."

	// MoverCount is the number of coins listed in a report
	MoverCount = 10
	// SummaryCount is the number of movers handed to the summarizer
	SummaryCount = 5
)

// ErrNoMarketData is returned when no movers could be fetched
var ErrNoMarketData = errors.New("no market data available")

// ChannelPriority lists channel name keywords, best first
var ChannelPriority = []string{"general", "crypto", "trading", "bot-commands", "announcements", "news"}

// MoverSource provides the best performing coins
type MoverSource interface {
	TopMovers(ctx context.Context, n int) ([]types.Ticker, error)
}

// Summarizer writes commentary for a prompt
type Summarizer interface {
	Summarize(ctx context.Context, prompt, background string) (string, error)
}

// Channel is a place a report can be posted to
type Channel struct {
	ID       string
	Name     string
	Writable bool
}

// Destination is a broadcast target owning one or more channels
type Destination struct {
	ID       string
	Name     string
	Channels []Channel
}

// Broadcaster lists destinations and delivers reports
type Broadcaster interface {
	Destinations(ctx context.Context) ([]Destination, error)
	Send(ctx context.Context, ch Channel, r Report) error
}

// Report is a built market report ready for delivery
type Report struct {
	Title       string
	Movers      []types.Ticker
	Summary     string
	Degraded    bool
	Chart       []byte
	Test        bool
	GeneratedAt time.Time
}

// BestChannel picks the writable channel whose name matches the highest
// priority keyword, else the first writable channel
func BestChannel(channels []Channel) (Channel, bool) {
	for _, keyword := range ChannelPriority {
		for _, ch := range channels {
			if ch.Writable && strings.Contains(strings.ToLower(ch.Name), keyword) {
				return ch, true
			}
		}
	}
	for _, ch := range channels {
		if ch.Writable {
			return ch, true
		}
	}
	return Channel{}, false
}

// Build fetches movers and commentary and renders the chart. A failing
// summarizer or chart never fails the report.
func (j *Job) Build(ctx context.Context, test bool) (Report, error) {
	movers, err := j.movers.TopMovers(ctx, MoverCount)
	if err != nil {
		return Report{}, errors.Wrap(err, "could not fetch top movers")
	}
	if len(movers) == 0 {
		return Report{}, ErrNoMarketData
	}

	r := Report{
		Title:       "Daily Crypto Market Report",
		Movers:      movers,
		Test:        test,
		GeneratedAt: j.now().UTC(),
	}
	if test {
		r.Title = "Test " + r.Title
	}

	top := movers
	if len(top) > SummaryCount {
		top = top[:SummaryCount]
	}
	summary, err := j.ai.Summarize(ctx, ai.MarketPrompt(top), ai.MarketContext)
	if err != nil {
		log.WithError(err).Warn("⚠️ AI summary failed, using placeholder")
		summary = SummaryUnavailable
		r.Degraded = true
	}
	r.Summary = summary

	chart, err := renderChart(movers)
	if err != nil {
		log.WithError(err).Warn("⚠️ Could not render movers chart")
	} else {
		r.Chart = chart
	}

	return r, nil
}
