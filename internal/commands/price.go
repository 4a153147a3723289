package commands

import (
	"context"
	"crypto-oracle-bot/internal/price"
	"crypto-oracle-bot/internal/types"
	"crypto-oracle-bot/lib/helpers"
	"crypto-oracle-bot/lib/translation"
	"fmt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"strings"
)

// QuoteSource resolves a query and prices a single coin
type QuoteSource interface {
	Resolve(ctx context.Context, query string) ([]types.Coin, error)
	Quote(ctx context.Context, id string) (types.Quote, error)
}

// CommandPrice answers /p. When live prices cannot be fetched for a major
// coin the last known values are shown and marked as cached.
func CommandPrice(ctx context.Context, src QuoteSource, argument string) (string, error) {
	log.Debugf("processing command /p with argument :%s", argument)

	query := strings.TrimSpace(argument)
	if query == "" {
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: /p <symbol>, e.g. /p btc")), nil
	}

	coins, err := src.Resolve(ctx, query)
	if err != nil {
		return "", errors.Wrap(err, "command /p")
	}
	coin := coins[0]

	quote, err := src.Quote(ctx, coin.ID)
	if err != nil {
		cached, ok := price.Fallback(coin.ID)
		if !ok {
			return "", errors.Wrap(err, "command /p")
		}
		log.WithField("coin", coin.ID).WithError(err).Warn("⚠️ Serving cached price")
		return priceText(coin, cached.Quote, true), nil
	}
	return priceText(coin, quote, false), nil
}

func priceText(coin types.Coin, q types.Quote, degraded bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s \\(%s\\) price:*\n\n", helpers.EscapeMarkdownV2(coin.Name), helpers.EscapeMarkdownV2(strings.ToUpper(coin.Symbol)))
	fmt.Fprintf(&b, "▫️`$%s` *USD*\n", helpers.FormatPriceUS(q.Price, false))
	fmt.Fprintf(&b, "▫️24h: %s\n", helpers.FormatChange(q.Change24h, true))
	fmt.Fprintf(&b, "▫️%s: `$%s`\n", translation.Translate("Market cap"), helpers.FormatAmountUS(q.MarketCap))
	if q.Volume24h.Valid {
		fmt.Fprintf(&b, "▫️%s: `$%s`\n", translation.Translate("Volume 24h"), helpers.FormatAmountUS(q.Volume24h))
	}
	if degraded {
		b.WriteString("\n_" + helpers.EscapeMarkdownV2(translation.Translate("Cached data - API unavailable")) + "_\n")
	}
	fmt.Fprintf(&b, "\n[%s](https://coinpaprika.com/coin/%s)", translation.Translate("See on CoinPaprika 🌶"), coin.ID)
	return b.String()
}
