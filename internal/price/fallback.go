package price

import (
	"crypto-oracle-bot/internal/types"
	"github.com/shopspring/decimal"
)

// fallbackTickers are hand curated last-known-good values. They back the
// interactive price command only and must never feed alert evaluation.
var fallbackTickers = map[string]types.Ticker{
	"btc-bitcoin": {
		ID:     "btc-bitcoin",
		Name:   "Bitcoin",
		Symbol: "BTC",
		Rank:   1,
		Quote: types.Quote{
			Price:     decimal.NewFromInt(45000),
			MarketCap: decimal.NewNullDecimal(decimal.NewFromInt(850000000000)),
			Change24h: decimal.NewNullDecimal(decimal.RequireFromString("2.5")),
		},
	},
	"eth-ethereum": {
		ID:     "eth-ethereum",
		Name:   "Ethereum",
		Symbol: "ETH",
		Rank:   2,
		Quote: types.Quote{
			Price:     decimal.NewFromInt(2800),
			MarketCap: decimal.NewNullDecimal(decimal.NewFromInt(340000000000)),
			Change24h: decimal.NewNullDecimal(decimal.RequireFromString("1.8")),
		},
	},
	"sol-solana": {
		ID:     "sol-solana",
		Name:   "Solana",
		Symbol: "SOL",
		Rank:   5,
		Quote: types.Quote{
			Price:     decimal.NewFromInt(150),
			MarketCap: decimal.NewNullDecimal(decimal.NewFromInt(65000000000)),
			Change24h: decimal.NewNullDecimal(decimal.RequireFromString("3.4")),
		},
	},
}

// Fallback looks up the static quote of a coin id
func Fallback(id string) (types.Ticker, bool) {
	t, ok := fallbackTickers[id]
	return t, ok
}
