package types

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"strings"
	"time"
)

// Condition tells in which direction an alert fires
type Condition string

const (
	Above Condition = "above"
	Below Condition = "below"
)

// ParseCondition accepts "above"/"below" in any case, empty means above
func ParseCondition(s string) (Condition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Above):
		return Above, nil
	case string(Below):
		return Below, nil
	}
	return "", errors.Errorf("unknown alert condition: %q", s)
}

// Alert is a user's stored price condition on a symbol
type Alert struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Symbol      string          `json:"symbol"`
	CoinName    string          `json:"coinName"`
	TargetPrice decimal.Decimal `json:"targetPrice"`
	Condition   Condition       `json:"condition"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Matches reports whether price satisfies the alert, boundary included
func (a Alert) Matches(price decimal.Decimal) bool {
	switch a.Condition {
	case Above:
		return price.GreaterThanOrEqual(a.TargetPrice)
	case Below:
		return price.LessThanOrEqual(a.TargetPrice)
	}
	return false
}

// Coin is a search candidate returned by the market data service
type Coin struct {
	ID     string
	Name   string
	Symbol string
	Rank   int64
}

// Quote is a point-in-time USD quote, never persisted
type Quote struct {
	Price     decimal.Decimal
	Change24h decimal.NullDecimal
	MarketCap decimal.NullDecimal
	Volume24h decimal.NullDecimal
}

// Ticker is a quote together with the coin it belongs to
type Ticker struct {
	ID     string
	Name   string
	Symbol string
	Rank   int64
	Quote  Quote
}

// TriggeredEvent is produced by an engine tick for every alert that fired
type TriggeredEvent struct {
	Alert        Alert
	CurrentPrice decimal.Decimal
	CoinName     string
}
