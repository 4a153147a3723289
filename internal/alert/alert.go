package alert

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"github.com/pkg/errors"
	"sync"
)

var (
	// ErrInvalidPrice is returned for a target price that is not positive
	ErrInvalidPrice = errors.New("target price must be greater than zero")
	// ErrNoAlert is returned when a user has no alert for the symbol
	ErrNoAlert = errors.New("no alert found for symbol")
	// ErrInvalidCondition is returned for conditions other than above and below
	ErrInvalidCondition = errors.New("alert condition must be above or below")
	// ErrTickInProgress is returned when a tick is requested while one runs
	ErrTickInProgress = errors.New("alert check already in progress")
)

// Store loads and saves the whole alert list as one unit
type Store interface {
	Load(ctx context.Context) ([]types.Alert, error)
	Save(ctx context.Context, alerts []types.Alert) error
}

// Notifier delivers a triggered alert to its owner
type Notifier interface {
	NotifyUser(ctx context.Context, userID string, ev types.TriggeredEvent) error
}

// Resolver turns a symbol into ranked coin candidates
type Resolver interface {
	Resolve(ctx context.Context, query string) ([]types.Coin, error)
}

// Quoter resolves symbols and prices coin ids, in batches or one at a time
type Quoter interface {
	Resolver
	Quote(ctx context.Context, id string) (types.Quote, error)
	Quotes(ctx context.Context, ids []string) (map[string]types.Quote, error)
}

// Guard serialises every load-modify-save cycle on the alert store.
// The engine and the manager must share the same Guard.
type Guard struct {
	mu sync.Mutex
}

func (g *Guard) lock() func() {
	if g == nil {
		return func() {}
	}
	g.mu.Lock()
	return g.mu.Unlock
}
