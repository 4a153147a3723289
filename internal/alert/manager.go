package alert

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"strings"
	"time"
)

// Manager implements the alert commands on top of a Store
type Manager struct {
	store    Store
	resolver Resolver
	guard    *Guard
	now      func() time.Time
}

// NewManager creates a Manager; guard must be the one given to the Engine
func NewManager(store Store, resolver Resolver, guard *Guard) *Manager {
	if guard == nil {
		guard = &Guard{}
	}
	return &Manager{
		store:    store,
		resolver: resolver,
		guard:    guard,
		now:      time.Now,
	}
}

// Set stores an alert for symbol, replacing the user's previous alert on
// the same symbol
func (m *Manager) Set(ctx context.Context, userID, symbol string, target decimal.Decimal, condition types.Condition) (types.Alert, error) {
	if !target.IsPositive() {
		return types.Alert{}, ErrInvalidPrice
	}
	switch condition {
	case "":
		condition = types.Above
	case types.Above, types.Below:
	default:
		return types.Alert{}, errors.Wrapf(ErrInvalidCondition, "%q", condition)
	}
	symbol = strings.ToLower(strings.TrimSpace(symbol))

	coins, err := m.resolver.Resolve(ctx, symbol)
	if err != nil {
		return types.Alert{}, err
	}
	if len(coins) == 0 {
		return types.Alert{}, errors.Errorf("no coin matches %q", symbol)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return types.Alert{}, errors.Wrap(err, "could not generate alert id")
	}
	alert := types.Alert{
		ID:          id.String(),
		UserID:      userID,
		Symbol:      symbol,
		CoinName:    coins[0].Name,
		TargetPrice: target,
		Condition:   condition,
		CreatedAt:   m.now().UTC(),
	}

	unlock := m.guard.lock()
	defer unlock()

	alerts, err := m.store.Load(ctx)
	if err != nil {
		return types.Alert{}, errors.Wrap(err, "could not load alerts")
	}
	kept := make([]types.Alert, 0, len(alerts)+1)
	for _, a := range alerts {
		if a.UserID == userID && a.Symbol == symbol {
			continue
		}
		kept = append(kept, a)
	}
	kept = append(kept, alert)

	if err := m.store.Save(ctx, kept); err != nil {
		return types.Alert{}, errors.Wrap(err, "could not save alerts")
	}

	log.WithFields(log.Fields{"user": userID, "symbol": symbol, "target": target.String(), "condition": condition}).Info("Alert set")
	return alert, nil
}

// List returns the user's alerts in stored order
func (m *Manager) List(ctx context.Context, userID string) ([]types.Alert, error) {
	unlock := m.guard.lock()
	defer unlock()

	alerts, err := m.store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not load alerts")
	}
	var mine []types.Alert
	for _, a := range alerts {
		if a.UserID == userID {
			mine = append(mine, a)
		}
	}
	return mine, nil
}

// Remove deletes the user's alert on symbol, ErrNoAlert if there is none
func (m *Manager) Remove(ctx context.Context, userID, symbol string) error {
	symbol = strings.ToLower(strings.TrimSpace(symbol))

	unlock := m.guard.lock()
	defer unlock()

	alerts, err := m.store.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "could not load alerts")
	}
	kept := make([]types.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.UserID == userID && a.Symbol == symbol {
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) == len(alerts) {
		return ErrNoAlert
	}

	if err := m.store.Save(ctx, kept); err != nil {
		return errors.Wrap(err, "could not save alerts")
	}
	log.WithFields(log.Fields{"user": userID, "symbol": symbol}).Info("Alert removed")
	return nil
}
