package database

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"fmt"
	"github.com/shopspring/decimal"
	"time"
)

// AlertStore keeps alerts in the sqlite alerts table
type AlertStore struct {
	db *DB
}

// NewAlertStore creates a sqlite backed alert store
func NewAlertStore(db *DB) *AlertStore {
	return &AlertStore{db: db}
}

// Load fetches every alert in stored order
func (s *AlertStore) Load(ctx context.Context) ([]types.Alert, error) {
	query := `SELECT id, user_id, symbol, coin_name, target_price, condition, created_at FROM alerts ORDER BY position;`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []types.Alert{}
	for rows.Next() {
		var alert types.Alert
		var target, condition string
		var createdAt time.Time
		if err := rows.Scan(&alert.ID, &alert.UserID, &alert.Symbol, &alert.CoinName, &target, &condition, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if alert.TargetPrice, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("invalid target price %q for alert %s: %w", target, alert.ID, err)
		}
		alert.Condition = types.Condition(condition)
		alert.CreatedAt = createdAt.UTC()
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// Save replaces every row inside one transaction
func (s *AlertStore) Save(ctx context.Context, alerts []types.Alert) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM alerts;`); err != nil {
		return fmt.Errorf("failed to clear alerts: %w", err)
	}

	insert := `
	INSERT INTO alerts (id, position, user_id, symbol, coin_name, target_price, condition, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);`
	for i, alert := range alerts {
		_, err := tx.ExecContext(ctx, insert,
			alert.ID, i, alert.UserID, alert.Symbol, alert.CoinName,
			alert.TargetPrice.String(), string(alert.Condition), alert.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alerts: %w", err)
	}
	return nil
}
