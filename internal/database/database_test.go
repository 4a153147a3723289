package database

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAlertStore_EmptyDatabase(t *testing.T) {
	s := NewAlertStore(openTestDB(t))

	alerts, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(alerts))
	}
}

func TestAlertStore_SaveReplacesAllRows(t *testing.T) {
	ctx := context.Background()
	s := NewAlertStore(openTestDB(t))
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := []types.Alert{
		{ID: "1", UserID: "42", Symbol: "btc", CoinName: "Bitcoin", TargetPrice: decimal.NewFromInt(60000), Condition: types.Above, CreatedAt: created},
		{ID: "2", UserID: "42", Symbol: "eth", CoinName: "Ethereum", TargetPrice: decimal.NewFromInt(3000), Condition: types.Above, CreatedAt: created},
	}
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := []types.Alert{
		{ID: "3", UserID: "7", Symbol: "sol", CoinName: "Solana", TargetPrice: decimal.RequireFromString("149.95"), Condition: types.Below, CreatedAt: created},
		first[0],
	}
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 || out[0].ID != "3" || out[1].ID != "1" {
		t.Fatalf("unexpected alerts %+v", out)
	}
	if !out[0].TargetPrice.Equal(decimal.RequireFromString("149.95")) || out[0].Condition != types.Below {
		t.Fatalf("alert did not round trip: %+v", out[0])
	}
	if !out[0].CreatedAt.Equal(created) {
		t.Fatalf("createdAt = %v, want %v", out[0].CreatedAt, created)
	}
}

func TestChats_UpsertListDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.UpsertChat(ctx, Chat{ID: -100, Title: "old", Type: "supergroup"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.UpsertChat(ctx, Chat{ID: -100, Title: "Crypto Talk", Type: "supergroup"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.UpsertChat(ctx, Chat{ID: -5, Title: "News", Type: "channel"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	chats, err := db.ListChats(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chats) != 2 || chats[0].Title != "Crypto Talk" {
		t.Fatalf("unexpected chats %+v", chats)
	}

	if err := db.DeleteChat(ctx, -100); err != nil {
		t.Fatalf("delete: %v", err)
	}
	chats, _ = db.ListChats(ctx)
	if len(chats) != 1 || chats[0].ID != -5 {
		t.Fatalf("unexpected chats after delete %+v", chats)
	}
}

func TestMetrics_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	v, err := db.GetMetric(ctx, "alerts_triggered_total")
	if err != nil || v != 0 {
		t.Fatalf("missing metric = %v, %v; want 0, nil", v, err)
	}

	if err := db.SaveMetric(ctx, "alerts_triggered_total", 3); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.SaveMetric(ctx, "alerts_triggered_total", 5); err != nil {
		t.Fatalf("save: %v", err)
	}
	if v, _ := db.GetMetric(ctx, "alerts_triggered_total"); v != 5 {
		t.Fatalf("metric = %v, want 5", v)
	}

	if err := db.SaveMetricWithLabels(ctx, "commands_total", "command", "p", 2); err != nil {
		t.Fatalf("save labelled: %v", err)
	}
	labelled, err := db.GetMetricsWithLabels(ctx, "commands_total")
	if err != nil {
		t.Fatalf("get labelled: %v", err)
	}
	if labelled["command"]["p"] != 2 {
		t.Fatalf("unexpected labelled metrics %v", labelled)
	}
}
