package store

import (
	"context"
	"encoding/json"
	"crypto-oracle-bot/internal/types"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFile_MissingFileIsEmpty(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "data", "alerts.json"))

	alerts, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected empty store, got %d alerts", len(alerts))
	}
}

func TestFile_SaveAndLoadKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "alerts.json")
	f := NewFile(path)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	in := []types.Alert{
		{ID: "b", UserID: "42", Symbol: "eth", CoinName: "Ethereum", TargetPrice: decimal.NewFromInt(3000), Condition: types.Above, CreatedAt: created},
		{ID: "a", UserID: "7", Symbol: "btc", CoinName: "Bitcoin", TargetPrice: decimal.RequireFromString("59999.5"), Condition: types.Below, CreatedAt: created},
	}
	if err := f.Save(context.Background(), in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 || out[0].ID != "b" || out[1].ID != "a" {
		t.Fatalf("unexpected alerts %+v", out)
	}
	if !out[1].TargetPrice.Equal(in[1].TargetPrice) || out[1].Condition != types.Below {
		t.Fatalf("alert did not round trip: %+v", out[1])
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), `"targetPrice": 3000`) {
		t.Fatalf("targetPrice should be stored as a JSON number:\n%s", raw)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestFile_ReadsLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	legacy := `[
  {
    "id": "1717000000000",
    "userId": "123456789",
    "symbol": "eth",
    "coinName": "Ethereum",
    "targetPrice": 3000,
    "condition": "above",
    "createdAt": "2024-05-29T16:26:40.000Z"
  }
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	alerts, err := NewFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Symbol != "eth" || !alerts[0].TargetPrice.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
}

func TestFile_CorruptDocumentIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFile(path).Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFile_SaveEmptyWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	if err := NewFile(path).Save(context.Background(), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("expected empty array, got %q", raw)
	}
}

func TestFile_NumberLayoutStaysLocalToTheStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	f := NewFile(path)
	in := []types.Alert{{ID: "1", UserID: "42", Symbol: "eth", TargetPrice: decimal.RequireFromString("0.00012"), Condition: types.Above}}
	if err := f.Save(context.Background(), in); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), `"targetPrice": 0.00012`) {
		t.Fatalf("targetPrice should be stored as a JSON number:\n%s", raw)
	}

	encoded, err := json.Marshal(decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(encoded) != `"5"` {
		t.Fatalf("decimals outside the store should keep the default encoding, got %s", encoded)
	}
}

func TestFile_ReadsQuotedTargetPrice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	doc := `[{"id":"1","userId":"42","symbol":"btc","targetPrice":"64000.5","condition":"below","createdAt":"2024-05-29T16:26:40Z"}]`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	alerts, err := NewFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 || !alerts[0].TargetPrice.Equal(decimal.RequireFromString("64000.5")) {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
}
