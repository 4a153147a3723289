package store

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

type memRedis struct {
	values map[string]string
	getErr error
	sets   int
}

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.sets++
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	default:
		m.values[key] = fmt.Sprint(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memRedis) Close() error {
	return nil
}

func TestRedis_MissingKeyIsEmpty(t *testing.T) {
	r := &Redis{client: &memRedis{values: map[string]string{}}, key: "oracle:alerts"}

	alerts, err := r.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alerts == nil || len(alerts) != 0 {
		t.Fatalf("expected empty store, got %+v", alerts)
	}
}

func TestRedis_SaveAndLoad(t *testing.T) {
	client := &memRedis{values: map[string]string{}}
	r := &Redis{client: client, key: "oracle:alerts"}
	in := []types.Alert{
		{ID: "1", UserID: "42", Symbol: "eth", TargetPrice: decimal.NewFromInt(3000), Condition: types.Above},
		{ID: "2", UserID: "7", Symbol: "btc", TargetPrice: decimal.RequireFromString("59999.5"), Condition: types.Below},
	}

	if err := r.Save(context.Background(), in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if client.sets != 1 || !strings.Contains(client.values["oracle:alerts"], `"targetPrice": 3000`) {
		t.Fatalf("expected one SET of the whole document, got %d:\n%s", client.sets, client.values["oracle:alerts"])
	}

	out, err := r.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 || out[0].ID != "1" || !out[1].TargetPrice.Equal(in[1].TargetPrice) {
		t.Fatalf("unexpected alerts %+v", out)
	}
}

func TestRedis_ReadErrorIsReturned(t *testing.T) {
	r := &Redis{client: &memRedis{getErr: fmt.Errorf("connection refused")}, key: "oracle:alerts"}

	if _, err := r.Load(context.Background()); err == nil {
		t.Fatal("expected read error")
	}
}
