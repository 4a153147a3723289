package ai

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func TestSummarize_SendsPromptAndReturnsContent(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Markets are calm.  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient("secret", srv.URL, "", time.Second)
	text, err := c.Summarize(context.Background(), "How is BTC?", MarketContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Markets are calm." {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Model != DefaultModel || got.MaxTokens != 300 || len(got.Messages) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Messages[1].Content != "How is BTC?\n\nContext: Daily crypto market summary" {
		t.Fatalf("unexpected user content %q", got.Messages[1].Content)
	}
}

func TestSummarize_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrUnavailable},
		{"not found", http.StatusNotFound, `{}`, ErrUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited},
		{"server error", http.StatusBadGateway, `oops`, ErrUnreachable},
		{"empty choices", http.StatusOK, `{"choices":[]}`, ErrUnreachable},
		{"bad json", http.StatusOK, `{`, ErrUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("secret", srv.URL, "", time.Second).Summarize(context.Background(), "p", "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSummarize_OversizedBodyIsCutOff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"`))
		w.Write([]byte(strings.Repeat("a", 2<<20)))
		w.Write([]byte(`"}}]}`))
	}))
	defer srv.Close()

	_, err := NewClient("secret", srv.URL, "", time.Second).Summarize(context.Background(), "p", "")
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable for a truncated body, got %v", err)
	}
}

func TestSummarize_MissingKeyIsUnavailable(t *testing.T) {
	_, err := NewClient("", "http://127.0.0.1:1", "", time.Second).Summarize(context.Background(), "p", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSummarize_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient("secret", url, "", time.Second).Summarize(context.Background(), "p", "")
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestMarketPrompt(t *testing.T) {
	tickers := []types.Ticker{
		{Symbol: "btc", Quote: types.Quote{Price: decimal.NewFromInt(45000), Change24h: decimal.NewNullDecimal(decimal.RequireFromString("2.5"))}},
		{Symbol: "SOL", Quote: types.Quote{Price: decimal.RequireFromString("150.5"), Change24h: decimal.NewNullDecimal(decimal.RequireFromString("-1.234"))}},
	}

	got := MarketPrompt(tickers)
	want := "Provide a brief market summary for these top cryptocurrencies: BTC: $45000 (+2.50%), SOL: $150.5 (-1.23%). Include overall market sentiment and key insights."
	if got != want {
		t.Fatalf("unexpected prompt:\n got %q\nwant %q", got, want)
	}
	if !strings.Contains(got, "BTC") {
		t.Fatal("symbol should be upper cased")
	}
}
