package price

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"io"
	"net/http"
	"time"
)

// statusTransport turns HTTP error statuses into *StatusError so the
// provider can tell a 429 from a 5xx
type statusTransport struct {
	base http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.Path}
	}
	return resp, nil
}

// Paprika is the CoinPaprika implementation of Upstream
type Paprika struct {
	client *coinpaprika.Client
}

// NewPaprika creates a CoinPaprika upstream, apiProKey may be empty
func NewPaprika(apiProKey string, timeout time.Duration) *Paprika {
	return NewPaprikaWithTransport(apiProKey, timeout, http.DefaultTransport)
}

// NewPaprikaWithTransport is NewPaprika with a custom round tripper
func NewPaprikaWithTransport(apiProKey string, timeout time.Duration, rt http.RoundTripper) *Paprika {
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: statusTransport{base: rt},
	}

	if apiProKey != "" {
		return &Paprika{client: coinpaprika.NewClient(httpClient, coinpaprika.WithAPIKey(apiProKey))}
	}
	return &Paprika{client: coinpaprika.NewClient(httpClient)}
}

// Search looks a query up as a symbol first and as a name second
func (p *Paprika) Search(ctx context.Context, query string) ([]types.Coin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := p.client.Search.Search(&coinpaprika.SearchOptions{
		Query:      query,
		Categories: "currencies",
		Modifier:   "symbol_search",
	})
	if err != nil {
		return nil, errors.Wrap(err, "symbol search")
	}
	if result == nil {
		return nil, errors.Wrap(ErrInvalidResponse, "empty search result")
	}

	if len(result.Currencies) == 0 {
		log.Debugf("No results for symbol search, trying name search for '%s'", query)
		result, err = p.client.Search.Search(&coinpaprika.SearchOptions{Query: query, Categories: "currencies"})
		if err != nil {
			return nil, errors.Wrap(err, "name search")
		}
		if result == nil {
			return nil, errors.Wrap(ErrInvalidResponse, "empty search result")
		}
	}

	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("search '%s' returned %s", query, spew.Sdump(result.Currencies))
	}

	coins := make([]types.Coin, 0, len(result.Currencies))
	for _, c := range result.Currencies {
		if c == nil || c.ID == nil {
			continue
		}
		coin := types.Coin{ID: *c.ID}
		if c.Name != nil {
			coin.Name = *c.Name
		}
		if c.Symbol != nil {
			coin.Symbol = *c.Symbol
		}
		if c.Rank != nil {
			coin.Rank = int64(*c.Rank)
		}
		coins = append(coins, coin)
	}
	return coins, nil
}

// Ticker fetches the USD quote of a single coin
func (p *Paprika) Ticker(ctx context.Context, id string) (types.Quote, error) {
	if err := ctx.Err(); err != nil {
		return types.Quote{}, err
	}

	ticker, err := p.client.Tickers.GetByID(id, &coinpaprika.TickersOptions{Quotes: "USD"})
	if err != nil {
		return types.Quote{}, errors.Wrapf(err, "ticker %s", id)
	}

	t, ok := convertTicker(ticker)
	if !ok {
		return types.Quote{}, errors.Wrapf(ErrInvalidResponse, "ticker %s has no USD price", id)
	}
	return t.Quote, nil
}

// Tickers fetches USD quotes of every listed coin in one request
func (p *Paprika) Tickers(ctx context.Context) ([]types.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tickers, err := p.client.Tickers.List(&coinpaprika.TickersOptions{Quotes: "USD"})
	if err != nil {
		return nil, errors.Wrap(err, "tickers")
	}

	out := make([]types.Ticker, 0, len(tickers))
	for _, ticker := range tickers {
		if t, ok := convertTicker(ticker); ok {
			out = append(out, t)
		}
	}
	if len(tickers) > 0 && len(out) == 0 {
		return nil, errors.Wrap(ErrInvalidResponse, "no ticker carries a USD price")
	}
	return out, nil
}

func convertTicker(ticker *coinpaprika.Ticker) (types.Ticker, bool) {
	if ticker == nil || ticker.ID == nil {
		return types.Ticker{}, false
	}
	usd, ok := ticker.Quotes["USD"]
	if !ok || usd.Price == nil {
		return types.Ticker{}, false
	}

	t := types.Ticker{
		ID: *ticker.ID,
		Quote: types.Quote{
			Price:     decimal.NewFromFloat(*usd.Price),
			Change24h: nullDecimal(usd.PercentChange24h),
			MarketCap: nullDecimal(usd.MarketCap),
			Volume24h: nullDecimal(usd.Volume24h),
		},
	}
	if ticker.Name != nil {
		t.Name = *ticker.Name
	}
	if ticker.Symbol != nil {
		t.Symbol = *ticker.Symbol
	}
	if ticker.Rank != nil {
		t.Rank = int64(*ticker.Rank)
	}
	return t, true
}

func nullDecimal(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*f))
}
