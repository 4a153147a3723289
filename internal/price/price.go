package price

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"sort"
	"strings"
	"time"
)

// Upstream is the raw market data service the provider retries against
type Upstream interface {
	Search(ctx context.Context, query string) ([]types.Coin, error)
	Ticker(ctx context.Context, id string) (types.Quote, error)
	Tickers(ctx context.Context) ([]types.Ticker, error)
}

// RetryObserver is told about every retry the provider schedules
type RetryObserver interface {
	UpstreamRetry(reason string)
}

// RetryPolicy controls attempts and waits between them
type RetryPolicy struct {
	MaxAttempts   int
	RateLimitWait time.Duration
	NetworkWait   time.Duration
	ResetWait     time.Duration
}

// DefaultRetryPolicy is 3 attempts, 2s after a 429, 1.5s after a network
// error and 3s after a connection reset
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		RateLimitWait: 2 * time.Second,
		NetworkWait:   1500 * time.Millisecond,
		ResetWait:     3 * time.Second,
	}
}

func (rp RetryPolicy) delay(kind errorKind) time.Duration {
	switch kind {
	case kindRateLimited:
		return rp.RateLimitWait
	case kindReset:
		return rp.ResetWait
	case kindNetwork:
		return rp.NetworkWait
	}
	return 0
}

// MoverUniverse is how many top ranked coins TopMovers considers
const MoverUniverse = 100

// Provider fetches quotes with retry, backoff and request pacing.
// It is safe for concurrent use.
type Provider struct {
	upstream Upstream
	policy   RetryPolicy
	limiter  *rate.Limiter
	observer RetryObserver
	sleep    func(context.Context, time.Duration) error
}

// Option configures a Provider
type Option func(*Provider)

// WithRetryPolicy overrides DefaultRetryPolicy
func WithRetryPolicy(rp RetryPolicy) Option {
	return func(p *Provider) {
		if rp.MaxAttempts < 1 {
			rp.MaxAttempts = 1
		}
		p.policy = rp
	}
}

// WithRateLimit paces upstream requests, zero or less disables pacing
func WithRateLimit(perSecond float64) Option {
	return func(p *Provider) {
		if perSecond <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithObserver registers a retry observer, usually the bot metrics
func WithObserver(o RetryObserver) Option {
	return func(p *Provider) {
		p.observer = o
	}
}

// NewProvider creates a Provider on top of the given upstream
func NewProvider(upstream Upstream, opts ...Option) *Provider {
	p := &Provider{
		upstream: upstream,
		policy:   DefaultRetryPolicy(),
		limiter:  rate.NewLimiter(rate.Inf, 0),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Provider) do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	var lastKind errorKind
	attempts := 0

	for attempts < p.policy.MaxAttempts {
		attempts++
		if err := p.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, op)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), op)
		}

		lastErr, lastKind = err, classify(err)
		log.WithFields(log.Fields{
			"op":      op,
			"attempt": attempts,
			"max":     p.policy.MaxAttempts,
			"kind":    lastKind.String(),
		}).Debugf("upstream call failed: %v", err)

		if lastKind == kindNotFound || attempts == p.policy.MaxAttempts {
			break
		}

		if p.observer != nil {
			p.observer.UpstreamRetry(lastKind.String())
		}
		if d := p.policy.delay(lastKind); d > 0 {
			if err := p.sleep(ctx, d); err != nil {
				return errors.Wrap(err, op)
			}
		}
	}

	if sentinel := lastKind.sentinel(); sentinel != nil && !errors.Is(lastErr, sentinel) {
		return errors.Wrapf(sentinel, "%s failed after %d attempt(s): %v", op, attempts, lastErr)
	}
	return errors.Wrapf(lastErr, "%s failed after %d attempt(s)", op, attempts)
}

// Resolve searches coins matching query, best match first
func (p *Provider) Resolve(ctx context.Context, query string) ([]types.Coin, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, errors.Wrap(ErrNotFound, "empty query")
	}

	var coins []types.Coin
	err := p.do(ctx, "resolve "+query, func(ctx context.Context) error {
		var err error
		coins, err = p.upstream.Search(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(coins) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "no coin matches %q", query)
	}
	return coins, nil
}

// Quote returns the current quote of a single coin id
func (p *Provider) Quote(ctx context.Context, id string) (types.Quote, error) {
	var q types.Quote
	err := p.do(ctx, "quote "+id, func(ctx context.Context) error {
		var err error
		q, err = p.upstream.Ticker(ctx, id)
		return err
	})
	return q, err
}

// Quotes returns quotes for several coin ids in one upstream round trip.
// Ids unknown upstream are missing from the result.
func (p *Provider) Quotes(ctx context.Context, ids []string) (map[string]types.Quote, error) {
	wanted := make(map[string]bool, len(ids))
	var unique []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || wanted[id] {
			continue
		}
		wanted[id] = true
		unique = append(unique, id)
	}

	out := make(map[string]types.Quote, len(unique))
	switch len(unique) {
	case 0:
		return out, nil
	case 1:
		q, err := p.Quote(ctx, unique[0])
		if err != nil {
			return nil, err
		}
		out[unique[0]] = q
		return out, nil
	}

	tickers, err := p.tickers(ctx, "quotes "+strings.Join(unique, ","))
	if err != nil {
		return nil, err
	}
	for _, t := range tickers {
		if wanted[t.ID] {
			out[t.ID] = t.Quote
		}
	}
	return out, nil
}

// SplitIDs turns a comma-joined id list into a slice
func SplitIDs(ids string) []string {
	var out []string
	for _, id := range strings.Split(ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// TopMovers returns the n best 24h performers among the top ranked coins
func (p *Provider) TopMovers(ctx context.Context, n int) ([]types.Ticker, error) {
	tickers, err := p.tickers(ctx, "top movers")
	if err != nil {
		return nil, err
	}

	var ranked []types.Ticker
	for _, t := range tickers {
		if t.Rank > 0 && t.Quote.Change24h.Valid {
			ranked = append(ranked, t)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })
	if len(ranked) > MoverUniverse {
		ranked = ranked[:MoverUniverse]
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Quote.Change24h.Decimal.GreaterThan(ranked[j].Quote.Change24h.Decimal)
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func (p *Provider) tickers(ctx context.Context, op string) ([]types.Ticker, error) {
	var tickers []types.Ticker
	err := p.do(ctx, op, func(ctx context.Context) error {
		var err error
		tickers, err = p.upstream.Tickers(ctx)
		return err
	})
	return tickers, err
}
