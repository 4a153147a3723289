package alert

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the pause between two alert checks
const DefaultInterval = time.Minute

// TickResult summarises one alert check
type TickResult struct {
	Alerts        int
	Groups        int
	SkippedGroups int
	Triggered     int
	Delivered     int
	Failed        int
	Remaining     int
	Duration      time.Duration
}

// Observer is told about every finished tick
type Observer interface {
	ObserveTick(res TickResult, err error)
}

// Status is a snapshot of the engine for the ops endpoint
type Status struct {
	Running   bool          `json:"running"`
	Checking  bool          `json:"checking"`
	Interval  time.Duration `json:"interval"`
	LastTick  time.Time     `json:"lastTick,omitempty"`
	LastError string        `json:"lastError,omitempty"`
	Alerts    int           `json:"alerts"`
}

// Engine periodically checks stored alerts against live quotes and
// notifies the owners of the ones that fired
type Engine struct {
	store       Store
	quoter      Quoter
	notifier    Notifier
	guard       *Guard
	observer    Observer
	interval    time.Duration
	concurrency int

	checking atomic.Bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	lastTick time.Time
	lastErr  error
	alerts   int
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithInterval changes the check interval
func WithInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithGuard shares a store guard with a Manager
func WithGuard(g *Guard) EngineOption {
	return func(e *Engine) {
		e.guard = g
	}
}

// WithTickObserver reports tick results, e.g. to metrics
func WithTickObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithConcurrency bounds how many symbols are resolved in parallel
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEngine creates an idle engine
func NewEngine(store Store, quoter Quoter, notifier Notifier, opts ...EngineOption) *Engine {
	e := &Engine{
		store:       store,
		quoter:      quoter,
		notifier:    notifier,
		guard:       &Guard{},
		interval:    DefaultInterval,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start runs a check every interval until Stop is called or ctx ends
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		log.Warn("⚠️ Alert monitor is already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx, e.done)

	log.Infof("🚨 Alert monitor started, checking every %s", e.interval)
}

// Stop cancels the loop and waits for a running check to return
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		log.Warn("⚠️ Alert monitor is not running")
		return
	}

	cancel()
	<-done
	log.Info("Alert monitor stopped")
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Tick(ctx); err != nil {
				if errors.Is(err, ErrTickInProgress) {
					log.Debug("previous alert check still running, skipping")
					continue
				}
				log.WithError(err).Error("❌ Alert check failed")
			}
		}
	}
}

// Status returns a snapshot of the engine state
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Running:  e.cancel != nil,
		Checking: e.checking.Load(),
		Interval: e.interval,
		LastTick: e.lastTick,
		Alerts:   e.alerts,
	}
	if e.lastErr != nil {
		s.LastError = e.lastErr.Error()
	}
	return s
}

// Tick runs one alert check. Only one check runs at a time; a concurrent
// call returns ErrTickInProgress without touching the store.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	if !e.checking.CompareAndSwap(false, true) {
		return TickResult{}, ErrTickInProgress
	}
	defer e.checking.Store(false)

	start := time.Now()
	res, err := e.tick(ctx)
	res.Duration = time.Since(start)

	e.mu.Lock()
	e.lastTick = start
	e.lastErr = err
	if err == nil {
		e.alerts = res.Remaining
	}
	e.mu.Unlock()

	if e.observer != nil {
		e.observer.ObserveTick(res, err)
	}
	return res, err
}

func (e *Engine) tick(ctx context.Context) (res TickResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("🔥 Panic recovered in alert checker: %v", r)
			err = errors.Errorf("panic during alert check: %v", r)
		}
	}()

	unlock := e.guard.lock()
	defer unlock()

	alerts, err := e.store.Load(ctx)
	if err != nil {
		return res, errors.Wrap(err, "could not load alerts")
	}
	res.Alerts = len(alerts)
	res.Remaining = len(alerts)
	if len(alerts) == 0 {
		return res, nil
	}

	symbols := groupSymbols(alerts)
	res.Groups = len(symbols)
	log.WithFields(log.Fields{"alerts": len(alerts), "symbols": len(symbols)}).Debug("🔍 Checking active alerts")

	coins := e.resolveGroups(ctx, symbols)
	quotes := e.fetchQuotes(ctx, coins)

	var triggered []types.TriggeredEvent
	remaining := make([]types.Alert, 0, len(alerts))
	for _, a := range alerts {
		coin, ok := coins[a.Symbol]
		if !ok {
			remaining = append(remaining, a)
			continue
		}
		q, ok := quotes[coin.ID]
		if !ok || !a.Matches(q.Price) {
			remaining = append(remaining, a)
			continue
		}

		name := coin.Name
		if name == "" {
			name = a.CoinName
		}
		triggered = append(triggered, types.TriggeredEvent{Alert: a, CurrentPrice: q.Price, CoinName: name})
	}

	for _, s := range symbols {
		if _, ok := quotes[coins[s].ID]; !ok {
			res.SkippedGroups++
		}
	}
	res.Triggered = len(triggered)
	if len(triggered) == 0 {
		return res, nil
	}

	for _, ev := range triggered {
		if err := e.notifier.NotifyUser(ctx, ev.Alert.UserID, ev); err != nil {
			res.Failed++
			log.WithFields(log.Fields{
				"alert":  ev.Alert.ID,
				"user":   ev.Alert.UserID,
				"symbol": ev.Alert.Symbol,
			}).WithError(err).Error("❌ Failed to send alert notification, alert is consumed")
			continue
		}
		res.Delivered++
		log.WithFields(log.Fields{"alert": ev.Alert.ID, "user": ev.Alert.UserID}).Info("✅ Alert notification sent")
	}

	// deliveries were attempted, a shutdown must not re-arm these alerts
	if err := e.store.Save(context.WithoutCancel(ctx), remaining); err != nil {
		return res, errors.Wrap(err, "could not save alerts")
	}
	res.Remaining = len(remaining)
	log.WithFields(log.Fields{"triggered": res.Triggered, "remaining": res.Remaining}).Info("✅ Alert check completed")
	return res, nil
}

// groupSymbols returns the distinct symbols of alerts in a stable order
func groupSymbols(alerts []types.Alert) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, a := range alerts {
		if !seen[a.Symbol] {
			seen[a.Symbol] = true
			symbols = append(symbols, a.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// resolveGroups resolves every symbol independently; failed symbols are
// missing from the result and their alerts stay pending
func (e *Engine) resolveGroups(ctx context.Context, symbols []string) map[string]types.Coin {
	var (
		mu    sync.Mutex
		coins = make(map[string]types.Coin, len(symbols))
		g     errgroup.Group
	)
	g.SetLimit(e.concurrency)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("symbol", symbol).Errorf("🔥 Panic recovered while resolving symbol, skipping this check: %v", r)
					err = nil
				}
			}()

			candidates, err := e.quoter.Resolve(ctx, symbol)
			if err == nil && len(candidates) == 0 {
				err = errors.Errorf("no coin matches %q", symbol)
			}
			if err != nil {
				log.WithField("symbol", symbol).WithError(err).Warn("⚠️ Could not resolve symbol, skipping this check")
				return nil
			}
			mu.Lock()
			coins[symbol] = candidates[0]
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return coins
}

// fetchQuotes prices every resolved coin with one batched call. Ids the
// batch could not price are retried one by one, so one coin's failure never
// costs another group its check.
func (e *Engine) fetchQuotes(ctx context.Context, coins map[string]types.Coin) map[string]types.Quote {
	if len(coins) == 0 {
		return nil
	}

	ids := make([]string, 0, len(coins))
	for _, c := range coins {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)

	quotes, err := e.quoter.Quotes(ctx, ids)
	if err != nil {
		log.WithField("ids", ids).WithError(err).Warn("⚠️ Could not fetch batched quotes, pricing coins one by one")
		quotes = nil
	}

	out := make(map[string]types.Quote, len(ids))
	var missing []string
	for _, id := range ids {
		if q, ok := quotes[id]; ok {
			out[id] = q
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.concurrency)
	for _, id := range missing {
		id := id
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("id", id).Errorf("🔥 Panic recovered while fetching quote, skipping this check: %v", r)
					err = nil
				}
			}()

			q, err := e.quoter.Quote(ctx, id)
			if err != nil {
				log.WithField("id", id).WithError(err).Warn("⚠️ No quote available, skipping this check")
				return nil
			}
			mu.Lock()
			out[id] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
