// Package exchange runs the per-venue loop that keeps one connector's
// market data, inventory, and order state in sync and invokes the strategy
// hook once that data is fresh. Grounded on
// original_source/core/exchange/exchange_base.py's SpotExchange.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spotbot/internal/connector"
	"spotbot/internal/domain"
	"spotbot/internal/errs"
	"spotbot/internal/metrics"
	"spotbot/internal/ordermanager"
)

// DefaultLoopInterval matches global_settings.LOOP_INTERVAL.
const DefaultLoopInterval = 2 * time.Second

// DefaultBufferOrderQuantity matches global_settings.BUFFER_ORDER_QUANTITY:
// a safety margin applied to the pre-flight inventory sufficiency check so a
// batch is rejected slightly before it would actually exhaust the balance.
const DefaultBufferOrderQuantity = 1.01

// StrategyFunc is the per-interval strategy hook a SpotExchange invokes once
// its market data is fresh, grounded on exchange_base.py's
// `_handle_strategy_action` task. Exchange never imports the strategy
// package; the strategy package imports exchange and hands back a closure.
type StrategyFunc func(ctx context.Context, ex *SpotExchange) error

// Config wires one SpotExchange to its connector, pairs, and tunables.
type Config struct {
	BotID               string
	Connector           connector.Connector
	Pairs               []*domain.Pair
	LoopInterval        time.Duration
	BufferOrderQuantity decimal.Decimal
	Strategy            StrategyFunc
	Logger              *slog.Logger
}

// SpotExchange is one venue's market-data/inventory/order loop.
type SpotExchange struct {
	botID        string
	name         string
	conn         connector.Connector
	pairs        []*domain.Pair
	tokens       []domain.Token
	inventory    *domain.Inventory
	orders       *ordermanager.Manager
	loopInterval time.Duration
	bufferQty    decimal.Decimal
	strategy     StrategyFunc
	logger       *slog.Logger

	mu     sync.RWMutex
	status Status
}

// New builds a SpotExchange from cfg, deriving the token set from the given
// pairs. Grounded on exchange_base.py::_subscribe_pair.
func New(cfg Config) *SpotExchange {
	loopInterval := cfg.LoopInterval
	if loopInterval <= 0 {
		loopInterval = DefaultLoopInterval
	}
	bufferQty := cfg.BufferOrderQuantity
	if bufferQty.IsZero() {
		bufferQty = decimal.NewFromFloat(DefaultBufferOrderQuantity)
	}

	seen := make(map[domain.Token]bool)
	var tokens []domain.Token
	for _, p := range cfg.Pairs {
		for _, t := range []domain.Token{p.BaseAsset(), p.QuoteAsset()} {
			if !seen[t] {
				seen[t] = true
				tokens = append(tokens, t)
			}
		}
	}

	name := cfg.Connector.Name()
	return &SpotExchange{
		botID:        cfg.BotID,
		name:         name,
		conn:         cfg.Connector,
		pairs:        cfg.Pairs,
		tokens:       tokens,
		inventory:    domain.NewInventory(tokens, domain.DefaultDataMaxLength),
		orders:       ordermanager.NewManager(name, cfg.Pairs),
		loopInterval: loopInterval,
		bufferQty:    bufferQty,
		strategy:     cfg.Strategy,
		logger:       cfg.Logger,
		status: Status{
			FetchDataStatus:           StatusProcessing,
			StrategyCalculationStatus: StatusProcessing,
			MainProcessStatus:         StatusInitializing,
		},
	}
}

func (ex *SpotExchange) Name() string              { return ex.name }
func (ex *SpotExchange) Pairs() []*domain.Pair      { return ex.pairs }
func (ex *SpotExchange) Inventory() *domain.Inventory { return ex.inventory }
func (ex *SpotExchange) OrderManager() *ordermanager.Manager { return ex.orders }

// Snapshot returns a copy of the current status variables.
func (ex *SpotExchange) Snapshot() Status {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return ex.status
}

func (ex *SpotExchange) setStatus(f func(*Status)) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	f(&ex.status)
}

// SetStrategy wires this exchange's per-interval hook after construction.
// A bot's strategy is built from its full set of exchanges (spec §4.4), so
// the exchanges must exist first; call SetStrategy on each before Run.
func (ex *SpotExchange) SetStrategy(fn StrategyFunc) {
	ex.strategy = fn
}

// Run drives the loop until ctx is canceled: each interval runs the timer
// and data-fetch tasks concurrently and waits for both, then runs the
// strategy hook and Reconcile in sequence if the exchange is ready. Grounded
// on exchange_base.py::_run's asyncio.gather of
// _loop_interval/_fetch_data_process/_handle_strategy_action.
func (ex *SpotExchange) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		ex.runInterval(ctx)
	}
}

// runInterval drives a single loop-timer/fetch/strategy/reconcile cycle and
// records its wall-clock duration regardless of which path it exits by.
func (ex *SpotExchange) runInterval(ctx context.Context) {
	intervalStart := time.Now()
	defer func() { metrics.ObserveInterval(ex.botID, ex.name, time.Since(intervalStart)) }()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		ex.loopInterval_(ctx)
	}()

	var fetchErr error
	go func() {
		defer wg.Done()
		fetchErr = ex.fetchDataProcess(ctx)
	}()

	wg.Wait()

	if fetchErr != nil {
		ex.logger.Error("fetch data process failed", "exchange", ex.name, "error", fetchErr)
		return
	}

	if ex.strategy != nil && ex.Snapshot().ReadyForStrategy {
		if err := ex.strategy(ctx, ex); err != nil {
			ex.setStatus(func(s *Status) { s.StrategyCalculationStatus = StatusProcessedErr })
			ex.logger.Error("strategy action failed", "exchange", ex.name, "error", err)
		} else {
			ex.setStatus(func(s *Status) { s.StrategyCalculationStatus = StatusProcessed })
		}
		ex.Reconcile(ctx)
	}
}

// Reconcile submits the strategy's queued post/cancel batches to the
// connector and transitions lifecycle state on the responses, grounded on
// spec §4.2's reconcile task ("concurrently submit the two batches to the
// connector, await both, then transition lifecycle states"). Exported so a
// supervisor can flush pending cancellations on shutdown after the loop's
// own context has already been cancelled.
func (ex *SpotExchange) Reconcile(ctx context.Context) {
	toPost := ex.orders.InitializedOrders()
	toCancel := ex.orders.CancelledListOrders()
	if len(toPost) == 0 && len(toCancel) == 0 {
		ex.setStatus(func(s *Status) { s.ProcessActionStatus = StatusProcessed })
		return
	}
	ex.setStatus(func(s *Status) { s.ProcessActionStatus = StatusProcessing })

	var wg sync.WaitGroup
	var posted, cancelled []*domain.SpotOrder
	if len(toPost) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ex.orders.PostingOrders()
			res, err := ex.conn.CreateSpotOrders(ctx, toPost)
			if err != nil {
				ex.logger.Error("post order batch failed", "exchange", ex.name, "error", err)
				return
			}
			posted = res
		}()
	}
	if len(toCancel) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ex.orders.CancellingOrders()
			res, err := ex.conn.CancelSpotOrders(ctx, toCancel)
			if err != nil {
				ex.logger.Error("cancel order batch failed", "exchange", ex.name, "error", err)
				return
			}
			cancelled = res
		}()
	}
	wg.Wait()

	// Both responses are applied only after both calls returned: cancels, then posts.
	if len(toCancel) > 0 {
		ex.orders.CancelledOrders(cancelled)
	}
	if len(toPost) > 0 {
		ex.orders.PostedOrders(posted)
	}

	for _, p := range ex.pairs {
		metrics.TrackedOrders.WithLabelValues(ex.botID, ex.name, p.TradingPair()).
			Set(float64(len(ex.orders.Pair(p).ActiveOrders())))
	}

	ex.setStatus(func(s *Status) { s.ProcessActionStatus = StatusProcessed })
}

// loopInterval_ sleeps for the configured interval, bracketed by the same
// status-variable transitions as exchange_base.py::_loop_interval.
func (ex *SpotExchange) loopInterval_(ctx context.Context) {
	ex.setStatus(func(s *Status) {
		s.MainProcessStatus = StatusProcessing
		s.StrategyCalculationStatus = StatusProcessing
		s.ReadyForStrategy = false
		s.LastIntervalAt = time.Now()
	})

	select {
	case <-ctx.Done():
	case <-time.After(ex.loopInterval):
	}

	ex.setStatus(func(s *Status) {
		s.MainProcessStatus = StatusProcessed
		s.LoopCount++
	})
}

// fetchDataProcess fans out the connector fetch calls for this interval and
// applies the results, branching on whether the exchange has ever completed
// a cold start. Grounded on exchange_base.py::_fetch_data_process.
func (ex *SpotExchange) fetchDataProcess(ctx context.Context) error {
	ex.setStatus(func(s *Status) { s.FetchDataStatus = StatusProcessing })

	if !ex.Snapshot().MarketReady {
		return ex.coldStart(ctx)
	}
	return ex.warmFetch(ctx)
}

// coldStart requires every data kind to be present before the exchange is
// marked ready; any single absence retries the whole interval, matching the
// source's five-way `if ... is None: return False` chain. The five requests
// are independent reads, so they're fanned out concurrently (as Reconcile
// fans out its post/cancel batches) rather than serialized behind each
// other's TIME_OUT_PROCESS wrapper.
func (ex *SpotExchange) coldStart(ctx context.Context) error {
	var (
		balance      map[domain.Token]domain.Balance
		book         map[string]*domain.OrderBook
		candles      map[string]*domain.PriceCandles
		tickers      map[string]*domain.Tickers
		activeOrders []*domain.SpotOrder

		errBalance, errBook, errCandles, errTickers, errActive error
	)

	var wg sync.WaitGroup
	wg.Add(5)
	go func() { defer wg.Done(); balance, errBalance = ex.conn.GetInventoryBalance(ctx) }()
	go func() { defer wg.Done(); book, errBook = ex.conn.GetOrderBook(ctx) }()
	go func() { defer wg.Done(); candles, errCandles = ex.conn.GetTradingCandles(ctx, domain.PeriodM1) }()
	go func() { defer wg.Done(); tickers, errTickers = ex.conn.GetTickers(ctx) }()
	go func() { defer wg.Done(); activeOrders, errActive = ex.conn.GetActiveSpotOrders(ctx) }()
	wg.Wait()

	if err := firstErr(errBalance, errBook, errCandles, errTickers, errActive); err != nil {
		return err
	}

	if tickers == nil || candles == nil || book == nil || balance == nil || activeOrders == nil {
		ex.logger.Warn("market not ready, retrying", "exchange", ex.name)
		ex.setStatus(func(s *Status) { s.FetchDataStatus = StatusProcessed })
		return nil
	}

	ex.applyMarketData(book, candles, tickers)
	ex.inventory.Update(balance, time.Now().Unix())
	ex.orders.InsertActiveOrders(activeOrders)

	ex.setStatus(func(s *Status) {
		s.MarketReady = true
		s.FetchDataStatus = StatusProcessed
		s.ReadyForStrategy = true
	})
	ex.logger.Info("exchange ready", "exchange", ex.name)
	return nil
}

// warmFetch reconciles the steady-state loop. The inventory, order book,
// candle, and ticker reads are independent, so they're fanned out
// concurrently rather than serialized. Per the spec's stricter rule (a
// deliberate divergence from the source, which logs-and-continues on a
// missing inventory read instead of skipping), an absent inventory result
// skips the rest of this interval's reconciliation outright rather than
// applying a partial update.
func (ex *SpotExchange) warmFetch(ctx context.Context) error {
	var (
		balance map[domain.Token]domain.Balance
		book    map[string]*domain.OrderBook
		candles map[string]*domain.PriceCandles
		tickers map[string]*domain.Tickers

		errBalance, errBook, errCandles, errTickers error
	)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); balance, errBalance = ex.conn.GetInventoryBalance(ctx) }()
	go func() { defer wg.Done(); book, errBook = ex.conn.GetOrderBook(ctx) }()
	go func() { defer wg.Done(); candles, errCandles = ex.conn.GetTradingCandles(ctx, domain.PeriodM1) }()
	go func() { defer wg.Done(); tickers, errTickers = ex.conn.GetTickers(ctx) }()
	wg.Wait()

	if err := firstErr(errBalance, errBook, errCandles, errTickers); err != nil {
		return err
	}

	if balance == nil {
		ex.logger.Warn("no inventory data, skipping reconciliation this interval", "exchange", ex.name)
		ex.setStatus(func(s *Status) { s.FetchDataStatus = StatusProcessed })
		return nil
	}
	ex.inventory.Update(balance, time.Now().Unix())
	ex.applyMarketData(book, candles, tickers)

	// query_order is issued per tracked order, index-aligned with queried so
	// an absent response (nil err and nil result, or a failed call) is still
	// visible to UpdateState instead of being dropped before it gets there.
	tracked := ex.orders.TrackedOrders()
	queried := make([]*domain.SpotOrder, len(tracked))
	var qwg sync.WaitGroup
	qwg.Add(len(tracked))
	for i, o := range tracked {
		i, o := i, o
		go func() {
			defer qwg.Done()
			res, err := ex.conn.QueryOrder(ctx, o)
			if err != nil {
				ex.logger.Error("query order failed", "exchange", ex.name, "order_id", o.OrderID, "error", err)
				return
			}
			queried[i] = res
		}()
	}
	qwg.Wait()
	if err := ex.orders.UpdateState(tracked, queried); err != nil {
		ex.logger.Error("update order state failed", "exchange", ex.name, "error", err)
	}

	ex.setStatus(func(s *Status) {
		s.FetchDataStatus = StatusProcessed
		s.ReadyForStrategy = true
	})
	return nil
}

// firstErr returns the first non-nil error among errs, or nil.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (ex *SpotExchange) applyMarketData(book map[string]*domain.OrderBook, candles map[string]*domain.PriceCandles, tickers map[string]*domain.Tickers) {
	if book == nil && candles == nil && tickers == nil {
		return
	}
	for _, p := range ex.pairs {
		symbol := p.TradingPair()
		if book != nil {
			p.AddOrderBook(book[symbol])
		}
		if candles != nil {
			p.AddTradingCandle(candles[symbol])
		}
		if tickers != nil {
			p.AddTicker(tickers[symbol])
		}
	}
}

// CreateSpotOrder posts a single order after an inventory sufficiency
// pre-flight, grounded on exchange_base.py::create_spot_order.
func (ex *SpotExchange) CreateSpotOrder(order *domain.SpotOrder) error {
	order.Status = domain.StatusNew
	order.OrderID = ex.orders.CreateID()

	if err := ex.checkSufficientBalance(order.Pair, order.Side, order.Quantity.Mul(order.Price), order.Quantity); err != nil {
		metrics.RejectedBatches.WithLabelValues(ex.botID, ex.name).Inc()
		return err
	}

	ex.logger.Info("posting order", "exchange", ex.name, "side", order.Side, "type", order.OrderType,
		"pair", order.Pair.TradingPair(), "quantity", order.Quantity, "price", order.Price)
	ex.orders.AddPostOrders([]*domain.SpotOrder{order})
	return nil
}

// CreateSpotOrders batches multiple orders, pre-flighting buy/sell exposure
// per trading pair before admitting any of them, grounded on
// exchange_base.py::create_spot_orders.
func (ex *SpotExchange) CreateSpotOrders(orders []*domain.SpotOrder) error {
	if len(orders) == 0 {
		return nil
	}
	ex.logger.Info("posting order batch", "exchange", ex.name, "count", len(orders))

	byPair := make(map[*domain.Pair][]*domain.SpotOrder)
	for _, o := range orders {
		o.OrderID = ex.orders.CreateID()
		o.Status = domain.StatusNew
		byPair[o.Pair] = append(byPair[o.Pair], o)
	}

	for pair, pairOrders := range byPair {
		sumBuy, sumSell := decimal.Zero, decimal.Zero
		for _, o := range pairOrders {
			if o.Side == domain.SideBuy {
				sumBuy = sumBuy.Add(o.Quantity.Mul(o.Price))
			} else {
				sumSell = sumSell.Add(o.Quantity)
			}
		}
		if err := ex.checkSufficientBalance(pair, domain.SideBuy, sumBuy, decimal.Zero); err != nil {
			metrics.RejectedBatches.WithLabelValues(ex.botID, ex.name).Inc()
			return err
		}
		if err := ex.checkSufficientBalance(pair, domain.SideSell, decimal.Zero, sumSell); err != nil {
			metrics.RejectedBatches.WithLabelValues(ex.botID, ex.name).Inc()
			return err
		}
	}

	for _, o := range orders {
		ex.logger.Info("posting order", "exchange", ex.name, "side", o.Side, "type", o.OrderType,
			"pair", o.Pair.TradingPair(), "quantity", o.Quantity, "price", o.Price)
	}
	ex.orders.AddPostOrders(orders)
	return nil
}

// checkSufficientBalance applies the BUFFER_ORDER_QUANTITY margin to a
// buy-value-vs-quote-balance and sell-quantity-vs-base-balance check.
func (ex *SpotExchange) checkSufficientBalance(pair *domain.Pair, side domain.Side, buyValue, sellQty decimal.Decimal) error {
	if side == domain.SideBuy && !buyValue.IsZero() {
		quote := ex.inventory.Free(pair.QuoteAsset())
		if buyValue.Mul(ex.bufferQty).GreaterThanOrEqual(quote) {
			return fmt.Errorf("pair %s: buy order value %s exceeds %s balance %s: %w",
				pair.TradingPair(), buyValue, pair.QuoteAsset(), quote, errs.ErrCalculationFail)
		}
	}
	if side == domain.SideSell && !sellQty.IsZero() {
		base := ex.inventory.Free(pair.BaseAsset())
		if sellQty.GreaterThanOrEqual(base.Mul(ex.bufferQty)) {
			return fmt.Errorf("pair %s: sell order quantity %s exceeds %s balance %s: %w",
				pair.TradingPair(), sellQty, pair.BaseAsset(), base, errs.ErrCalculationFail)
		}
	}
	return nil
}

// CancelSpotOrders marks the given orders for cancellation.
func (ex *SpotExchange) CancelSpotOrders(orders []*domain.SpotOrder) {
	ex.orders.AddCancelOrders(orders)
}

// CancelAllSpotOrders marks every active order for cancellation.
func (ex *SpotExchange) CancelAllSpotOrders() {
	ex.orders.CancelAllOrders()
	ex.logger.Info("cancel all spot orders", "exchange", ex.name)
}
