package connector

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"spotbot/internal/domain"
)

// BITRUE is the BITRUE-style (Binance-compatible) connector: HMAC-SHA256
// over the urlencoded query string with recvWindow+timestamp appended,
// X-MBX-APIKEY header, millis timestamps. Grounded on
// original_source/core/exchange/connector/BITRUE_connector.py in full.
type BITRUE struct {
	*base
	pipe      *pipeline
	apiKey    string
	secretKey string
}

// BITRUEConfig configures one BITRUE-style connector instance.
type BITRUEConfig struct {
	APIEndpoint    string
	APIKey         string
	SecretKey      string
	Pairs          []*domain.Pair
	Retries        int
	RequestTimeout time.Duration
	ProcessTimeout time.Duration
	Logger         *slog.Logger
}

// NewBITRUE constructs a BITRUE connector, matching the connector registry
// factory signature of spec §9.
func NewBITRUE(cfg BITRUEConfig) (Connector, error) {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = "https://openapi.bitrue.com"
	}
	tradingPairs := make([]string, len(cfg.Pairs))
	for i, p := range cfg.Pairs {
		tradingPairs[i] = p.TradingPair()
	}
	limiter := rate.NewLimiter(rate.Limit(20), 20)

	c := &BITRUE{
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		pipe:      newPipeline("BITRUE", cfg.APIEndpoint, cfg.RequestTimeout, cfg.ProcessTimeout, cfg.Retries, limiter, cfg.Logger),
	}
	c.base = &base{
		name:         "BITRUE",
		tradingPairs: tradingPairs,
		pairs:        cfg.Pairs,
		logger:       cfg.Logger,
		impl:         c,
	}
	return c, nil
}

// createSignature is grounded on BITRUE_connector.py::_create_signature.
func createSignature(secretKey, query string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// signer appends recvWindow+timestamp to the query and signs it, grounded on
// BITRUE_connector.py::_curl's auth branch.
func (c *BITRUE) signer(auth bool) signer {
	return func(verb httpVerb, path string, query map[string]string, body []byte) (map[string]string, map[string]string) {
		if !auth {
			return nil, query
		}
		if query == nil {
			query = map[string]string{}
		}
		signedQuery := make(map[string]string, len(query)+2)
		for k, v := range query {
			signedQuery[k] = v
		}
		signedQuery["recvWindow"] = "10000"
		signedQuery["timestamp"] = strconv.FormatInt(time.Now().UnixMilli(), 10)

		qs := encodeSortedQuery(signedQuery)
		signedQuery["signature"] = createSignature(c.secretKey, qs)

		return map[string]string{"X-MBX-APIKEY": c.apiKey}, signedQuery
	}
}

// encodeSortedQuery mirrors urlencode(query) on a plain string map.
func encodeSortedQuery(query map[string]string) string {
	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	return values.Encode()
}

func (c *BITRUE) fetchInventoryBalance(ctx context.Context) (map[domain.Token]domain.Balance, error) {
	var raw struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := c.pipe.curl(ctx, verbGet, "/api/v1/account", c.signer(true), nil, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw.Balances) == 0 {
		return nil, nil
	}
	out := make(map[domain.Token]domain.Balance)
	for _, b := range raw.Balances {
		tok := domain.NewToken(b.Asset)
		free := parseDec(b.Free)
		// BITRUE reports only a flat free figure too; normalize the same way
		// as FMFW (spec §9 balance-shape open question).
		out[tok] = domain.Balance{Free: free, Used: decimal.Zero, Total: free}
	}
	return out, nil
}

func (c *BITRUE) fetchOrderBook(ctx context.Context) (map[string]*domain.OrderBook, error) {
	out := make(map[string]*domain.OrderBook, len(c.tradingPairs))
	for _, symbol := range c.tradingPairs {
		var raw struct {
			Bids [][]string `json:"bids"`
			Asks [][]string `json:"asks"`
		}
		query := map[string]string{"symbol": symbol}
		if err := c.pipe.curl(ctx, verbGet, "/api/v1/depth", c.signer(false), query, nil, &raw); err != nil {
			return nil, err
		}
		if raw.Bids == nil && raw.Asks == nil {
			continue
		}
		out[symbol] = domain.NewOrderBook(toLevels(raw.Bids), toLevels(raw.Asks), time.Now().Unix())
	}
	if len(out) != len(c.tradingPairs) {
		return nil, nil
	}
	return out, nil
}

func (c *BITRUE) fetchTickers(ctx context.Context) (map[string]*domain.Tickers, error) {
	out := make(map[string]*domain.Tickers, len(c.tradingPairs))
	now := time.Now().Unix()
	for _, symbol := range c.tradingPairs {
		var raw []struct {
			OpenPrice string `json:"openPrice"`
			HighPrice string `json:"highPrice"`
			LowPrice  string `json:"lowPrice"`
			LastPrice string `json:"lastPrice"`
			AskPrice  string `json:"askPrice"`
			BidPrice  string `json:"bidPrice"`
			Volume    string `json:"volume"`
		}
		query := map[string]string{"symbol": symbol}
		if err := c.pipe.curl(ctx, verbGet, "/api/v1/ticker/24hr", c.signer(false), query, nil, &raw); err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			continue
		}
		t := raw[0]
		out[symbol] = &domain.Tickers{
			Timestamp: now,
			Open:      parseDec(t.OpenPrice),
			High:      parseDec(t.HighPrice),
			Low:       parseDec(t.LowPrice),
			Close:     parseDec(t.LastPrice),
			Bid:       parseDec(t.BidPrice),
			Ask:       parseDec(t.AskPrice),
			Volume:    parseDec(t.Volume),
		}
	}
	if len(out) != len(c.tradingPairs) {
		return nil, nil
	}
	return out, nil
}

func (c *BITRUE) fetchTradingCandles(ctx context.Context, period domain.CandlePeriod) (map[string]*domain.PriceCandles, error) {
	out := make(map[string]*domain.PriceCandles, len(c.tradingPairs))
	now := time.Now().Unix()
	for _, symbol := range c.tradingPairs {
		var raw struct {
			Data []struct {
				Open  string `json:"open"`
				High  string `json:"high"`
				Low   string `json:"low"`
				Close string `json:"close"`
				Vol   string `json:"vol"`
			} `json:"data"`
		}
		query := map[string]string{"symbol": symbol, "period": string(period)}
		if err := c.pipe.curl(ctx, verbGet, "/kline-api/kline/history", c.signer(false), query, nil, &raw); err != nil {
			return nil, err
		}
		if len(raw.Data) == 0 {
			continue
		}
		d := raw.Data[len(raw.Data)-1]
		out[symbol] = &domain.PriceCandles{
			Timestamp: now,
			Open:      parseDec(d.Open),
			High:      parseDec(d.High),
			Low:       parseDec(d.Low),
			Close:     parseDec(d.Close),
			Volume:    parseDec(d.Vol),
			Period:    period,
		}
	}
	if len(out) != len(c.tradingPairs) {
		return nil, nil
	}
	return out, nil
}

type bitrueOrder struct {
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	OrigQty       string `json:"origQty"`
	Price         string `json:"price"`
	ExecutedQty   string `json:"executedQty"`
	Status        string `json:"status"`
	TransactTime  int64  `json:"transactTime"`
}

func (c *BITRUE) modifyOrderModel(r bitrueOrder) (*domain.SpotOrder, error) {
	pair, err := c.GetPair(r.Symbol)
	if err != nil {
		return nil, err
	}
	side := domain.SideBuy
	if strings.EqualFold(r.Side, "sell") {
		side = domain.SideSell
	}
	otype := domain.OrderTypeLimit
	if strings.EqualFold(r.Type, "market") {
		otype = domain.OrderTypeMarket
	}
	var status domain.OrderStatus
	switch strings.ToUpper(r.Status) {
	case "NEW":
		status = domain.StatusNew
	case "PARTIALLY_FILLED":
		status = domain.StatusPartiallyFilled
	case "FILLED":
		status = domain.StatusFilled
	default:
		status = domain.StatusCanceled
	}
	ts := r.TransactTime / 1000
	return &domain.SpotOrder{
		OrderID:            r.ClientOrderID,
		Pair:               pair,
		Quantity:           parseDec(r.OrigQty),
		Price:              parseDec(r.Price),
		Side:               side,
		OrderType:          otype,
		QuantityCumulative: parseDec(r.ExecutedQty),
		Status:             status,
		CreatedAt:          ts,
		UpdatedAt:          ts,
	}, nil
}

func (c *BITRUE) postSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	qty := roundNearest(order.Quantity, order.Pair.QuantityIncrement())
	price := roundNearest(order.Price, order.Pair.TickSize())

	side := "BUY"
	if order.Side == domain.SideSell {
		side = "SELL"
	}
	otype := "LIMIT"
	query := map[string]string{
		"symbol":          order.Pair.TradingPair(),
		"side":            side,
		"type":            otype,
		"quantity":        qty.String(),
		"newClientOrderId": order.OrderID,
	}
	if order.OrderType == domain.OrderTypeMarket {
		query["type"] = "MARKET"
		delete(query, "price")
	} else {
		query["price"] = price.String()
	}

	var resp bitrueOrder
	if err := c.pipe.curl(ctx, verbPost, "/api/v1/order", c.signer(true), query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ClientOrderID == "" {
		return nil, nil
	}
	updated := order.Clone()
	updated.OrderID = resp.ClientOrderID
	updated.Quantity = qty
	updated.Price = price
	updated.Status = domain.StatusNew
	updated.CreatedAt = resp.TransactTime / 1000
	updated.UpdatedAt = updated.CreatedAt
	return updated, nil
}

func (c *BITRUE) deleteSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	query := map[string]string{
		"symbol":            order.Pair.TradingPair(),
		"origClientOrderId": order.OrderID,
	}
	var resp bitrueOrder
	if err := c.pipe.curl(ctx, verbDelete, "/api/v1/order", c.signer(true), query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ClientOrderID == "" {
		return nil, nil
	}
	return c.modifyOrderModel(resp)
}

func (c *BITRUE) fetchOrderStatus(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	query := map[string]string{
		"symbol":            order.Pair.TradingPair(),
		"origClientOrderId": order.OrderID,
	}
	var resp bitrueOrder
	if err := c.pipe.curl(ctx, verbGet, "/api/v1/order", c.signer(true), query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ClientOrderID == "" {
		return nil, nil
	}
	return c.modifyOrderModel(resp)
}

func (c *BITRUE) fetchActiveSpotOrders(ctx context.Context) ([]*domain.SpotOrder, error) {
	var raw []bitrueOrder
	if err := c.pipe.curl(ctx, verbGet, "/api/v1/openOrders", c.signer(true), nil, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]*domain.SpotOrder, 0, len(raw))
	for _, r := range raw {
		o, err := c.modifyOrderModel(r)
		if err != nil {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}
