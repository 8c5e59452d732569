package connector

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"spotbot/internal/domain"
)

// FMFW is the FMFW-style connector: Basic base64(key:secret) auth, ISO-8601
// timestamp prefixes, /api/3/... endpoints. Grounded on
// original_source/core/exchange/connector/FMFW_connector.py in full.
type FMFW struct {
	*base
	pipe      *pipeline
	apiKey    string
	secretKey string
}

// FMFWConfig configures one FMFW-style connector instance.
type FMFWConfig struct {
	APIEndpoint    string
	APIKey         string
	SecretKey      string
	Pairs          []*domain.Pair
	Retries        int
	RequestTimeout time.Duration
	ProcessTimeout time.Duration
	Logger         *slog.Logger
}

// NewFMFW constructs an FMFW connector. Matches the connector registry
// factory signature of spec §9.
func NewFMFW(cfg FMFWConfig) (Connector, error) {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = "https://api.fmfw.io"
	}
	tradingPairs := make([]string, len(cfg.Pairs))
	for i, p := range cfg.Pairs {
		tradingPairs[i] = p.TradingPair()
	}
	// The venue publishes per-category weight limits (market=30/s,
	// trading=300/s, other=20/s in the source); this connector does not split
	// by category and applies one conservative 20/s limiter ahead of every call.
	limiter := rate.NewLimiter(rate.Limit(20), 20)

	c := &FMFW{
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		pipe:      newPipeline("FMFW", cfg.APIEndpoint, cfg.RequestTimeout, cfg.ProcessTimeout, cfg.Retries, limiter, cfg.Logger),
	}
	c.base = &base{
		name:         "FMFW",
		tradingPairs: tradingPairs,
		pairs:        cfg.Pairs,
		logger:       cfg.Logger,
		impl:         c,
	}
	return c, nil
}

// buildHeaders returns the Basic auth header, grounded on
// FMFW_connector.py::_build_headers: base64(api_key+":"+secret_key).
func (c *FMFW) buildHeaders() map[string]string {
	raw := c.apiKey + ":" + c.secretKey
	return map[string]string{
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)),
	}
}

func (c *FMFW) signer(auth bool) signer {
	return func(verb httpVerb, path string, query map[string]string, body []byte) (map[string]string, map[string]string) {
		if !auth {
			return nil, query
		}
		return c.buildHeaders(), query
	}
}

// convertTimestamp parses the ISO-8601 prefix (first 19 chars, matching
// FMFW_connector.py::convert_timestamp) into a unix timestamp in seconds.
func convertTimestamp(ts string) int64 {
	if len(ts) > 19 {
		ts = ts[:19]
	}
	t, err := time.Parse("2006-01-02T15:04:05", ts)
	if err != nil {
		return 0
	}
	return t.Unix()
}

func (c *FMFW) fetchInventoryBalance(ctx context.Context) (map[domain.Token]domain.Balance, error) {
	var raw []struct {
		Currency string `json:"currency"`
		Available string `json:"available"`
		Reserved  string `json:"reserved"`
	}
	if err := c.pipe.curl(ctx, verbGet, "/api/3/spot/balance", c.signer(true), nil, nil, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	out := make(map[domain.Token]domain.Balance, len(raw))
	for _, r := range raw {
		free, _ := decimal.NewFromString(r.Available)
		// FMFW reports a flat available/free figure (spec §9 open question on
		// balance shape); Used/Total are normalized here rather than left unset.
		out[domain.NewToken(r.Currency)] = domain.Balance{Free: free, Used: decimal.Zero, Total: free}
	}
	return out, nil
}

func (c *FMFW) fetchOrderBook(ctx context.Context) (map[string]*domain.OrderBook, error) {
	symbols := strings.Join(c.tradingPairs, ",")
	var raw map[string]struct {
		Timestamp string     `json:"timestamp"`
		Bid       [][]string `json:"bid"`
		Ask       [][]string `json:"ask"`
	}
	query := map[string]string{"symbols": symbols, "depth": "0"}
	if err := c.pipe.curl(ctx, verbGet, "/api/3/public/orderbook", c.signer(false), query, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) != len(c.tradingPairs) {
		return nil, nil
	}
	out := make(map[string]*domain.OrderBook, len(raw))
	for symbol, ob := range raw {
		ts := convertTimestamp(ob.Timestamp)
		out[symbol] = domain.NewOrderBook(toLevels(ob.Bid), toLevels(ob.Ask), ts)
	}
	return out, nil
}

func toLevels(raw [][]string) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			continue
		}
		price, _ := decimal.NewFromString(pair[0])
		size, _ := decimal.NewFromString(pair[1])
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out
}

func (c *FMFW) fetchTickers(ctx context.Context) (map[string]*domain.Tickers, error) {
	symbols := strings.Join(c.tradingPairs, ",")
	var raw map[string]struct {
		Timestamp string `json:"timestamp"`
		Open      string `json:"open"`
		High      string `json:"high"`
		Low       string `json:"low"`
		Last      string `json:"last"`
		Bid       string `json:"bid"`
		Ask       string `json:"ask"`
		Volume    string `json:"volume"`
	}
	query := map[string]string{"symbols": symbols}
	if err := c.pipe.curl(ctx, verbGet, "/api/3/public/ticker", c.signer(false), query, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) != len(c.tradingPairs) {
		return nil, nil
	}
	out := make(map[string]*domain.Tickers, len(raw))
	for symbol, t := range raw {
		out[symbol] = &domain.Tickers{
			Timestamp: convertTimestamp(t.Timestamp),
			Open:      parseDec(t.Open),
			High:      parseDec(t.High),
			Low:       parseDec(t.Low),
			Close:     parseDec(t.Last),
			Bid:       parseDec(t.Bid),
			Ask:       parseDec(t.Ask),
			Volume:    parseDec(t.Volume),
		}
	}
	return out, nil
}

func parseDec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func (c *FMFW) fetchTradingCandles(ctx context.Context, period domain.CandlePeriod) (map[string]*domain.PriceCandles, error) {
	symbols := strings.Join(c.tradingPairs, ",")
	var raw map[string][]struct {
		Timestamp string `json:"timestamp"`
		Open      string `json:"open"`
		Max       string `json:"max"`
		Min       string `json:"min"`
		Close     string `json:"close"`
		Volume    string `json:"volume"`
	}
	query := map[string]string{"symbols": symbols, "period": string(period), "limit": "1"}
	if err := c.pipe.curl(ctx, verbGet, "/api/3/public/candles", c.signer(false), query, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) != len(c.tradingPairs) {
		return nil, nil
	}
	out := make(map[string]*domain.PriceCandles, len(raw))
	for symbol, candles := range raw {
		if len(candles) == 0 {
			continue
		}
		last := candles[len(candles)-1]
		out[symbol] = &domain.PriceCandles{
			Timestamp: convertTimestamp(last.Timestamp),
			Open:      parseDec(last.Open),
			High:      parseDec(last.Max),
			Low:       parseDec(last.Min),
			Close:     parseDec(last.Close),
			Volume:    parseDec(last.Volume),
			Period:    period,
		}
	}
	return out, nil
}

func (c *FMFW) fetchActiveSpotOrders(ctx context.Context) ([]*domain.SpotOrder, error) {
	var raw []fmfwOrder
	if err := c.pipe.curl(ctx, verbGet, "/api/3/spot/order", c.signer(true), nil, nil, &raw); err != nil {
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

type fmfwOrder struct {
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price"`
	QuantityCum   string `json:"quantity_cumulative"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// modifyOrderModel maps FMFW field names/enums into a SpotOrder, grounded on
// FMFW_connector.py::_modify_order_model.
func (c *FMFW) modifyOrderModel(r fmfwOrder) (*domain.SpotOrder, error) {
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
	switch strings.ToLower(r.Status) {
	case "new":
		status = domain.StatusNew
	case "partiallyfilled":
		status = domain.StatusPartiallyFilled
	case "filled":
		status = domain.StatusFilled
	default:
		status = domain.StatusCanceled
	}
	return &domain.SpotOrder{
		OrderID:            r.ClientOrderID,
		Pair:               pair,
		Quantity:           parseDec(r.Quantity),
		Price:              parseDec(r.Price),
		Side:               side,
		OrderType:          otype,
		QuantityCumulative: parseDec(r.QuantityCum),
		Status:             status,
		CreatedAt:          convertTimestamp(r.CreatedAt),
		UpdatedAt:          convertTimestamp(r.UpdatedAt),
	}, nil
}

func (c *FMFW) postSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	qty := roundNearest(order.Quantity, order.Pair.QuantityIncrement())
	price := roundNearest(order.Price, order.Pair.TickSize())

	side := "buy"
	if order.Side == domain.SideSell {
		side = "sell"
	}
	otype := "limit"
	if order.OrderType == domain.OrderTypeMarket {
		otype = "market"
	}

	form := url.Values{}
	form.Set("client_order_id", order.OrderID)
	form.Set("symbol", order.Pair.TradingPair())
	form.Set("side", side)
	form.Set("type", otype)
	form.Set("quantity", qty.String())
	if otype == "limit" {
		form.Set("price", price.String())
	}
	body := []byte(form.Encode())

	var resp fmfwOrder
	if err := c.pipe.curl(ctx, verbPost, "/api/3/spot/order", c.signer(true), nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.ClientOrderID == "" {
		return nil, nil
	}
	updated := order.Clone()
	updated.OrderID = resp.ClientOrderID
	updated.Quantity = qty
	updated.Price = price
	// A successful POST of a LIMIT order is always NEW; FILLED is only ever
	// observed via QueryOrder (spec §9 open question decision 1).
	updated.Status = domain.StatusNew
	updated.CreatedAt = convertTimestamp(resp.CreatedAt)
	updated.UpdatedAt = updated.CreatedAt
	return updated, nil
}

func (c *FMFW) deleteSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	var resp fmfwOrder
	path := "/api/3/spot/order/" + order.OrderID
	if err := c.pipe.curl(ctx, verbDelete, path, c.signer(true), nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ClientOrderID == "" {
		return nil, nil
	}
	return c.modifyOrderModel(resp)
}

func (c *FMFW) fetchOrderStatus(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	var resp fmfwOrder
	path := "/api/3/spot/history/order"
	query := map[string]string{"client_order_id": order.OrderID}
	if err := c.pipe.curl(ctx, verbGet, path, c.signer(true), query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ClientOrderID == "" {
		return nil, nil
	}
	return c.modifyOrderModel(resp)
}
