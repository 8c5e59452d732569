package domain

import "github.com/shopspring/decimal"

// CandlePeriod is the bucket width of a PriceCandles snapshot.
type CandlePeriod string

const (
	PeriodM1  CandlePeriod = "M1"
	PeriodM3  CandlePeriod = "M3"
	PeriodM5  CandlePeriod = "M5"
	PeriodM15 CandlePeriod = "M15"
	PeriodM30 CandlePeriod = "M30"
	PeriodH1  CandlePeriod = "H1"
	PeriodH4  CandlePeriod = "H4"
	PeriodD1  CandlePeriod = "D1"
	PeriodD7  CandlePeriod = "D7"
	Period1M  CandlePeriod = "1M"
)

// PriceCandles is one immutable OHLCV snapshot for a pair.
type PriceCandles struct {
	Timestamp int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	Period    CandlePeriod
}

// Tickers is one immutable ticker snapshot, including the venue's quoted
// best bid/ask alongside the usual OHLCV fields.
type Tickers struct {
	Timestamp int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Volume    decimal.Decimal
}
