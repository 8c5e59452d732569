package exchange

import "time"

// ProcessingStatus mirrors the source's ProcessingStatus/MarketStatus enums
// (exchange_base.py), generalized to a single string-backed type.
type ProcessingStatus string

const (
	StatusInitializing  ProcessingStatus = "INITIALIZING"
	StatusProcessing    ProcessingStatus = "PROCESSING"
	StatusProcessed     ProcessingStatus = "PROCESSED"
	StatusProcessedErr  ProcessingStatus = "PROCESSED_ERROR"
)

// Status is the exchange loop's set of status variables, grounded on
// IExchange's MARKET_READY/FETCH_DATA_STATUS/STRATEGY_CALCULATION_STATUS/
// READY_FOR_STRATEGY/MAIN_PROCESS_STATUS/PROCESS_ACTION_STATUS fields.
// Written under the SpotExchange mutex by the loop's timer and fetch
// goroutines, by runInterval, and by Reconcile (which the supervisor also
// calls at shutdown); ReadyForStrategy has two writers, the timer clearing it
// and the fetch setting it. Read via Snapshot by the status server and tests.
type Status struct {
	MarketReady               bool
	FetchDataStatus           ProcessingStatus
	StrategyCalculationStatus ProcessingStatus
	ReadyForStrategy          bool
	MainProcessStatus         ProcessingStatus
	ProcessActionStatus       ProcessingStatus
	LoopCount                 int64
	LastIntervalAt            time.Time
}
