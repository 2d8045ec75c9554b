package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TradeType is the direction of a trade.
type TradeType string

// Trade type constants
const (
	TradeBuy   TradeType = "buy"
	TradeSell  TradeType = "sell"
	TradeShort TradeType = "short"
	TradeCover TradeType = "cover"
)

// Valid reports whether t is a known trade type.
func (t TradeType) Valid() bool {
	switch t {
	case TradeBuy, TradeSell, TradeShort, TradeCover:
		return true
	}
	return false
}

// Sign returns +1 for position-increasing directions (buy, cover) and -1 for sell, short.
// Unknown types return 0.
func (t TradeType) Sign() int64 {
	switch t {
	case TradeBuy, TradeCover:
		return 1
	case TradeSell, TradeShort:
		return -1
	}
	return 0
}

// IsAskSide reports whether the trade lifts the ask (buy, cover).
func (t TradeType) IsAskSide() bool {
	return t == TradeBuy || t == TradeCover
}

// Offset returns the trade type that closes a position opened by t.
func (t TradeType) Offset() TradeType {
	switch t {
	case TradeBuy:
		return TradeSell
	case TradeSell:
		return TradeBuy
	case TradeShort:
		return TradeCover
	case TradeCover:
		return TradeShort
	}
	return t
}

// OrderType is the order kind placed by the account.
type OrderType string

// Order type constants
const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
	OrderStop   OrderType = "stop"
)

// OrderStatus is the execution outcome of an order.
type OrderStatus string

// Order status constants
const (
	StatusExecuted  OrderStatus = "executed"
	StatusCancelled OrderStatus = "cancelled"
)

// Trade is a single execution (or cancelled attempt). Immutable once emitted.
// Scenario fields are empty for legitimate trades.
type Trade struct {
	TradeID            string              `json:"trade_id"`
	AccountID          string              `json:"account_id"`
	Symbol             string              `json:"symbol"`
	TradeType          TradeType           `json:"trade_type"`
	OrderType          OrderType           `json:"order_type"`
	OrderStatus        OrderStatus         `json:"order_status"`
	Quantity           int64               `json:"quantity"`
	ExecutionPrice     decimal.NullDecimal `json:"execution_price"` // invalid when cancelled
	TradeCost          decimal.Decimal     `json:"trade_cost"`      // + buy/cover, - sell/short, 0 when cancelled
	ExecutionTimestamp time.Time           `json:"execution_timestamp"`

	// Scenario overlay
	ScenarioID          string     `json:"scenario_id,omitempty"`
	ScenarioType        string     `json:"scenario_type,omitempty"`
	ScenarioPhase       string     `json:"scenario_phase,omitempty"`
	ScenarioSymbol      string     `json:"scenario_symbol,omitempty"`
	WashRingID          string     `json:"wash_ring_id,omitempty"`
	PumpSchemeID        string     `json:"pump_scheme_id,omitempty"`
	CounterpartAccount  string     `json:"counterpart_account,omitempty"`
	CoordinationPattern string     `json:"coordination_pattern,omitempty"`
	AnnouncementTime    *time.Time `json:"announcement_time,omitempty"`
}

// Executed reports whether the trade filled.
func (t *Trade) Executed() bool {
	return t.OrderStatus == StatusExecuted
}

// SignedQuantity is the trade's contribution to the account's net position.
// Cancelled trades contribute nothing.
func (t *Trade) SignedQuantity() int64 {
	if !t.Executed() {
		return 0
	}
	return t.TradeType.Sign() * t.Quantity
}

// IsScenario reports whether the trade was produced by a fraud scenario.
func (t *Trade) IsScenario() bool {
	return t.ScenarioType != ""
}

// Price and cost precision.
const (
	PriceDecimals = 4
	CostDecimals  = 2
)

// NewExecutedTrade fills price and signed cost for an executed trade.
func NewExecutedTrade(id, account, symbol string, tt TradeType, ot OrderType, qty int64, price decimal.Decimal, ts time.Time) Trade {
	price = price.Round(PriceDecimals)
	cost := price.Mul(decimal.NewFromInt(qty * tt.Sign())).Round(CostDecimals)
	return Trade{
		TradeID:            id,
		AccountID:          account,
		Symbol:             symbol,
		TradeType:          tt,
		OrderType:          ot,
		OrderStatus:        StatusExecuted,
		Quantity:           qty,
		ExecutionPrice:     decimal.NewNullDecimal(price),
		TradeCost:          cost,
		ExecutionTimestamp: ts,
	}
}

// NewCancelledTrade builds a cancelled trade: no price, zero cost.
func NewCancelledTrade(id, account, symbol string, tt TradeType, ot OrderType, qty int64, ts time.Time) Trade {
	return Trade{
		TradeID:            id,
		AccountID:          account,
		Symbol:             symbol,
		TradeType:          tt,
		OrderType:          ot,
		OrderStatus:        StatusCancelled,
		Quantity:           qty,
		TradeCost:          decimal.Zero,
		ExecutionTimestamp: ts,
	}
}

// SortTrades orders trades by (execution_timestamp, trade_id).
func SortTrades(trades []Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].ExecutionTimestamp.Equal(trades[j].ExecutionTimestamp) {
			return trades[i].ExecutionTimestamp.Before(trades[j].ExecutionTimestamp)
		}
		return trades[i].TradeID < trades[j].TradeID
	})
}
