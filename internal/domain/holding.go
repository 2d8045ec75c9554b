package domain

// Holding is the derived net position of an account in a symbol.
// Negative quantity means net short.
type Holding struct {
	HoldingID string `json:"holding_id"` // sha256(account_id|symbol)
	AccountID string `json:"account_id"`
	Symbol    string `json:"symbol"`
	Quantity  int64  `json:"quantity"`
}

// Integrity fault reasons
const (
	FaultUnknownAccount   = "unknown_account"
	FaultUnknownSymbol    = "unknown_symbol"
	FaultUnknownTradeType = "unknown_trade_type"
	FaultDuplicateTradeID = "duplicate_trade_id"
	FaultInvalidQuantity  = "invalid_quantity"
)

// IntegrityFault reports a trade excluded from aggregation.
type IntegrityFault struct {
	TradeID   string `json:"trade_id"`
	AccountID string `json:"account_id"`
	Symbol    string `json:"symbol"`
	Reason    string `json:"reason"`
}
