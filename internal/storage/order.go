package storage

import (
	"sort"

	"fraud-trade-lab/internal/domain"
)

// SortTradePtrs orders trades by (execution_timestamp, trade_id).
func SortTradePtrs(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if !a.ExecutionTimestamp.Equal(b.ExecutionTimestamp) {
			return a.ExecutionTimestamp.Before(b.ExecutionTimestamp)
		}
		return a.TradeID < b.TradeID
	})
}

// SortHoldingPtrs orders holdings by (account_id, symbol).
func SortHoldingPtrs(holdings []*domain.Holding) {
	sort.Slice(holdings, func(i, j int) bool {
		a, b := holdings[i], holdings[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.Symbol < b.Symbol
	})
}
