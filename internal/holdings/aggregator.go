package holdings

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/idhash"
	"fraud-trade-lab/internal/storage"
)

// ErrHoldingsMismatch is returned by Verify when holdings disagree with the trade stream.
var ErrHoldingsMismatch = errors.New("holdings do not match trade stream")

// Result is the output of one aggregation pass.
type Result struct {
	Holdings []domain.Holding       // ordered by (account_id, symbol)
	Faults   []domain.IntegrityFault // ordered by (trade_id, reason)

	TradesSeen      int
	TradesApplied   int // executed trades folded into a holding
	TradesCancelled int
}

// Aggregator folds a trade stream into net positions.
// An empty account set or nil catalog disables the corresponding membership check.
type Aggregator struct {
	accounts map[string]struct{}
	catalog  *domain.Catalog
}

// NewAggregator creates a holdings aggregator for a population and catalog.
func NewAggregator(accounts []domain.Account, catalog *domain.Catalog) *Aggregator {
	known := make(map[string]struct{}, len(accounts))
	for _, acc := range accounts {
		known[acc.AccountID] = struct{}{}
	}
	return &Aggregator{accounts: known, catalog: catalog}
}

type pairKey struct {
	account string
	symbol  string
}

// Aggregate computes one holding per (account_id, symbol) with at least one executed trade.
// The result does not depend on input order. Zero positions are kept.
func (a *Aggregator) Aggregate(trades []domain.Trade) Result {
	res := Result{TradesSeen: len(trades)}

	// Exact resubmissions of a trade count once; conflicting copies are all dropped.
	byID := make(map[string][]int, len(trades))
	for i := range trades {
		byID[trades[i].TradeID] = append(byID[trades[i].TradeID], i)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	net := make(map[pairKey]int64)
	for _, id := range ids {
		idx := byID[id]
		t := &trades[idx[0]]

		if len(idx) > 1 {
			identical := true
			for _, j := range idx[1:] {
				if !sameTrade(t, &trades[j]) {
					identical = false
					break
				}
			}
			dropped := idx[1:]
			if !identical {
				dropped = idx
			}
			for _, j := range dropped {
				res.Faults = append(res.Faults, fault(&trades[j], domain.FaultDuplicateTradeID))
			}
			if !identical {
				continue
			}
		}

		if reason := a.check(t); reason != "" {
			res.Faults = append(res.Faults, fault(t, reason))
			continue
		}

		if !t.Executed() {
			res.TradesCancelled++
			continue
		}

		net[pairKey{t.AccountID, t.Symbol}] += t.SignedQuantity()
		res.TradesApplied++
	}

	res.Holdings = make([]domain.Holding, 0, len(net))
	for k, qty := range net {
		res.Holdings = append(res.Holdings, domain.Holding{
			HoldingID: idhash.ComputeHoldingID(k.account, k.symbol),
			AccountID: k.account,
			Symbol:    k.symbol,
			Quantity:  qty,
		})
	}
	sort.Slice(res.Holdings, func(i, j int) bool {
		if res.Holdings[i].AccountID != res.Holdings[j].AccountID {
			return res.Holdings[i].AccountID < res.Holdings[j].AccountID
		}
		return res.Holdings[i].Symbol < res.Holdings[j].Symbol
	})
	sortFaults(res.Faults)

	return res
}

// check returns the fault reason for a trade, or "" if it can be applied.
func (a *Aggregator) check(t *domain.Trade) string {
	if len(a.accounts) > 0 {
		if _, ok := a.accounts[t.AccountID]; !ok {
			return domain.FaultUnknownAccount
		}
	}
	if a.catalog != nil && !a.catalog.Has(t.Symbol) {
		return domain.FaultUnknownSymbol
	}
	if !t.TradeType.Valid() {
		return domain.FaultUnknownTradeType
	}
	if t.Executed() && t.Quantity <= 0 {
		return domain.FaultInvalidQuantity
	}
	return ""
}

// Verify recomputes holdings from trades and compares them with the given set.
func (a *Aggregator) Verify(trades []domain.Trade, holdings []domain.Holding) error {
	want := a.Aggregate(trades).Holdings

	got := make(map[string]domain.Holding, len(holdings))
	for _, h := range holdings {
		if _, dup := got[h.HoldingID]; dup {
			return fmt.Errorf("%w: duplicate holding %s", ErrHoldingsMismatch, h.HoldingID)
		}
		got[h.HoldingID] = h
	}

	if len(got) != len(want) {
		return fmt.Errorf("%w: %d holdings, expected %d", ErrHoldingsMismatch, len(got), len(want))
	}
	for _, w := range want {
		h, ok := got[w.HoldingID]
		if !ok {
			return fmt.Errorf("%w: missing holding %s/%s", ErrHoldingsMismatch, w.AccountID, w.Symbol)
		}
		if h.AccountID != w.AccountID || h.Symbol != w.Symbol || h.Quantity != w.Quantity {
			return fmt.Errorf("%w: %s/%s has quantity %d, expected %d",
				ErrHoldingsMismatch, w.AccountID, w.Symbol, h.Quantity, w.Quantity)
		}
	}
	return nil
}

// AggregateStore recomputes holdings from every trade in a store.
func (a *Aggregator) AggregateStore(ctx context.Context, store storage.TradeLister) (Result, error) {
	ptrs, err := store.GetAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load trades: %w", err)
	}

	trades := make([]domain.Trade, len(ptrs))
	for i, t := range ptrs {
		trades[i] = *t
	}
	return a.Aggregate(trades), nil
}

// FaultSummaries returns one line per fault reason, sorted for deterministic output.
func FaultSummaries(faults []domain.IntegrityFault) []string {
	if len(faults) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, f := range faults {
		counts[f.Reason]++
	}

	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	lines := make([]string, len(reasons))
	for i, r := range reasons {
		lines[i] = fmt.Sprintf("%s: %d trade(s) excluded", r, counts[r])
	}
	return lines
}

func fault(t *domain.Trade, reason string) domain.IntegrityFault {
	return domain.IntegrityFault{
		TradeID:   t.TradeID,
		AccountID: t.AccountID,
		Symbol:    t.Symbol,
		Reason:    reason,
	}
}

func sortFaults(faults []domain.IntegrityFault) {
	sort.Slice(faults, func(i, j int) bool {
		a, b := faults[i], faults[j]
		if a.TradeID != b.TradeID {
			return a.TradeID < b.TradeID
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.Symbol < b.Symbol
	})
}

// sameTrade compares the fields that affect positions.
func sameTrade(a, b *domain.Trade) bool {
	return a.AccountID == b.AccountID &&
		a.Symbol == b.Symbol &&
		a.TradeType == b.TradeType &&
		a.OrderStatus == b.OrderStatus &&
		a.Quantity == b.Quantity &&
		a.ExecutionTimestamp.Equal(b.ExecutionTimestamp)
}
