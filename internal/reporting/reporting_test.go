package reporting

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/holdings"
)

var (
	testNow   = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	testStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC)
)

func testInput() Input {
	price := decimal.RequireFromString("10")
	ts := testStart.Add(time.Hour)

	wash := domain.NewExecutedTrade("t3", "ACC2", "TSLA", domain.TradeSell, domain.OrderLimit, 100, price, ts)
	wash.ScenarioType = domain.ScenarioWashTrading
	wash.ScenarioID = "sc-wash"

	trades := []domain.Trade{
		domain.NewExecutedTrade("t1", "ACC1", "AAPL", domain.TradeBuy, domain.OrderMarket, 50, price, ts),
		domain.NewCancelledTrade("t2", "ACC1", "AAPL", domain.TradeSell, domain.OrderLimit, 20, ts),
		wash,
	}

	return Input{
		Seed:        42,
		WindowStart: testStart,
		WindowEnd:   testEnd,
		Trades:      trades,
		Aggregate: holdings.Result{
			Holdings: []domain.Holding{
				{AccountID: "ACC1", Symbol: "AAPL", Quantity: 50},
				{AccountID: "ACC2", Symbol: "TSLA", Quantity: -100},
				{AccountID: "ACC3", Symbol: "GME", Quantity: 0},
			},
			Faults: []domain.IntegrityFault{
				{TradeID: "bad1", AccountID: "ACC9", Symbol: "AAPL", Reason: domain.FaultUnknownAccount},
				{TradeID: "bad2", AccountID: "ACC9", Symbol: "AAPL", Reason: domain.FaultUnknownAccount},
			},
		},
		Scenarios: []domain.ScenarioSummary{
			{
				ScenarioID: "sc-wash", ScenarioType: domain.ScenarioWashTrading, Symbol: "TSLA",
				GroupID: "RING-0A1B2C3D", Participants: []string{"ACC2", "ACC4"},
				Start: testStart.Add(48 * time.Hour), End: testStart.Add(50 * time.Hour),
				TradeCount: 1, ExecutedVolume: 100,
				Warnings: []string{"ring smaller than requested"},
			},
			{
				ScenarioID: "sc-ins", ScenarioType: domain.ScenarioInsiderTrading, Symbol: "NVDA",
				Participants: []string{"ACC5"}, Sentiment: "positive",
				Start: testStart.Add(24 * time.Hour), End: testStart.Add(30 * time.Hour),
				Phases: []domain.PhaseWindow{
					{Phase: domain.PhaseAccumulation, Start: testStart.Add(24 * time.Hour), End: testStart.Add(28 * time.Hour)},
				},
			},
		},
		Warnings: []string{"insider sc-ins: only 1 eligible account"},
	}
}

func TestBuild(t *testing.T) {
	r := NewBuilder().WithClock(func() time.Time { return testNow }).Build(testInput())

	if !r.GeneratedAt.Equal(testNow) {
		t.Errorf("GeneratedAt = %v, want %v", r.GeneratedAt, testNow)
	}

	s := r.Summary
	if s.TotalTrades != 3 || s.LegitimateTrades != 2 || s.ScenarioTrades != 1 {
		t.Errorf("trade counts = %d/%d/%d, want 3/2/1", s.TotalTrades, s.LegitimateTrades, s.ScenarioTrades)
	}
	if s.ExecutedTrades != 2 || s.CancelledTrades != 1 || s.ExecutedVolume != 150 {
		t.Errorf("executed = %d cancelled = %d volume = %d", s.ExecutedTrades, s.CancelledTrades, s.ExecutedVolume)
	}
	if s.Accounts != 2 || s.Symbols != 2 {
		t.Errorf("accounts = %d symbols = %d, want 2/2", s.Accounts, s.Symbols)
	}
	if s.LongPositions != 1 || s.ShortPositions != 1 || s.FlatPositions != 1 {
		t.Errorf("positions = %d/%d/%d, want 1/1/1", s.LongPositions, s.ShortPositions, s.FlatPositions)
	}
	if s.ByScenarioType[domain.ScenarioWashTrading] != 1 {
		t.Errorf("ByScenarioType = %v", s.ByScenarioType)
	}

	// Scenarios sorted by start
	if r.Scenarios[0].ScenarioID != "sc-ins" || r.Scenarios[1].ScenarioID != "sc-wash" {
		t.Errorf("scenario order = %s, %s", r.Scenarios[0].ScenarioID, r.Scenarios[1].ScenarioID)
	}

	if r.FaultCount != 2 || len(r.FaultSummary) != 1 {
		t.Fatalf("faults = %d summary = %v", r.FaultCount, r.FaultSummary)
	}
	if r.FaultSummary[0] != "unknown_account: 2 trade(s) excluded" {
		t.Errorf("FaultSummary[0] = %q", r.FaultSummary[0])
	}
}

func TestRenderRunReport(t *testing.T) {
	r := NewBuilder().WithClock(func() time.Time { return testNow }).WithMaxFaultsShown(1).Build(testInput())
	md := RenderRunReport(r)

	for _, want := range []string{
		"# Trade Generation Report",
		"Generated: 2025-09-01T12:00:00Z",
		"Seed: 42",
		"| Total Trades | 3 |",
		"| Long / Short / Flat | 1 / 1 / 1 |",
		"| wash_trading | 1 |",
		"| sc-wash | wash_trading | TSLA | RING-0A1B2C3D | 2 |",
		"| sc-ins | insider_trading | NVDA | - | 1 |",
		"### sc-ins phases",
		"- insider sc-ins: only 1 eligible account",
		"- unknown_account: 2 trade(s) excluded",
		"| bad1 | ACC9 | AAPL | unknown_account |",
		"1 more not shown.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(md, "| bad2 |") {
		t.Error("fault listing should be capped at 1")
	}
}

func TestRenderRunReport_Empty(t *testing.T) {
	r := NewBuilder().Build(Input{WindowStart: testStart, WindowEnd: testEnd})
	md := RenderRunReport(r)

	for _, want := range []string{
		"No scenarios configured.",
		"## Warnings\n\nNone.",
		"None. Holdings reconcile with every trade.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderScenarioCSV(t *testing.T) {
	out := RenderScenarioCSV(testInput().Scenarios)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "scenario_id" || len(rows[0]) != len(rows[1]) {
		t.Errorf("header = %v", rows[0])
	}

	wash := rows[1]
	if wash[0] != "sc-wash" || wash[3] != "RING-0A1B2C3D" {
		t.Errorf("wash row = %v", wash)
	}
	if wash[9] != "2" || wash[10] != "ACC2;ACC4" {
		t.Errorf("participants = %s %s", wash[9], wash[10])
	}
	if wash[15] != "ring smaller than requested" {
		t.Errorf("warnings = %q", wash[15])
	}
	if rows[2][6] != "positive" {
		t.Errorf("sentiment = %q", rows[2][6])
	}
}
