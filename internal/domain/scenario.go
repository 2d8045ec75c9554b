package domain

import "time"

// Scenario type constants
const (
	ScenarioInsiderTrading = "insider_trading"
	ScenarioWashTrading    = "wash_trading"
	ScenarioPumpAndDump    = "pump_and_dump"
)

// Scenario phase constants
const (
	PhaseAccumulation    = "accumulation"
	PhaseAcceleration    = "acceleration"
	PhaseFinalPush       = "final_push"
	PhaseProfitTaking    = "profit_taking"
	PhaseCircularTrading = "circular_trading"
	PhasePump            = "pump"
	PhaseDump            = "dump"
)

// Coordination pattern constants
const (
	CoordinationTight = "tight"
	CoordinationLoose = "loose"
	CoordinationMixed = "mixed"
)

// PhaseWindow is the wall-clock span assigned to one scenario phase.
type PhaseWindow struct {
	Phase string    `json:"phase"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DriftPoint records the drift multiplier applied at a point in time.
type DriftPoint struct {
	Time       time.Time `json:"time"`
	Multiplier float64   `json:"multiplier"`
	Label      string    `json:"label,omitempty"`
}

// ScenarioSummary describes one fraud scenario run for downstream investigation.
type ScenarioSummary struct {
	ScenarioID     string        `json:"scenario_id"`
	ScenarioType   string        `json:"scenario_type"`
	Symbol         string        `json:"symbol"`
	Participants   []string      `json:"participants"`
	GroupID        string        `json:"group_id,omitempty"` // wash_ring_id or pump_scheme_id
	Coordination   string        `json:"coordination,omitempty"`
	Relationship   string        `json:"relationship,omitempty"`
	Sentiment      string        `json:"sentiment,omitempty"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	Phases         []PhaseWindow `json:"phases,omitempty"`
	Drift          []DriftPoint  `json:"drift,omitempty"`
	BaselineVolume int64         `json:"baseline_volume,omitempty"`
	StartPrice     float64       `json:"start_price,omitempty"`
	TradeCount     int           `json:"trade_count"`
	CancelledCount int           `json:"cancelled_count"`
	ExecutedVolume int64         `json:"executed_volume"`
	Warnings       []string      `json:"warnings,omitempty"`
}

// Tally fills trade counters from the scenario's trades.
func (s *ScenarioSummary) Tally(trades []Trade) {
	s.TradeCount = len(trades)
	s.CancelledCount = 0
	s.ExecutedVolume = 0
	for i := range trades {
		if trades[i].Executed() {
			s.ExecutedVolume += trades[i].Quantity
		} else {
			s.CancelledCount++
		}
	}
}
