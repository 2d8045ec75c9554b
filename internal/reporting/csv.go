package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"fraud-trade-lab/internal/domain"
)

var scenarioCSVHeader = []string{
	"scenario_id", "scenario_type", "symbol", "group_id", "coordination", "relationship",
	"sentiment", "start", "end", "participant_count", "participants",
	"trade_count", "cancelled_count", "executed_volume", "baseline_volume", "warnings",
}

// RenderScenarioCSV renders one row per scenario. Participants and warnings are
// joined with ';'.
func RenderScenarioCSV(scenarios []domain.ScenarioSummary) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// strings.Builder writes never fail.
	_ = w.Write(scenarioCSVHeader)
	for _, s := range scenarios {
		_ = w.Write([]string{
			s.ScenarioID,
			s.ScenarioType,
			s.Symbol,
			s.GroupID,
			s.Coordination,
			s.Relationship,
			s.Sentiment,
			s.Start.UTC().Format(time.RFC3339),
			s.End.UTC().Format(time.RFC3339),
			strconv.Itoa(len(s.Participants)),
			strings.Join(s.Participants, ";"),
			strconv.Itoa(s.TradeCount),
			strconv.Itoa(s.CancelledCount),
			strconv.FormatInt(s.ExecutedVolume, 10),
			strconv.FormatInt(s.BaselineVolume, 10),
			strings.Join(s.Warnings, ";"),
		})
	}
	w.Flush()

	return sb.String()
}
