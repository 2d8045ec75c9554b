package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderRunReport renders a run report as Markdown.
func RenderRunReport(r *RunReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Trade Generation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Seed: %d | Window: %s to %s\n\n",
		r.Seed, r.WindowStart.Format(time.RFC3339), r.WindowEnd.Format(time.RFC3339)))

	// Output Summary
	s := r.Summary
	sb.WriteString("## Output Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Legitimate Trades | %d |\n", s.LegitimateTrades))
	sb.WriteString(fmt.Sprintf("| Scenario Trades | %d |\n", s.ScenarioTrades))
	sb.WriteString(fmt.Sprintf("| Executed | %d |\n", s.ExecutedTrades))
	sb.WriteString(fmt.Sprintf("| Cancelled | %d |\n", s.CancelledTrades))
	sb.WriteString(fmt.Sprintf("| Executed Volume | %d |\n", s.ExecutedVolume))
	sb.WriteString(fmt.Sprintf("| Active Accounts | %d |\n", s.Accounts))
	sb.WriteString(fmt.Sprintf("| Symbols Traded | %d |\n", s.Symbols))
	sb.WriteString(fmt.Sprintf("| Holdings | %d |\n", s.Holdings))
	sb.WriteString(fmt.Sprintf("| Long / Short / Flat | %d / %d / %d |\n",
		s.LongPositions, s.ShortPositions, s.FlatPositions))
	sb.WriteString("\n")

	if len(s.ByScenarioType) > 0 {
		types := make([]string, 0, len(s.ByScenarioType))
		for t := range s.ByScenarioType {
			types = append(types, t)
		}
		sort.Strings(types)
		sb.WriteString("| Scenario Type | Trades |\n")
		sb.WriteString("|---------------|--------|\n")
		for _, t := range types {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", t, s.ByScenarioType[t]))
		}
		sb.WriteString("\n")
	}

	// Scenarios
	sb.WriteString("## Scenarios\n\n")
	if len(r.Scenarios) > 0 {
		sb.WriteString("| Scenario | Type | Symbol | Group | Participants | Start | End | Trades | Cancelled | Volume |\n")
		sb.WriteString("|----------|------|--------|-------|--------------|-------|-----|--------|-----------|--------|\n")
		for _, sc := range r.Scenarios {
			group := sc.GroupID
			if group == "" {
				group = "-"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %s | %s | %d | %d | %d |\n",
				sc.ScenarioID, sc.ScenarioType, sc.Symbol, group, len(sc.Participants),
				sc.Start.Format(time.RFC3339), sc.End.Format(time.RFC3339),
				sc.TradeCount, sc.CancelledCount, sc.ExecutedVolume))
		}
		sb.WriteString("\n")

		for _, sc := range r.Scenarios {
			if len(sc.Phases) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("### %s phases\n\n", sc.ScenarioID))
			for _, ph := range sc.Phases {
				sb.WriteString(fmt.Sprintf("- %s: %s to %s\n",
					ph.Phase, ph.Start.Format(time.RFC3339), ph.End.Format(time.RFC3339)))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No scenarios configured.\n\n")
	}

	// Warnings
	sb.WriteString("## Warnings\n\n")
	if len(r.Warnings) > 0 {
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
	} else {
		sb.WriteString("None.\n")
	}
	sb.WriteString("\n")

	// Integrity
	sb.WriteString("## Integrity Faults\n\n")
	if r.FaultCount == 0 {
		sb.WriteString("None. Holdings reconcile with every trade.\n\n")
		return sb.String()
	}
	for _, line := range r.FaultSummary {
		sb.WriteString(fmt.Sprintf("- %s\n", line))
	}
	sb.WriteString("\n")

	shown := r.Faults
	if len(shown) > r.MaxFaultsShown {
		shown = shown[:r.MaxFaultsShown]
	}
	if len(shown) > 0 {
		sb.WriteString("| Trade | Account | Symbol | Reason |\n")
		sb.WriteString("|-------|---------|--------|--------|\n")
		for _, f := range shown {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", f.TradeID, f.AccountID, f.Symbol, f.Reason))
		}
		if len(r.Faults) > len(shown) {
			sb.WriteString(fmt.Sprintf("\n%d more not shown.\n", len(r.Faults)-len(shown)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
