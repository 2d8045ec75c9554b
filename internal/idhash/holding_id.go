package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ComputeHoldingID computes a deterministic holding_id using SHA256.
// Formula: SHA256(account_id|symbol)
// Returns hex-encoded hash (64 characters).
func ComputeHoldingID(accountID, symbol string) string {
	data := fmt.Sprintf("%s|%s", accountID, symbol)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRingID derives a wash_ring_id from the scenario and its members.
// Member order does not matter.
// Format: RING-<first 8 hex chars of SHA256(scenario_id|sorted members)>
func ComputeRingID(scenarioID string, members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)

	data := fmt.Sprintf("%s|%s", scenarioID, strings.Join(sorted, ","))

	hash := sha256.Sum256([]byte(data))
	return "RING-" + strings.ToUpper(hex.EncodeToString(hash[:4]))
}
