package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RiskProfile is the account's declared risk appetite. It drives trade volume.
type RiskProfile string

// Risk profile constants, ordered from least to most aggressive.
const (
	RiskConservative RiskProfile = "Conservative"
	RiskLow          RiskProfile = "Low"
	RiskMedium       RiskProfile = "Medium"
	RiskGrowth       RiskProfile = "Growth"
	RiskHigh         RiskProfile = "High"
	RiskVeryHigh     RiskProfile = "VeryHigh"
)

// RiskProfiles lists every supported profile in ascending order of risk.
var RiskProfiles = []RiskProfile{
	RiskConservative,
	RiskLow,
	RiskMedium,
	RiskGrowth,
	RiskHigh,
	RiskVeryHigh,
}

// riskAliases maps spellings found in upstream account exports.
var riskAliases = map[string]RiskProfile{
	"conservative":      RiskConservative,
	"very low":          RiskConservative,
	"very_low":          RiskConservative,
	"verylow":           RiskConservative,
	"low":               RiskLow,
	"medium":            RiskMedium,
	"moderate":          RiskMedium,
	"balanced":          RiskMedium,
	"growth":            RiskGrowth,
	"high":              RiskHigh,
	"aggressive growth": RiskHigh,
	"very high":         RiskVeryHigh,
	"very_high":         RiskVeryHigh,
	"veryhigh":          RiskVeryHigh,
}

// ParseRiskProfile normalizes a risk profile name.
func ParseRiskProfile(s string) (RiskProfile, error) {
	p, ok := riskAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown risk profile %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the six supported profiles.
func (p RiskProfile) Valid() bool {
	for _, rp := range RiskProfiles {
		if rp == p {
			return true
		}
	}
	return false
}

// Rank returns the 1-based position of p in RiskProfiles, 0 if unknown.
func (p RiskProfile) Rank() int {
	for i, rp := range RiskProfiles {
		if rp == p {
			return i + 1
		}
	}
	return 0
}

// Account is an externally supplied customer account. Read-only for the engine.
type Account struct {
	AccountID      string          `json:"account_id"`
	RiskProfile    RiskProfile     `json:"risk_profile"`
	State          string          `json:"state,omitempty"`    // geography: US state code
	ZipCode        string          `json:"zip_code,omitempty"` // geography: postal code
	LastName       string          `json:"last_name,omitempty"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}

// Validate checks the fields every generator relies on.
func (a *Account) Validate() error {
	if a.AccountID == "" {
		return fmt.Errorf("account: empty account_id")
	}
	if !a.RiskProfile.Valid() {
		return fmt.Errorf("account %s: invalid risk profile %q", a.AccountID, a.RiskProfile)
	}
	if !a.PortfolioValue.IsPositive() {
		return fmt.Errorf("account %s: portfolio_value must be positive", a.AccountID)
	}
	return nil
}
