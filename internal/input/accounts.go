package input

import (
	"fmt"
	"io"

	"fraud-trade-lab/internal/domain"
)

// LoadAccounts reads an account population from path.
func LoadAccounts(path string) ([]domain.Account, error) {
	f, format, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	accounts, err := ReadAccounts(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return accounts, nil
}

// ReadAccounts parses accounts in the given format.
// Accepted columns: account_id, risk_profile, state, zip_code, last_name and
// portfolio_value (or total_portfolio_value). Duplicate account ids are rejected.
func ReadAccounts(r io.Reader, format Format) ([]domain.Account, error) {
	records, err := readRecords(r, format)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(records))
	seen := make(map[string]int, len(records))
	for _, rec := range records {
		acc, err := parseAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrConfiguration, rec.line, err)
		}
		if prev, dup := seen[acc.AccountID]; dup {
			return nil, fmt.Errorf("%w: line %d: account %s already defined on line %d",
				domain.ErrConfiguration, rec.line, acc.AccountID, prev)
		}
		seen[acc.AccountID] = rec.line
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func parseAccount(rec record) (domain.Account, error) {
	risk, err := domain.ParseRiskProfile(rec.str("risk_profile"))
	if err != nil {
		return domain.Account{}, err
	}
	value, ok, err := rec.decimal("portfolio_value", "total_portfolio_value")
	if err != nil {
		return domain.Account{}, err
	}
	if !ok {
		return domain.Account{}, fmt.Errorf("missing portfolio_value")
	}

	acc := domain.Account{
		AccountID:      rec.str("account_id"),
		RiskProfile:    risk,
		State:          rec.str("state"),
		ZipCode:        rec.str("zip_code"),
		LastName:       rec.str("last_name"),
		PortfolioValue: value,
	}
	if err := acc.Validate(); err != nil {
		return domain.Account{}, err
	}
	return acc, nil
}
