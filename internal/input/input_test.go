package input

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraud-trade-lab/internal/domain"
)

func TestReadAccounts_JSONL(t *testing.T) {
	data := `{"account_id":"ACC00001-ab12","first_name":"Ann","last_name":"Smith","state":"CA","zip_code":"90210","risk_profile":"Very High","total_portfolio_value":125000.5}

{"account_id":"ACC00002-cd34","last_name":"Jones","state":"NY","risk_profile":"Moderate","portfolio_value":"50000"}
`
	accounts, err := ReadAccounts(strings.NewReader(data), FormatJSONL)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, "ACC00001-ab12", accounts[0].AccountID)
	assert.Equal(t, domain.RiskVeryHigh, accounts[0].RiskProfile)
	assert.Equal(t, "CA", accounts[0].State)
	assert.Equal(t, "90210", accounts[0].ZipCode)
	assert.Equal(t, "Smith", accounts[0].LastName)
	assert.Equal(t, "125000.5", accounts[0].PortfolioValue.String())

	assert.Equal(t, domain.RiskMedium, accounts[1].RiskProfile)
	assert.Equal(t, "50000", accounts[1].PortfolioValue.String())
}

func TestReadAccounts_CSV(t *testing.T) {
	data := "Account_ID, risk_profile, state, last_name, portfolio_value\n" +
		"A1, Growth, TX, Brown, 1000\n" +
		"A2, conservative, , , 2000.25\n"
	accounts, err := ReadAccounts(strings.NewReader(data), FormatCSV)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, domain.RiskGrowth, accounts[0].RiskProfile)
	assert.Equal(t, "Brown", accounts[0].LastName)
	assert.Equal(t, "", accounts[1].State)
	assert.Equal(t, "2000.25", accounts[1].PortfolioValue.String())
}

func TestReadAccounts_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad json", "{not json}\n", "line 1"},
		{"unknown risk", `{"account_id":"A","risk_profile":"reckless","portfolio_value":1}`, "risk profile"},
		{"missing value", `{"account_id":"A","risk_profile":"Low"}`, "portfolio_value"},
		{"non-positive value", `{"account_id":"A","risk_profile":"Low","portfolio_value":0}`, "positive"},
		{"empty id", `{"risk_profile":"Low","portfolio_value":10}`, "account_id"},
		{
			"duplicate",
			`{"account_id":"A","risk_profile":"Low","portfolio_value":10}` + "\n" +
				`{"account_id":"A","risk_profile":"High","portfolio_value":20}`,
			"already defined on line 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAccounts(strings.NewReader(tt.data), FormatJSONL)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadInstruments(t *testing.T) {
	data := `{"symbol":"AAPL","asset_name":"Apple Inc.","instrument_type":"Stock","sector":"Technology","current_price":{"price":189.25,"last_updated":"2024-01-01T00:00:00Z"}}
{"symbol":"SPY","instrument_type":"ETF","baseline_price":"470.10"}
`
	catalog, err := ReadInstruments(strings.NewReader(data), FormatJSONL)
	require.NoError(t, err)
	require.Equal(t, 2, catalog.Len())

	aapl, ok := catalog.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, "189.25", aapl.BaselinePrice.String())
	assert.Equal(t, "Technology", aapl.Sector)
	assert.Equal(t, "SPY", catalog.At(1).Symbol)
}

func TestReadInstruments_Errors(t *testing.T) {
	for name, data := range map[string]string{
		"empty":           "",
		"missing price":   `{"symbol":"X"}`,
		"nested no price": `{"symbol":"X","current_price":{"last_updated":"now"}}`,
		"duplicate":       "symbol,price\nX,1\nX,2\n",
		"zero price":      "symbol,price\nX,0\n",
	} {
		t.Run(name, func(t *testing.T) {
			format := FormatJSONL
			if strings.HasPrefix(data, "symbol,") {
				format = FormatCSV
			}
			_, err := ReadInstruments(strings.NewReader(data), format)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration))
		})
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	accPath := filepath.Join(dir, "accounts.csv")
	instPath := filepath.Join(dir, "instruments.jsonl")
	require.NoError(t, os.WriteFile(accPath, []byte("account_id,risk_profile,portfolio_value\nA,High,10\n"), 0o644))
	require.NoError(t, os.WriteFile(instPath, []byte(`{"symbol":"GME","price":20}`+"\n"), 0o644))

	accounts, err := LoadAccounts(accPath)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	catalog, err := LoadInstruments(instPath)
	require.NoError(t, err)
	assert.True(t, catalog.Has("GME"))

	_, err = LoadAccounts(filepath.Join(dir, "accounts.xml"))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = LoadAccounts(filepath.Join(dir, "missing.jsonl"))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestReadTrades(t *testing.T) {
	data := `{"trade_id":"01J0","account_id":"A","symbol":"GME","trade_type":"buy","order_type":"market","order_status":"executed","quantity":10,"execution_price":"20.5","trade_cost":"205","execution_timestamp":"2025-06-01T10:00:00Z","scenario_type":"pump_and_dump","pump_scheme_id":"SCHEME-0a1b2c3d"}

{"trade_id":"01J1","account_id":"A","symbol":"GME","trade_type":"sell","order_type":"limit","order_status":"cancelled","quantity":5,"execution_price":null,"trade_cost":"0","execution_timestamp":"2025-06-01T11:00:00Z"}
`
	trades, err := ReadTrades(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.True(t, trades[0].Executed())
	assert.Equal(t, "20.5", trades[0].ExecutionPrice.Decimal.String())
	assert.Equal(t, "SCHEME-0a1b2c3d", trades[0].PumpSchemeID)
	assert.Equal(t, int64(10), trades[0].SignedQuantity())

	assert.False(t, trades[1].ExecutionPrice.Valid)
	assert.Equal(t, int64(0), trades[1].SignedQuantity())

	_, err = ReadTrades(strings.NewReader("{broken"))
	assert.Error(t, err)
}
