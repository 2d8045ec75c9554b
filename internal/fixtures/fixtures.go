// Package fixtures provides a deterministic demo population, catalog and scenario set
// so the engine can run without external inputs.
package fixtures

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"fraud-trade-lab/internal/config"
	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/idhash"
	"fraud-trade-lab/internal/scenario"
)

var states = []string{
	"CA", "NY", "TX", "FL", "IL", "PA", "OH", "GA", "NC", "MI",
	"NJ", "VA", "WA", "AZ", "MA", "CO", "MN", "OR", "NV", "UT",
}

// A small name pool so "similar names" rings can form in modest populations.
var lastNames = []string{
	"Smith", "Smithers", "Johnson", "Johnston", "Williams", "Brown", "Browning", "Jones",
	"Garcia", "Garner", "Miller", "Millard", "Davis", "Martinez", "Martin", "Anderson",
	"Andrews", "Taylor", "Thomas", "Thompson", "Moore", "Jackson", "White", "Whitfield",
	"Harris", "Harrison", "Clark", "Clarkson", "Lewis", "Robinson",
}

// Risk profile mix: heavier on the middle of the range.
var profileWeights = []float64{0.15, 0.15, 0.25, 0.20, 0.15, 0.10}

// Accounts returns n accounts with sequential ids ACC00001..ACCnnnnn.
// The same (n, seed) always yields the same population.
func Accounts(n int, seed uint64) []domain.Account {
	rng := idhash.NewStream(seed, "fixtures|accounts")
	accounts := make([]domain.Account, n)
	for i := range accounts {
		state := states[rng.IntN(len(states))]
		// Log-uniform over 10k..2M.
		value := math.Exp(math.Log(10_000) + rng.Float64()*(math.Log(2_000_000)-math.Log(10_000)))
		accounts[i] = domain.Account{
			AccountID:      fmt.Sprintf("ACC%05d", i+1),
			RiskProfile:    pickProfile(rng.Float64()),
			State:          state,
			ZipCode:        fmt.Sprintf("%05d", 10_000+rng.IntN(89_999)),
			LastName:       lastNames[rng.IntN(len(lastNames))],
			PortfolioValue: decimal.NewFromFloat(value).Round(2),
		}
	}
	return accounts
}

func pickProfile(u float64) domain.RiskProfile {
	for i, w := range profileWeights {
		if u < w {
			return domain.RiskProfiles[i]
		}
		u -= w
	}
	return domain.RiskProfiles[len(domain.RiskProfiles)-1]
}

// Instruments returns the demo instrument list.
func Instruments() []domain.Instrument {
	return []domain.Instrument{
		stock("AAPL", "189.25", "Technology"),
		stock("MSFT", "415.50", "Technology"),
		stock("NVDA", "122.40", "Technology"),
		stock("GOOGL", "172.10", "Communication Services"),
		stock("META", "505.75", "Communication Services"),
		stock("AMZN", "185.00", "Consumer Discretionary"),
		stock("TSLA", "248.30", "Consumer Discretionary"),
		stock("JPM", "198.60", "Financials"),
		stock("XOM", "112.80", "Energy"),
		stock("JNJ", "152.40", "Healthcare"),
		stock("PFE", "28.90", "Healthcare"),
		stock("KO", "62.15", "Consumer Staples"),
		stock("GME", "23.40", "Consumer Discretionary"),
		stock("AMC", "4.85", "Communication Services"),
		stock("BB", "2.75", "Technology"),
		etf("SPY", "545.20"),
		etf("QQQ", "470.10"),
	}
}

// Catalog returns the demo instruments as a catalog.
func Catalog() *domain.Catalog {
	catalog, err := domain.NewCatalog(Instruments())
	if err != nil {
		// Static data.
		panic(err)
	}
	return catalog
}

func stock(symbol, price, sector string) domain.Instrument {
	return domain.Instrument{
		Symbol:         symbol,
		BaselinePrice:  decimal.RequireFromString(price),
		Sector:         sector,
		InstrumentType: "Stock",
	}
}

func etf(symbol, price string) domain.Instrument {
	return domain.Instrument{
		Symbol:         symbol,
		BaselinePrice:  decimal.RequireFromString(price),
		Sector:         "Diversified",
		InstrumentType: "ETF",
	}
}

// Scenarios places one scenario of each kind inside [start, end):
// an insider run on NVDA a third of the way in, a wash ring on TSLA at the midpoint,
// and a pump-and-dump on GME two weeks before the end (or at start for short windows).
func Scenarios(start, end time.Time) config.ScenariosConfig {
	span := end.Sub(start)

	announcement := start.Add(span / 3).Truncate(time.Hour)
	if announcement.Sub(start) < 48*time.Hour {
		announcement = start.Add(48 * time.Hour)
	}

	pumpStart := end.Add(-14 * 24 * time.Hour)
	if pumpStart.Before(start) {
		pumpStart = start
	}

	return config.ScenariosConfig{
		Insider: []scenario.InsiderParams{{
			Symbol:           "NVDA",
			AnnouncementTime: announcement,
			Sentiment:        scenario.SentimentPositive,
		}},
		Wash: []scenario.WashParams{
			scenario.DefaultWashParams("TSLA", start.Add(span/2).Truncate(time.Hour)),
		},
		PumpDump: []scenario.PumpDumpParams{
			scenario.DefaultPumpDumpParams("GME", pumpStart.Truncate(time.Hour)),
		},
	}
}
