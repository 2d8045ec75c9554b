package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Instrument is a catalog entry. Read-only for the engine.
type Instrument struct {
	Symbol         string          `json:"symbol"`
	BaselinePrice  decimal.Decimal `json:"baseline_price"`
	Sector         string          `json:"sector,omitempty"`
	InstrumentType string          `json:"instrument_type,omitempty"` // Stock | ETF | Bond ...
}

// Validate checks symbol and price.
func (i *Instrument) Validate() error {
	if i.Symbol == "" {
		return fmt.Errorf("instrument: empty symbol")
	}
	if !i.BaselinePrice.IsPositive() {
		return fmt.Errorf("instrument %s: baseline_price must be positive", i.Symbol)
	}
	return nil
}

// Catalog indexes instruments by symbol while preserving input order.
type Catalog struct {
	instruments []Instrument
	bySymbol    map[string]int
}

// NewCatalog builds a catalog. Later duplicates of a symbol are rejected.
func NewCatalog(instruments []Instrument) (*Catalog, error) {
	c := &Catalog{
		instruments: make([]Instrument, 0, len(instruments)),
		bySymbol:    make(map[string]int, len(instruments)),
	}
	for _, inst := range instruments {
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.bySymbol[inst.Symbol]; dup {
			return nil, fmt.Errorf("instrument %s: duplicate symbol", inst.Symbol)
		}
		c.bySymbol[inst.Symbol] = len(c.instruments)
		c.instruments = append(c.instruments, inst)
	}
	return c, nil
}

// Len returns the number of instruments.
func (c *Catalog) Len() int { return len(c.instruments) }

// At returns the i-th instrument in input order.
func (c *Catalog) At(i int) Instrument { return c.instruments[i] }

// Get returns the instrument for symbol.
func (c *Catalog) Get(symbol string) (Instrument, bool) {
	i, ok := c.bySymbol[symbol]
	if !ok {
		return Instrument{}, false
	}
	return c.instruments[i], true
}

// Has reports whether symbol is in the catalog.
func (c *Catalog) Has(symbol string) bool {
	_, ok := c.bySymbol[symbol]
	return ok
}

// Instruments returns a copy of all instruments in input order.
func (c *Catalog) Instruments() []Instrument {
	out := make([]Instrument, len(c.instruments))
	copy(out, c.instruments)
	return out
}
