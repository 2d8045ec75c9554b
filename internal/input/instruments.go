package input

import (
	"fmt"
	"io"

	"fraud-trade-lab/internal/domain"
)

// LoadInstruments reads an instrument catalog from path.
func LoadInstruments(path string) (*domain.Catalog, error) {
	f, format, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	catalog, err := ReadInstruments(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// ReadInstruments parses instruments in the given format.
// The baseline price comes from baseline_price, price or current_price; the latter may be
// an object with a "price" member as found in asset detail exports.
func ReadInstruments(r io.Reader, format Format) (*domain.Catalog, error) {
	records, err := readRecords(r, format)
	if err != nil {
		return nil, err
	}

	instruments := make([]domain.Instrument, 0, len(records))
	for _, rec := range records {
		price, ok, err := rec.decimal("baseline_price", "price", "current_price")
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrConfiguration, rec.line, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: line %d: missing baseline_price", domain.ErrConfiguration, rec.line)
		}
		instruments = append(instruments, domain.Instrument{
			Symbol:         rec.str("symbol"),
			BaselinePrice:  price,
			Sector:         rec.str("sector"),
			InstrumentType: rec.str("instrument_type"),
		})
	}
	if len(instruments) == 0 {
		return nil, fmt.Errorf("%w: empty instrument catalog", domain.ErrConfiguration)
	}

	catalog, err := domain.NewCatalog(instruments)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return catalog, nil
}
