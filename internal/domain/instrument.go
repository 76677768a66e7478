package domain

import (
	"fmt"
	"strings"
)

// Instrument is a tradable base/quote currency pair, e.g. SOL/USDT.
type Instrument struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// ParseInstrument parses the canonical "BASE/QUOTE" form. Symbols are
// upper-cased; venue-specific formats (SOLUSDT, SOL-USDT) are normalized at
// the connector boundary, never here.
func ParseInstrument(s string) (Instrument, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return Instrument{}, fmt.Errorf("instrument %q: want BASE/QUOTE", s)
	}
	base := strings.ToUpper(strings.TrimSpace(parts[0]))
	quote := strings.ToUpper(strings.TrimSpace(parts[1]))
	if base == "" || quote == "" || base == quote {
		return Instrument{}, fmt.Errorf("instrument %q: base and quote must be distinct non-empty symbols", s)
	}
	return Instrument{Base: base, Quote: quote}, nil
}

// String returns the canonical "BASE/QUOTE" form.
func (i Instrument) String() string { return i.Base + "/" + i.Quote }

// IsZero reports whether the instrument is unset.
func (i Instrument) IsZero() bool { return i.Base == "" && i.Quote == "" }

// Contains reports whether the given currency is the base or quote symbol.
func (i Instrument) Contains(currency string) bool {
	return i.Base == currency || i.Quote == currency
}

// Other returns the counterpart symbol for the given currency. The currency
// must be one of the instrument's two symbols.
func (i Instrument) Other(currency string) string {
	if currency == i.Base {
		return i.Quote
	}
	return i.Base
}

// TriangularSet is an ordered triple of instruments forming a closed currency
// cycle, plus the currency the cycle starts and ends in. The structural
// constraints are checked once at configuration time by Validate; runtime
// code may assume a validated set.
type TriangularSet struct {
	Legs  [3]Instrument
	Start string
}

// Validate checks that the three legs share exactly three currencies, that
// Start is one of them, and that walking the legs in order converts Start
// back into Start.
func (t TriangularSet) Validate() error {
	currencies := make(map[string]struct{}, 6)
	for _, leg := range t.Legs {
		if leg.IsZero() {
			return fmt.Errorf("triangular set %s: empty leg", t)
		}
		currencies[leg.Base] = struct{}{}
		currencies[leg.Quote] = struct{}{}
	}
	if len(currencies) != 3 {
		return fmt.Errorf("triangular set %s: legs span %d currencies, want exactly 3", t, len(currencies))
	}
	if _, ok := currencies[t.Start]; !ok {
		return fmt.Errorf("triangular set %s: start currency %q not traded by any leg", t, t.Start)
	}
	cur := t.Start
	for _, leg := range t.Legs {
		if !leg.Contains(cur) {
			return fmt.Errorf("triangular set %s: leg %s cannot convert %s", t, leg, cur)
		}
		cur = leg.Other(cur)
	}
	if cur != t.Start {
		return fmt.Errorf("triangular set %s: cycle ends in %s, not %s", t, cur, t.Start)
	}
	return nil
}

// Contains reports whether the instrument is one of the set's legs.
func (t TriangularSet) Contains(inst Instrument) bool {
	return t.Legs[0] == inst || t.Legs[1] == inst || t.Legs[2] == inst
}

// String renders the set as "A/B,C/A,C/B(start X)".
func (t TriangularSet) String() string {
	return fmt.Sprintf("%s,%s,%s(start %s)", t.Legs[0], t.Legs[1], t.Legs[2], t.Start)
}
