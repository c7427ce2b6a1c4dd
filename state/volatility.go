package state

import (
	"membranecore/native/basket"
	"membranecore/native/rates"
)

const nsVolatility = "volatility"

// storedVolatilityHistory is the RLP-safe wire shape of
// rates.VolatilityHistory (spec §3 "VOLATILITY: map denom → {list<price>,
// index}").
type storedVolatilityHistory struct {
	Prices []string
	Index  uint64
}

func toStoredVolatilityHistory(h *rates.VolatilityHistory) *storedVolatilityHistory {
	sh := &storedVolatilityHistory{Index: uint64(h.Index)}
	for _, p := range h.Prices {
		sh.Prices = append(sh.Prices, encodeDecimal(p))
	}
	return sh
}

func fromStoredVolatilityHistory(sh *storedVolatilityHistory) *rates.VolatilityHistory {
	h := &rates.VolatilityHistory{Index: int(sh.Index)}
	for _, p := range sh.Prices {
		h.Prices = append(h.Prices, decodeDecimal(p))
	}
	return h
}

// PutVolatility persists id's price-history ring buffer.
func (s *Store) PutVolatility(id basket.DenomID, h *rates.VolatilityHistory) error {
	return s.PutRLP(nsVolatility, toStoredVolatilityHistory(h), denomKey(id))
}

// GetVolatility loads id's price-history ring buffer, returning (nil, nil)
// if none has been recorded yet.
func (s *Store) GetVolatility(id basket.DenomID) (*rates.VolatilityHistory, error) {
	var sh storedVolatilityHistory
	ok, err := s.GetRLP(nsVolatility, &sh, denomKey(id))
	if err != nil || !ok {
		return nil, err
	}
	return fromStoredVolatilityHistory(&sh), nil
}
