package state

import (
	"membranecore/crypto"
	"membranecore/native/basket"
	"membranecore/native/positions"
)

const (
	nsPosition      = "position"
	nsPositionSeq   = "position_seq"
	nsOwnerIndex    = "position_owner_index"
)

type storedCollateralHolding struct {
	DenomID           uint32
	Amount            []byte
	RateIndexSnapshot string
}

type storedPosition struct {
	ID                      uint64
	OwnerPrefix             string
	OwnerAddress            []byte
	Collateral              []storedCollateralHolding
	CreditAmount            []byte
	Redeemable              bool
	Premium                 uint32
	MaxLoanRepayment        string
	RestrictedCollateralIDs []uint32
}

func toStoredPosition(p *positions.Position) *storedPosition {
	prefix, raw := encodeAddress(p.Owner)
	sp := &storedPosition{
		ID:               p.ID,
		OwnerPrefix:      prefix,
		OwnerAddress:     raw,
		CreditAmount:     encodeBigInt(p.CreditAmount),
		Redeemable:       p.Redeemable,
		Premium:          p.Premium,
		MaxLoanRepayment: encodeDecimal(p.MaxLoanRepayment),
	}
	for _, c := range p.Collateral {
		sp.Collateral = append(sp.Collateral, storedCollateralHolding{
			DenomID:           uint32(c.DenomID),
			Amount:            encodeBigInt(c.Amount),
			RateIndexSnapshot: encodeDecimal(c.RateIndexSnapshot),
		})
	}
	for _, r := range p.RestrictedCollateralIDs {
		sp.RestrictedCollateralIDs = append(sp.RestrictedCollateralIDs, uint32(r))
	}
	return sp
}

func fromStoredPosition(sp *storedPosition) *positions.Position {
	p := &positions.Position{
		ID:               sp.ID,
		Owner:            decodeAddress(sp.OwnerPrefix, sp.OwnerAddress),
		CreditAmount:     decodeBigInt(sp.CreditAmount),
		Redeemable:       sp.Redeemable,
		Premium:          sp.Premium,
		MaxLoanRepayment: decodeDecimal(sp.MaxLoanRepayment),
	}
	for _, c := range sp.Collateral {
		p.Collateral = append(p.Collateral, positions.CollateralHolding{
			DenomID:           basket.DenomID(c.DenomID),
			Amount:            decodeBigInt(c.Amount),
			RateIndexSnapshot: decodeDecimal(c.RateIndexSnapshot),
		})
	}
	for _, r := range sp.RestrictedCollateralIDs {
		p.RestrictedCollateralIDs = append(p.RestrictedCollateralIDs, basket.DenomID(r))
	}
	return p
}

// NextPositionID allocates and persists the next monotonic Position ID.
func (s *Store) NextPositionID() (uint64, error) {
	var seq uint64
	ok, err := s.GetRLP(nsPositionSeq, &seq)
	if err != nil {
		return 0, err
	}
	if !ok {
		seq = 0
	}
	seq++
	if err := s.PutRLP(nsPositionSeq, &seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// PutPosition persists p and keeps the owner index in sync. index add/remove
// is append-only plus linear scan, the same tradeoff the host's
// AccountPosition map made for a bounded number of collateral assets per
// account.
func (s *Store) PutPosition(p *positions.Position) error {
	if err := s.PutRLP(nsPosition, toStoredPosition(p), Uint64Key(p.ID)); err != nil {
		return err
	}
	return s.addToOwnerIndex(p.Owner, p.ID)
}

// GetPosition loads a Position by ID, returning (nil, nil) if it has never
// been written or has been deleted.
func (s *Store) GetPosition(id uint64) (*positions.Position, error) {
	var sp storedPosition
	ok, err := s.GetRLP(nsPosition, &sp, Uint64Key(id))
	if err != nil || !ok {
		return nil, err
	}
	return fromStoredPosition(&sp), nil
}

// DeletePosition removes a Position whose balances have all reached zero
// (spec §3: empty Positions are destroyed) and drops it from the owner index.
func (s *Store) DeletePosition(owner crypto.Address, id uint64) error {
	if err := s.Delete(nsPosition, Uint64Key(id)); err != nil {
		return err
	}
	return s.removeFromOwnerIndex(owner, id)
}

func ownerIndexKey(owner crypto.Address) []byte {
	prefix, raw := encodeAddress(owner)
	return append([]byte(prefix), raw...)
}

func (s *Store) ownerIndexIDs(owner crypto.Address) ([]uint64, error) {
	var ids []uint64
	ok, err := s.GetRLP(nsOwnerIndex, &ids, ownerIndexKey(owner))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return ids, nil
}

func (s *Store) addToOwnerIndex(owner crypto.Address, id uint64) error {
	ids, err := s.ownerIndexIDs(owner)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	return s.PutRLP(nsOwnerIndex, &ids, ownerIndexKey(owner))
}

func (s *Store) removeFromOwnerIndex(owner crypto.Address, id uint64) error {
	ids, err := s.ownerIndexIDs(owner)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, existing := range ids {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == 0 {
		return s.Delete(nsOwnerIndex, ownerIndexKey(owner))
	}
	return s.PutRLP(nsOwnerIndex, &filtered, ownerIndexKey(owner))
}

// PositionsByOwner returns every live Position belonging to owner (spec §3:
// "map Address -> list<Position>").
func (s *Store) PositionsByOwner(owner crypto.Address) ([]*positions.Position, error) {
	ids, err := s.ownerIndexIDs(owner)
	if err != nil {
		return nil, err
	}
	out := make([]*positions.Position, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPosition(id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
