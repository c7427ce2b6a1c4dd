package state

import (
	"membranecore/native/auction"
)

const (
	nsDebtAuction = "debt_auction"
	nsFeeAuction  = "fee_auction"
)

type storedRepaymentPosition struct {
	PositionID uint64
	Amount     []byte
}

type storedSendTo struct {
	Prefix  string
	Address []byte
	Amount  []byte
}

type storedDebtAuction struct {
	RemainingRecapitalization []byte
	RepaymentPositions        []storedRepaymentPosition
	SendTo                    []storedSendTo
	AuctionStartTime          uint64
}

func toStoredDebtAuction(a *auction.DebtAuction) *storedDebtAuction {
	sa := &storedDebtAuction{
		RemainingRecapitalization: encodeBigInt(a.RemainingRecapitalization),
		AuctionStartTime:          uint64(a.AuctionStartTime),
	}
	for _, rp := range a.RepaymentPositions {
		sa.RepaymentPositions = append(sa.RepaymentPositions, storedRepaymentPosition{
			PositionID: rp.PositionID,
			Amount:     encodeBigInt(rp.Amount),
		})
	}
	for _, st := range a.SendTo {
		prefix, raw := encodeAddress(st.Address)
		sa.SendTo = append(sa.SendTo, storedSendTo{Prefix: prefix, Address: raw, Amount: encodeBigInt(st.Amount)})
	}
	return sa
}

func fromStoredDebtAuction(sa *storedDebtAuction) *auction.DebtAuction {
	a := &auction.DebtAuction{
		RemainingRecapitalization: decodeBigInt(sa.RemainingRecapitalization),
		AuctionStartTime:          int64(sa.AuctionStartTime),
	}
	for _, rp := range sa.RepaymentPositions {
		a.RepaymentPositions = append(a.RepaymentPositions, auction.RepaymentPosition{
			PositionID: rp.PositionID,
			Amount:     decodeBigInt(rp.Amount),
		})
	}
	for _, st := range sa.SendTo {
		a.SendTo = append(a.SendTo, auction.SendTo{Address: decodeAddress(st.Prefix, st.Address), Amount: decodeBigInt(st.Amount)})
	}
	return a
}

// PutDebtAuction persists the singleton DebtAuction.
func (s *Store) PutDebtAuction(a *auction.DebtAuction) error {
	return s.PutRLP(nsDebtAuction, toStoredDebtAuction(a))
}

// GetDebtAuction loads the singleton DebtAuction, returning (nil, nil) if
// none is active.
func (s *Store) GetDebtAuction() (*auction.DebtAuction, error) {
	var sa storedDebtAuction
	ok, err := s.GetRLP(nsDebtAuction, &sa)
	if err != nil || !ok {
		return nil, err
	}
	return fromStoredDebtAuction(&sa), nil
}

// DeleteDebtAuction clears the singleton DebtAuction once remaining reaches
// zero (spec §3 "DebtAuction" lifecycle).
func (s *Store) DeleteDebtAuction() error {
	return s.Delete(nsDebtAuction)
}

type storedFeeAuction struct {
	Denom            string
	Remaining        []byte
	DesiredAsset     string
	AuctionStartTime uint64
}

// PutFeeAuction persists the FeeAuction keyed by its fee denom.
func (s *Store) PutFeeAuction(a *auction.FeeAuction) error {
	sa := &storedFeeAuction{
		Denom:            a.Denom,
		Remaining:        encodeBigInt(a.Remaining),
		DesiredAsset:     a.DesiredAsset,
		AuctionStartTime: uint64(a.AuctionStartTime),
	}
	return s.PutRLP(nsFeeAuction, sa, []byte(a.Denom))
}

// GetFeeAuction loads the FeeAuction for denom, returning (nil, nil) if none
// is active.
func (s *Store) GetFeeAuction(denom string) (*auction.FeeAuction, error) {
	var sa storedFeeAuction
	ok, err := s.GetRLP(nsFeeAuction, &sa, []byte(denom))
	if err != nil || !ok {
		return nil, err
	}
	return &auction.FeeAuction{
		Denom:            sa.Denom,
		Remaining:        decodeBigInt(sa.Remaining),
		DesiredAsset:     sa.DesiredAsset,
		AuctionStartTime: int64(sa.AuctionStartTime),
	}, nil
}

// DeleteFeeAuction clears the FeeAuction for denom once remaining reaches
// zero.
func (s *Store) DeleteFeeAuction(denom string) error {
	return s.Delete(nsFeeAuction, []byte(denom))
}
