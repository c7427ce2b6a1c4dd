package state

import (
	"membranecore/native/basket"
	"membranecore/native/cascade"
)

const nsPropagation = "liquidation_propagation"

type storedAssetRepayment struct {
	DenomID          uint32
	CollateralAmount []byte
	RepayAmount      []byte
	Settled          bool
}

type storedPropagation struct {
	State             uint64
	PositionID        uint64
	OwnerPrefix       string
	OwnerAddress      []byte
	UserRepayAmount   []byte
	LiqQueueLeftovers []byte
	StabilityPool     []byte
	LiquidatedAssets  []uint32
	PerAssetRepayment []storedAssetRepayment
	EntryCreditPrice  string
	AvailableFee      []byte
}

func toStoredPropagation(p *cascade.LiquidationPropagation) *storedPropagation {
	prefix, raw := encodeAddress(p.PositionOwner)
	sp := &storedPropagation{
		State:             uint64(p.State),
		PositionID:        p.PositionID,
		OwnerPrefix:       prefix,
		OwnerAddress:      raw,
		UserRepayAmount:   encodeBigInt(p.UserRepayAmount),
		LiqQueueLeftovers: encodeBigInt(p.LiqQueueLeftovers),
		StabilityPool:     encodeBigInt(p.StabilityPool),
		EntryCreditPrice:  encodeDecimal(p.EntryCreditPrice),
		AvailableFee:      encodeBigInt(p.AvailableFee),
	}
	for _, id := range p.LiquidatedAssets {
		sp.LiquidatedAssets = append(sp.LiquidatedAssets, uint32(id))
	}
	for _, ar := range p.PerAssetRepayment {
		sp.PerAssetRepayment = append(sp.PerAssetRepayment, storedAssetRepayment{
			DenomID:          uint32(ar.DenomID),
			CollateralAmount: encodeBigInt(ar.CollateralAmount),
			RepayAmount:      encodeBigInt(ar.RepayAmount),
			Settled:          ar.Settled,
		})
	}
	return sp
}

func fromStoredPropagation(sp *storedPropagation) *cascade.LiquidationPropagation {
	p := &cascade.LiquidationPropagation{
		State:             cascade.PropagationState(sp.State),
		PositionID:        sp.PositionID,
		PositionOwner:     decodeAddress(sp.OwnerPrefix, sp.OwnerAddress),
		UserRepayAmount:   decodeBigInt(sp.UserRepayAmount),
		LiqQueueLeftovers: decodeBigInt(sp.LiqQueueLeftovers),
		StabilityPool:     decodeBigInt(sp.StabilityPool),
		EntryCreditPrice:  decodeDecimal(sp.EntryCreditPrice),
		AvailableFee:      decodeBigInt(sp.AvailableFee),
	}
	for _, id := range sp.LiquidatedAssets {
		p.LiquidatedAssets = append(p.LiquidatedAssets, basket.DenomID(id))
	}
	for _, ar := range sp.PerAssetRepayment {
		p.PerAssetRepayment = append(p.PerAssetRepayment, cascade.AssetRepayment{
			DenomID:          basket.DenomID(ar.DenomID),
			CollateralAmount: decodeBigInt(ar.CollateralAmount),
			RepayAmount:      decodeBigInt(ar.RepayAmount),
			Settled:          ar.Settled,
		})
	}
	return p
}

// PutPropagation persists the singleton in-flight LiquidationPropagation.
func (s *Store) PutPropagation(p *cascade.LiquidationPropagation) error {
	return s.PutRLP(nsPropagation, toStoredPropagation(p))
}

// GetPropagation loads the in-flight LiquidationPropagation, returning
// (nil, nil) if none is active.
func (s *Store) GetPropagation() (*cascade.LiquidationPropagation, error) {
	var sp storedPropagation
	ok, err := s.GetRLP(nsPropagation, &sp)
	if err != nil || !ok {
		return nil, err
	}
	return fromStoredPropagation(&sp), nil
}

// ClearPropagation removes the in-flight record once a cascade completes,
// satisfying the "must be cleared before any new liquidation begins"
// invariant (spec §3 "Ownership/lifetime statement").
func (s *Store) ClearPropagation() error {
	return s.Delete(nsPropagation)
}
