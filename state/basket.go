package state

import (
	"membranecore/native/basket"
)

const nsBasket = "basket"

// storedCollateralSpec is the RLP-safe wire shape of basket.CollateralSpec.
type storedCollateralSpec struct {
	Denom            string
	ID               uint32
	MaxBorrowLTV     string
	MaxLTV           string
	RateIndex        string
	HasPool          bool
	PoolUnderlying   []string
	PoolDecimals     []uint32
	PoolShareAmount  []byte
	RateHike         bool
}

type storedSupplyCap struct {
	DenomID              uint32
	CurrentSupply        []byte
	DebtTotal            []byte
	SupplyCapRatio       string
	IsLP                 bool
	HasStabilityPoolRatio bool
	StabilityPoolRatio   string
}

type storedMultiAssetCap struct {
	DenomIDs []uint32
	CapRatio string
}

type storedRevenueDestination struct {
	Prefix  string
	Address []byte
	Ratio   string
}

type storedCollateralRate struct {
	DenomID    uint32
	Rate       string
	ComputedAt uint64
}

type storedBasket struct {
	CreditDenom   string
	CreditAmount  []byte
	CreditPrice   string

	CollateralTypes      []storedCollateralSpec
	CollateralSupplyCaps []storedSupplyCap
	MultiAssetCaps       []storedMultiAssetCap
	LatestCollateralRates []storedCollateralRate

	PendingRevenue []byte

	CreditLastAccrued uint64
	RatesLastAccrued  uint64

	OracleSet            bool
	NegativeRatesAllowed bool
	Frozen               bool
	RevToStakers         bool

	CPCMarginOfError string

	RevenueDestinations []storedRevenueDestination

	InternedDenoms []string
}

func toStoredBasket(b *basket.Basket) *storedBasket {
	sb := &storedBasket{
		CreditDenom:          b.CreditAsset.Denom,
		CreditAmount:         encodeBigInt(b.CreditAsset.Amount),
		CreditPrice:          encodeDecimal(b.CreditPrice),
		PendingRevenue:       encodeBigInt(b.PendingRevenue),
		CreditLastAccrued:    uint64(b.CreditLastAccrued),
		RatesLastAccrued:     uint64(b.RatesLastAccrued),
		OracleSet:            b.OracleSet,
		NegativeRatesAllowed: b.NegativeRatesAllowed,
		Frozen:               b.Frozen,
		RevToStakers:         b.RevToStakers,
		CPCMarginOfError:     encodeDecimal(b.CPCMarginOfError),
	}
	for _, c := range b.CollateralTypes {
		entry := storedCollateralSpec{
			Denom:        c.Denom,
			ID:           uint32(c.ID),
			MaxBorrowLTV: encodeDecimal(c.MaxBorrowLTV),
			MaxLTV:       encodeDecimal(c.MaxLTV),
			RateIndex:    encodeDecimal(c.RateIndex),
			RateHike:     c.RateHike,
		}
		if c.Pool != nil {
			entry.HasPool = true
			entry.PoolUnderlying = append([]string(nil), c.Pool.UnderlyingDenoms...)
			entry.PoolDecimals = append([]uint32(nil), c.Pool.UnderlyingDecimals...)
			entry.PoolShareAmount = encodeBigInt(c.Pool.ShareAmount)
		}
		sb.CollateralTypes = append(sb.CollateralTypes, entry)
	}
	for _, cap := range b.CollateralSupplyCaps {
		entry := storedSupplyCap{
			DenomID:        uint32(cap.DenomID),
			CurrentSupply:  encodeBigInt(cap.CurrentSupply),
			DebtTotal:      encodeBigInt(cap.DebtTotal),
			SupplyCapRatio: encodeDecimal(cap.SupplyCapRatio),
			IsLP:           cap.IsLP,
		}
		if cap.StabilityPoolRatio != nil {
			entry.HasStabilityPoolRatio = true
			entry.StabilityPoolRatio = encodeDecimal(*cap.StabilityPoolRatio)
		}
		sb.CollateralSupplyCaps = append(sb.CollateralSupplyCaps, entry)
	}
	for _, m := range b.MultiAssetCaps {
		ids := make([]uint32, len(m.DenomIDs))
		for i, id := range m.DenomIDs {
			ids[i] = uint32(id)
		}
		sb.MultiAssetCaps = append(sb.MultiAssetCaps, storedMultiAssetCap{DenomIDs: ids, CapRatio: encodeDecimal(m.CapRatio)})
	}
	for _, r := range b.LatestCollateralRates {
		sb.LatestCollateralRates = append(sb.LatestCollateralRates, storedCollateralRate{
			DenomID:    uint32(r.DenomID),
			Rate:       encodeDecimal(r.Rate),
			ComputedAt: uint64(r.ComputedAt),
		})
	}
	for _, d := range b.RevenueDestinations {
		prefix, raw := encodeAddress(d.Address)
		sb.RevenueDestinations = append(sb.RevenueDestinations, storedRevenueDestination{
			Prefix:  prefix,
			Address: raw,
			Ratio:   encodeDecimal(d.Ratio),
		})
	}
	if b.Denoms != nil {
		for i := 0; i < b.Denoms.Len(); i++ {
			sb.InternedDenoms = append(sb.InternedDenoms, b.Denoms.String(basket.DenomID(i)))
		}
	}
	return sb
}

func fromStoredBasket(sb *storedBasket) *basket.Basket {
	b := &basket.Basket{
		CreditAsset: basket.CreditAsset{
			Denom:  sb.CreditDenom,
			Amount: decodeBigInt(sb.CreditAmount),
		},
		CreditPrice:          decodeDecimal(sb.CreditPrice),
		PendingRevenue:       decodeBigInt(sb.PendingRevenue),
		CreditLastAccrued:    int64(sb.CreditLastAccrued),
		RatesLastAccrued:     int64(sb.RatesLastAccrued),
		OracleSet:            sb.OracleSet,
		NegativeRatesAllowed: sb.NegativeRatesAllowed,
		Frozen:               sb.Frozen,
		RevToStakers:         sb.RevToStakers,
		CPCMarginOfError:     decodeDecimal(sb.CPCMarginOfError),
		Denoms:               basket.NewInterner(),
	}
	for _, denom := range sb.InternedDenoms {
		b.Denoms.Intern(denom)
	}
	for _, c := range sb.CollateralTypes {
		spec := basket.CollateralSpec{
			Denom:        c.Denom,
			ID:           basket.DenomID(c.ID),
			MaxBorrowLTV: decodeDecimal(c.MaxBorrowLTV),
			MaxLTV:       decodeDecimal(c.MaxLTV),
			RateIndex:    decodeDecimal(c.RateIndex),
			RateHike:     c.RateHike,
		}
		if c.HasPool {
			spec.Pool = &basket.PoolInfo{
				UnderlyingDenoms:   append([]string(nil), c.PoolUnderlying...),
				UnderlyingDecimals: append([]uint32(nil), c.PoolDecimals...),
				ShareAmount:        decodeBigInt(c.PoolShareAmount),
			}
		}
		b.CollateralTypes = append(b.CollateralTypes, spec)
	}
	for _, cap := range sb.CollateralSupplyCaps {
		entry := basket.SupplyCap{
			DenomID:        basket.DenomID(cap.DenomID),
			CurrentSupply:  decodeBigInt(cap.CurrentSupply),
			DebtTotal:      decodeBigInt(cap.DebtTotal),
			SupplyCapRatio: decodeDecimal(cap.SupplyCapRatio),
			IsLP:           cap.IsLP,
		}
		if cap.HasStabilityPoolRatio {
			r := decodeDecimal(cap.StabilityPoolRatio)
			entry.StabilityPoolRatio = &r
		}
		b.CollateralSupplyCaps = append(b.CollateralSupplyCaps, entry)
	}
	for _, m := range sb.MultiAssetCaps {
		ids := make([]basket.DenomID, len(m.DenomIDs))
		for i, id := range m.DenomIDs {
			ids[i] = basket.DenomID(id)
		}
		b.MultiAssetCaps = append(b.MultiAssetCaps, basket.MultiAssetCap{DenomIDs: ids, CapRatio: decodeDecimal(m.CapRatio)})
	}
	for _, r := range sb.LatestCollateralRates {
		b.LatestCollateralRates = append(b.LatestCollateralRates, basket.CollateralRate{
			DenomID:    basket.DenomID(r.DenomID),
			Rate:       decodeDecimal(r.Rate),
			ComputedAt: int64(r.ComputedAt),
		})
	}
	for _, d := range sb.RevenueDestinations {
		b.RevenueDestinations = append(b.RevenueDestinations, basket.RevenueDestination{
			Address: decodeAddress(d.Prefix, d.Address),
			Ratio:   decodeDecimal(d.Ratio),
		})
	}
	return b
}

// PutBasket persists the singleton Basket.
func (s *Store) PutBasket(b *basket.Basket) error {
	return s.PutRLP(nsBasket, toStoredBasket(b))
}

// GetBasket loads the singleton Basket, returning (nil, nil) if none has been
// written yet.
func (s *Store) GetBasket() (*basket.Basket, error) {
	var sb storedBasket
	ok, err := s.GetRLP(nsBasket, &sb)
	if err != nil || !ok {
		return nil, err
	}
	return fromStoredBasket(&sb), nil
}
