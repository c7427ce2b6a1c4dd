package state

import (
	"encoding/binary"

	"membranecore/native/basket"
	"membranecore/native/liqqueue"
)

const (
	nsQueueSlot   = "queue_slot"
	nsQueueBid    = "queue_bid"
	nsQueueBidSeq = "queue_bid_seq"
	nsQueueConfig = "queue_config"
)

func denomPremiumKey(denom basket.DenomID, premium uint32) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:4], uint32(denom))
	binary.BigEndian.PutUint32(b[4:8], premium)
	return b
}

func denomKey(denom basket.DenomID) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(denom))
	return b
}

func denomBidKey(denom basket.DenomID, id uint64) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:4], uint32(denom))
	binary.BigEndian.PutUint64(b[4:12], id)
	return b
}

type storedBid struct {
	ID                          uint64
	OwnerPrefix                 string
	OwnerAddress                []byte
	Amount                      []byte
	LiqPremium                  uint32
	ProductSnapshot             string
	SumSnapshot                 string
	PendingLiquidatedCollateral []byte
	WaitEnd                     uint64
	EpochSnapshot               uint64
	ScaleSnapshot               uint64
}

func toStoredBid(b *liqqueue.Bid) *storedBid {
	prefix, raw := encodeAddress(b.Owner)
	return &storedBid{
		ID:                          b.ID,
		OwnerPrefix:                 prefix,
		OwnerAddress:                raw,
		Amount:                      encodeBigInt(b.Amount),
		LiqPremium:                  b.LiqPremium,
		ProductSnapshot:             encodeDecimal(b.ProductSnapshot),
		SumSnapshot:                 encodeDecimal(b.SumSnapshot),
		PendingLiquidatedCollateral: encodeBigInt(b.PendingLiquidatedCollateral),
		WaitEnd:                     uint64(b.WaitEnd),
		EpochSnapshot:               b.EpochSnapshot,
		ScaleSnapshot:               b.ScaleSnapshot,
	}
}

func fromStoredBid(sb *storedBid) *liqqueue.Bid {
	return &liqqueue.Bid{
		ID:                          sb.ID,
		Owner:                       decodeAddress(sb.OwnerPrefix, sb.OwnerAddress),
		Amount:                      decodeBigInt(sb.Amount),
		LiqPremium:                  sb.LiqPremium,
		ProductSnapshot:             decodeDecimal(sb.ProductSnapshot),
		SumSnapshot:                 decodeDecimal(sb.SumSnapshot),
		PendingLiquidatedCollateral: decodeBigInt(sb.PendingLiquidatedCollateral),
		WaitEnd:                     int64(sb.WaitEnd),
		EpochSnapshot:               sb.EpochSnapshot,
		ScaleSnapshot:               sb.ScaleSnapshot,
	}
}

type storedPremiumSlot struct {
	BidFor            uint32
	Premium           uint32
	BidIDs            []uint64
	WaitingBids       []storedBid
	ProductSnapshot   string
	SumSnapshot       string
	CurrentEpoch      uint64
	CurrentScale      uint64
	TotalBidAmount    []byte
	LastTotal         uint64
	ResidueCollateral string
	ResidueBid        string
}

// PutSlot persists a PremiumSlot and every bid still active inside it; active
// bids are also addressable individually through GetBid so ClaimLiquidations
// and RetractBid can look one up by id without re-scanning the slot.
func (s *Store) PutSlot(slot *liqqueue.PremiumSlot) error {
	ssl := &storedPremiumSlot{
		BidFor:            uint32(slot.BidFor),
		Premium:           slot.Premium,
		ProductSnapshot:   encodeDecimal(slot.ProductSnapshot),
		SumSnapshot:       encodeDecimal(slot.SumSnapshot),
		CurrentEpoch:      slot.CurrentEpoch,
		CurrentScale:      slot.CurrentScale,
		TotalBidAmount:    encodeBigInt(slot.TotalBidAmount),
		LastTotal:         uint64(slot.LastTotal),
		ResidueCollateral: encodeDecimal(slot.ResidueCollateral),
		ResidueBid:        encodeDecimal(slot.ResidueBid),
	}
	for _, b := range slot.Bids {
		ssl.BidIDs = append(ssl.BidIDs, b.ID)
		if err := s.PutBid(slot.BidFor, b); err != nil {
			return err
		}
	}
	for _, b := range slot.WaitingBids {
		ssl.WaitingBids = append(ssl.WaitingBids, *toStoredBid(b))
	}
	return s.PutRLP(nsQueueSlot, ssl, denomPremiumKey(slot.BidFor, slot.Premium))
}

// GetSlot loads a PremiumSlot, resolving its active bids from the per-bid
// store and returning (nil, nil) if the slot has never been created.
func (s *Store) GetSlot(bidFor basket.DenomID, premium uint32) (*liqqueue.PremiumSlot, error) {
	var ssl storedPremiumSlot
	ok, err := s.GetRLP(nsQueueSlot, &ssl, denomPremiumKey(bidFor, premium))
	if err != nil || !ok {
		return nil, err
	}
	slot := &liqqueue.PremiumSlot{
		BidFor:            basket.DenomID(ssl.BidFor),
		Premium:           ssl.Premium,
		ProductSnapshot:   decodeDecimal(ssl.ProductSnapshot),
		SumSnapshot:       decodeDecimal(ssl.SumSnapshot),
		CurrentEpoch:      ssl.CurrentEpoch,
		CurrentScale:      ssl.CurrentScale,
		TotalBidAmount:    decodeBigInt(ssl.TotalBidAmount),
		LastTotal:         int64(ssl.LastTotal),
		ResidueCollateral: decodeDecimal(ssl.ResidueCollateral),
		ResidueBid:        decodeDecimal(ssl.ResidueBid),
	}
	for _, id := range ssl.BidIDs {
		b, err := s.GetBid(bidFor, id)
		if err != nil {
			return nil, err
		}
		if b != nil {
			slot.Bids = append(slot.Bids, b)
		}
	}
	for i := range ssl.WaitingBids {
		slot.WaitingBids = append(slot.WaitingBids, fromStoredBid(&ssl.WaitingBids[i]))
	}
	return slot, nil
}

// PutBid persists a single Bid, addressable independently of its slot.
func (s *Store) PutBid(bidFor basket.DenomID, bid *liqqueue.Bid) error {
	return s.PutRLP(nsQueueBid, toStoredBid(bid), denomBidKey(bidFor, bid.ID))
}

// GetBid loads a Bid by (bidFor, id), returning (nil, nil) if absent.
func (s *Store) GetBid(bidFor basket.DenomID, id uint64) (*liqqueue.Bid, error) {
	var sb storedBid
	ok, err := s.GetRLP(nsQueueBid, &sb, denomBidKey(bidFor, id))
	if err != nil || !ok {
		return nil, err
	}
	return fromStoredBid(&sb), nil
}

// DeleteBid removes a fully-consumed or fully-retracted Bid.
func (s *Store) DeleteBid(bidFor basket.DenomID, id uint64) error {
	return s.Delete(nsQueueBid, denomBidKey(bidFor, id))
}

// NextBidID allocates a queue-wide monotonic Bid id.
func (s *Store) NextBidID() (uint64, error) {
	var seq uint64
	ok, err := s.GetRLP(nsQueueBidSeq, &seq)
	if err != nil {
		return 0, err
	}
	if !ok {
		seq = 0
	}
	seq++
	if err := s.PutRLP(nsQueueBidSeq, &seq); err != nil {
		return 0, err
	}
	return seq, nil
}

type storedQueueConfig struct {
	WaitingPeriod      uint64
	MinimumBid         []byte
	MaximumWaitingBids uint32
	BidThreshold       []byte
	MaxPremium         uint32
}

// PutQueueConfig persists the per-bid_for queue parameters.
func (s *Store) PutQueueConfig(bidFor basket.DenomID, cfg *liqqueue.Config) error {
	sc := &storedQueueConfig{
		WaitingPeriod:      uint64(cfg.WaitingPeriod),
		MinimumBid:         encodeBigInt(cfg.MinimumBid),
		MaximumWaitingBids: cfg.MaximumWaitingBids,
		BidThreshold:       encodeBigInt(cfg.BidThreshold),
		MaxPremium:         cfg.MaxPremium,
	}
	return s.PutRLP(nsQueueConfig, sc, denomKey(bidFor))
}

// GetQueueConfig loads the per-bid_for queue parameters, returning (nil, nil)
// if AddQueue has never been called for this denom.
func (s *Store) GetQueueConfig(bidFor basket.DenomID) (*liqqueue.Config, error) {
	var sc storedQueueConfig
	ok, err := s.GetRLP(nsQueueConfig, &sc, denomKey(bidFor))
	if err != nil || !ok {
		return nil, err
	}
	return &liqqueue.Config{
		WaitingPeriod:      int64(sc.WaitingPeriod),
		MinimumBid:         decodeBigInt(sc.MinimumBid),
		MaximumWaitingBids: sc.MaximumWaitingBids,
		BidThreshold:       decodeBigInt(sc.BidThreshold),
		MaxPremium:         sc.MaxPremium,
	}, nil
}
