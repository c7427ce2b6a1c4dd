package modules

import (
	"net/http"

	"membranecore/native/basket"
	"membranecore/state"
)

// QueueModule serves LiquidationQueue queries (spec §6.1 "GET
// /queue/{denom}/slots" and "GET /queue/{denom}/bids/{id}").
type QueueModule struct {
	store *state.Store
}

// NewQueueModule constructs a QueueModule over store.
func NewQueueModule(store *state.Store) *QueueModule {
	return &QueueModule{store: store}
}

func (m *QueueModule) moduleUnavailable() *ModuleError {
	return &ModuleError{HTTPStatus: http.StatusInternalServerError, Code: codeServerError, Message: "queue module not available"}
}

func (m *QueueModule) wrapError(err error) *ModuleError {
	return &ModuleError{HTTPStatus: http.StatusInternalServerError, Code: codeServerError, Message: err.Error()}
}

func (m *QueueModule) resolveDenom(denom string) (basket.DenomID, *ModuleError) {
	b, err := m.store.GetBasket()
	if err != nil {
		return 0, m.wrapError(err)
	}
	if b == nil || b.Denoms == nil {
		return 0, &ModuleError{HTTPStatus: http.StatusNotFound, Code: codeNotFound, Message: "basket not found"}
	}
	id, ok := b.Denoms.Lookup(denom)
	if !ok {
		return 0, &ModuleError{HTTPStatus: http.StatusNotFound, Code: codeNotFound, Message: "unknown denom"}
	}
	return id, nil
}

// Slots returns every configured PremiumSlot for denom, in ascending premium
// order (spec §4.5's slot ladder is walked the same way by Liquidate).
func (m *QueueModule) Slots(denom string) ([]*PremiumSlotView, *ModuleError) {
	if m == nil || m.store == nil {
		return nil, m.moduleUnavailable()
	}
	id, modErr := m.resolveDenom(denom)
	if modErr != nil {
		return nil, modErr
	}
	cfg, err := m.store.GetQueueConfig(id)
	if err != nil {
		return nil, m.wrapError(err)
	}
	if cfg == nil {
		return nil, &ModuleError{HTTPStatus: http.StatusNotFound, Code: codeNotFound, Message: "queue not configured for denom"}
	}
	views := make([]*PremiumSlotView, 0, cfg.MaxPremium+1)
	for p := uint32(0); p <= cfg.MaxPremium; p++ {
		slot, err := m.store.GetSlot(id, p)
		if err != nil {
			return nil, m.wrapError(err)
		}
		if slot == nil {
			continue
		}
		views = append(views, newPremiumSlotView(denom, slot))
	}
	return views, nil
}

// Bid returns a single Bid by (denom, id).
func (m *QueueModule) Bid(denom string, id uint64) (*BidView, *ModuleError) {
	if m == nil || m.store == nil {
		return nil, m.moduleUnavailable()
	}
	denomID, modErr := m.resolveDenom(denom)
	if modErr != nil {
		return nil, modErr
	}
	bid, err := m.store.GetBid(denomID, id)
	if err != nil {
		return nil, m.wrapError(err)
	}
	if bid == nil {
		return nil, &ModuleError{HTTPStatus: http.StatusNotFound, Code: codeNotFound, Message: "bid not found"}
	}
	return newBidView(bid), nil
}
