package modules

import (
	"net/http"

	"membranecore/state"
)

// AuctionModule serves DebtAuction/FeeAuction queries (spec §6.1 "GET
// /auctions/debt" and "GET /auctions/fees/{denom}").
type AuctionModule struct {
	store *state.Store
}

// NewAuctionModule constructs an AuctionModule over store.
func NewAuctionModule(store *state.Store) *AuctionModule {
	return &AuctionModule{store: store}
}

func (m *AuctionModule) moduleUnavailable() *ModuleError {
	return &ModuleError{HTTPStatus: http.StatusInternalServerError, Code: codeServerError, Message: "auction module not available"}
}

func (m *AuctionModule) wrapError(err error) *ModuleError {
	return &ModuleError{HTTPStatus: http.StatusInternalServerError, Code: codeServerError, Message: err.Error()}
}

// Debt returns the singleton in-flight DebtAuction, if any.
func (m *AuctionModule) Debt() (*DebtAuctionView, *ModuleError) {
	if m == nil || m.store == nil {
		return nil, m.moduleUnavailable()
	}
	a, err := m.store.GetDebtAuction()
	if err != nil {
		return nil, m.wrapError(err)
	}
	if a == nil {
		return nil, &ModuleError{HTTPStatus: http.StatusNotFound, Code: codeNotFound, Message: "no debt auction in flight"}
	}
	return newDebtAuctionView(a), nil
}

// Fee returns the in-flight FeeAuction for denom, if any.
func (m *AuctionModule) Fee(denom string) (*FeeAuctionView, *ModuleError) {
	if m == nil || m.store == nil {
		return nil, m.moduleUnavailable()
	}
	a, err := m.store.GetFeeAuction(denom)
	if err != nil {
		return nil, m.wrapError(err)
	}
	if a == nil {
		return nil, &ModuleError{HTTPStatus: http.StatusNotFound, Code: codeNotFound, Message: "no fee auction in flight for denom"}
	}
	return newFeeAuctionView(a), nil
}
