package modules

import (
	"net/http"

	"membranecore/state"
)

// BasketModule serves the singleton Basket query (spec §6.1 "GET
// /baskets/{id}"). The protocol has exactly one Basket, so {id} is
// accepted but ignored beyond existence — kept in the route for symmetry
// with a future multi-basket deployment.
type BasketModule struct {
	store *state.Store
}

// NewBasketModule constructs a BasketModule over store.
func NewBasketModule(store *state.Store) *BasketModule {
	return &BasketModule{store: store}
}

func (m *BasketModule) moduleUnavailable() *ModuleError {
	return &ModuleError{HTTPStatus: http.StatusInternalServerError, Code: codeServerError, Message: "basket module not available"}
}

func (m *BasketModule) wrapError(err error) *ModuleError {
	return &ModuleError{HTTPStatus: http.StatusInternalServerError, Code: codeServerError, Message: err.Error()}
}

// GetBasket loads the singleton Basket.
func (m *BasketModule) GetBasket() (*BasketView, *ModuleError) {
	if m == nil || m.store == nil {
		return nil, m.moduleUnavailable()
	}
	b, err := m.store.GetBasket()
	if err != nil {
		return nil, m.wrapError(err)
	}
	if b == nil {
		return nil, &ModuleError{HTTPStatus: http.StatusNotFound, Code: codeNotFound, Message: "basket not found"}
	}
	return newBasketView(b), nil
}
