package modules

import (
	"net/http"

	"membranecore/crypto"
	"membranecore/state"
)

// PositionsModule serves Position queries (spec §6.1 "GET
// /positions/{owner}" and "GET /positions/{owner}/{id}").
type PositionsModule struct {
	store *state.Store
}

// NewPositionsModule constructs a PositionsModule over store.
func NewPositionsModule(store *state.Store) *PositionsModule {
	return &PositionsModule{store: store}
}

func (m *PositionsModule) moduleUnavailable() *ModuleError {
	return &ModuleError{HTTPStatus: http.StatusInternalServerError, Code: codeServerError, Message: "positions module not available"}
}

func (m *PositionsModule) wrapError(err error) *ModuleError {
	return &ModuleError{HTTPStatus: http.StatusInternalServerError, Code: codeServerError, Message: err.Error()}
}

// ListByOwner returns every live Position belonging to ownerAddr (bech32).
func (m *PositionsModule) ListByOwner(ownerAddr string) ([]*PositionView, *ModuleError) {
	if m == nil || m.store == nil {
		return nil, m.moduleUnavailable()
	}
	owner, err := crypto.DecodeAddress(ownerAddr)
	if err != nil {
		return nil, &ModuleError{HTTPStatus: http.StatusBadRequest, Code: codeInvalidParams, Message: "invalid owner address"}
	}
	b, err := m.store.GetBasket()
	if err != nil {
		return nil, m.wrapError(err)
	}
	list, err := m.store.PositionsByOwner(owner)
	if err != nil {
		return nil, m.wrapError(err)
	}
	views := make([]*PositionView, 0, len(list))
	for _, p := range list {
		views = append(views, newPositionView(b, p))
	}
	return views, nil
}

// Get returns one Position owned by ownerAddr by id, used to additionally
// confirm the id belongs to that owner rather than trusting the path alone.
func (m *PositionsModule) Get(ownerAddr string, id uint64) (*PositionView, *ModuleError) {
	if m == nil || m.store == nil {
		return nil, m.moduleUnavailable()
	}
	owner, err := crypto.DecodeAddress(ownerAddr)
	if err != nil {
		return nil, &ModuleError{HTTPStatus: http.StatusBadRequest, Code: codeInvalidParams, Message: "invalid owner address"}
	}
	b, err := m.store.GetBasket()
	if err != nil {
		return nil, m.wrapError(err)
	}
	p, err := m.store.GetPosition(id)
	if err != nil {
		return nil, m.wrapError(err)
	}
	if p == nil || !p.Owner.Equal(owner) {
		return nil, &ModuleError{HTTPStatus: http.StatusNotFound, Code: codeNotFound, Message: "position not found"}
	}
	return newPositionView(b, p), nil
}
