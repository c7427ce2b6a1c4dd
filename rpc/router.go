// Package rpc implements the read-only HTTP query API described in spec
// §6.1: Basket/Position/queue-slot/auction lookups over the persisted
// state.Store. Every mutating operation is an explicit Non-goal here — a
// caller wanting to deposit, borrow, or liquidate talks to the native/*
// engine packages directly as a library, the way cmd/cdpd does.
package rpc

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"membranecore/observability"
	"membranecore/rpc/modules"
	"membranecore/state"
)

// NewRouter builds the chi mux serving every §6.1 endpoint over store.
func NewRouter(store *state.Store) *chi.Mux {
	basketMod := modules.NewBasketModule(store)
	positionsMod := modules.NewPositionsModule(store)
	queueMod := modules.NewQueueModule(store)
	auctionMod := modules.NewAuctionModule(store)

	r := chi.NewRouter()
	r.Use(observabilityMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/baskets", func(sr chi.Router) {
		sr.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			view, modErr := basketMod.GetBasket()
			writeResult(w, "basket", "GetBasket", view, modErr)
		})
	})

	r.Route("/positions", func(sr chi.Router) {
		sr.Get("/{owner}", func(w http.ResponseWriter, r *http.Request) {
			owner := chi.URLParam(r, "owner")
			views, modErr := positionsMod.ListByOwner(owner)
			writeResult(w, "positions", "ListByOwner", views, modErr)
		})
		sr.Get("/{owner}/{id}", func(w http.ResponseWriter, r *http.Request) {
			owner := chi.URLParam(r, "owner")
			id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
			if err != nil {
				writeResult(w, "positions", "Get", nil, &modules.ModuleError{HTTPStatus: http.StatusBadRequest, Message: "invalid position id"})
				return
			}
			view, modErr := positionsMod.Get(owner, id)
			writeResult(w, "positions", "Get", view, modErr)
		})
	})

	r.Route("/queue", func(sr chi.Router) {
		sr.Get("/{denom}/slots", func(w http.ResponseWriter, r *http.Request) {
			denom := chi.URLParam(r, "denom")
			views, modErr := queueMod.Slots(denom)
			writeResult(w, "queue", "Slots", views, modErr)
		})
		sr.Get("/{denom}/bids/{id}", func(w http.ResponseWriter, r *http.Request) {
			denom := chi.URLParam(r, "denom")
			id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
			if err != nil {
				writeResult(w, "queue", "Bid", nil, &modules.ModuleError{HTTPStatus: http.StatusBadRequest, Message: "invalid bid id"})
				return
			}
			view, modErr := queueMod.Bid(denom, id)
			writeResult(w, "queue", "Bid", view, modErr)
		})
	})

	r.Route("/auctions", func(sr chi.Router) {
		sr.Get("/debt", func(w http.ResponseWriter, r *http.Request) {
			view, modErr := auctionMod.Debt()
			writeResult(w, "auctions", "Debt", view, modErr)
		})
		sr.Get("/fees/{denom}", func(w http.ResponseWriter, r *http.Request) {
			denom := chi.URLParam(r, "denom")
			view, modErr := auctionMod.Fee(denom)
			writeResult(w, "auctions", "Fee", view, modErr)
		})
	})

	return r
}

// observabilityMiddleware records module-level request metrics using the
// same ModuleMetrics collectors the host's rpc layer uses, keyed here by
// route pattern instead of JSON-RPC method name.
func observabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		observability.ModuleMetrics().Observe("rpc", pattern, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// writeResult writes view as JSON on success, or the ModuleError's status
// and message on failure. It records no metrics: module and method are not
// used, and request outcomes are counted only by observabilityMiddleware,
// keyed by route pattern. The router mounts no /metrics route.
func writeResult(w http.ResponseWriter, module, method string, view interface{}, modErr *modules.ModuleError) {
	if modErr != nil {
		status := modErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": modErr.Message})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}
