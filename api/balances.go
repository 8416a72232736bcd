package api

import (
	"net/http"

	"github.com/chorecast/chorecast/ledger"
	"github.com/chorecast/chorecast/middleware"
)

func (h *Handler) householdBalances(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	edges, err := h.Ledger.HouseholdBalances(r.Context(), identity.HouseholdID.UUID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(edges))
}

func (h *Handler) myDebts(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	edges, err := h.Ledger.UserDebts(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(edges))
}

func (h *Handler) myCredits(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	edges, err := h.Ledger.UserCredits(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(edges))
}

func emptyIfNil(edges []ledger.BalanceEdge) []ledger.BalanceEdge {
	if edges == nil {
		return []ledger.BalanceEdge{}
	}
	return edges
}
