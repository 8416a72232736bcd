package api

import (
	"net/http"

	"github.com/chorecast/chorecast/eventlog"
	"github.com/chorecast/chorecast/middleware"
	"github.com/chorecast/chorecast/money"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createExpenseRequest struct {
	Description  string      `json:"description"`
	Amount       money.Money `json:"amount"`
	PayerID      uuid.UUID   `json:"payer_id"`
	Participants []uuid.UUID `json:"participants"`
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	var req createExpenseRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	payer := req.PayerID
	if payer == uuid.Nil {
		payer = identity.UserID
	}

	expense, err := h.Ledger.RecordExpense(r.Context(), identity.HouseholdID.UUID, req.Description, req.Amount, payer, req.Participants)
	if err != nil {
		writeError(w, err)
		return
	}

	h.Events.Log(eventlog.New(
		eventlog.WithType(eventlog.TypeExpenseCreated),
		eventlog.WithHousehold(expense.HouseholdID),
		eventlog.WithActor(identity.UserID),
		eventlog.WithData(map[string]string{
			"expense_id":  expense.ID.String(),
			"description": expense.Description,
			"amount":      expense.Amount.String(),
		}),
	))

	writeJSON(w, http.StatusCreated, expense)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	expenses, err := h.Ledger.HouseholdExpenses(r.Context(), identity.HouseholdID.UUID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *Handler) getExpense(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid expense id"})
		return
	}

	expense, err := h.Ledger.FindExpense(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (h *Handler) settleExpense(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid expense id"})
		return
	}

	if err := h.Ledger.ReverseExpense(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.Events.Log(eventlog.New(
		eventlog.WithType(eventlog.TypeExpenseSettled),
		eventlog.WithHousehold(identity.HouseholdID.UUID),
		eventlog.WithActor(identity.UserID),
		eventlog.WithData(map[string]string{"expense_id": id.String()}),
	))

	w.WriteHeader(http.StatusNoContent)
}
