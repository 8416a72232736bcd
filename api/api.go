package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chorecast/chorecast/chore"
	"github.com/chorecast/chorecast/eventlog"
	"github.com/chorecast/chorecast/ledger"
	"github.com/chorecast/chorecast/middleware"
	"github.com/chorecast/chorecast/session"
	"github.com/chorecast/chorecast/user"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	Ledger   *ledger.Service
	Chores   *chore.Service
	Users    user.Repository
	Sessions session.Repository
	Events   *eventlog.Worker
	Feed     eventlog.Logger
}

// Routes builds the full API router, auth middleware included.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Authenticate(h.Users, h.Sessions))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/api/users/register", h.register)
	r.Post("/api/users/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Post("/api/users/logout", h.logout)
		r.Get("/api/users/me", h.me)
		r.Post("/api/users/household", h.joinHousehold)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireHousehold)

			r.Get("/api/users/household", h.householdMembers)

			r.Get("/api/events", h.listEvents)

			r.Post("/api/expenses", h.createExpense)
			r.Get("/api/expenses", h.listExpenses)
			r.Get("/api/expenses/{id}", h.getExpense)
			r.Put("/api/expenses/{id}/settle", h.settleExpense)

			r.Get("/api/balances", h.householdBalances)
			r.Get("/api/balances/my-debts", h.myDebts)
			r.Get("/api/balances/my-credits", h.myCredits)

			r.Post("/api/chores", h.createChore)
			r.Get("/api/chores", h.listChores)
			r.Put("/api/chores/{id}/complete", h.completeChore)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses: validation failures are
// 400, missing entities 404, stale settlement state 409, exhausted conflict
// retries 503, and anything else an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrNoParticipants),
		errors.Is(err, chore.ErrEmptyName),
		errors.Is(err, chore.ErrInvalidFrequency),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrBlankPassword):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrExpenseNotFound),
		errors.Is(err, chore.ErrChoreNotFound),
		errors.Is(err, user.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrAlreadySettled):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, user.ErrEmailExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrWriteConflict):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "ledger busy, retry"})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
