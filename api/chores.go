package api

import (
	"net/http"

	"github.com/chorecast/chorecast/chore"
	"github.com/chorecast/chorecast/eventlog"
	"github.com/chorecast/chorecast/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createChoreRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Frequency   chore.Frequency `json:"frequency"`
	AssignedTo  uuid.UUID       `json:"assigned_to"`
}

func (h *Handler) createChore(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	var req createChoreRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	assignee := req.AssignedTo
	if assignee == uuid.Nil {
		assignee = identity.UserID
	}

	created, err := h.Chores.Create(r.Context(), identity.HouseholdID.UUID, req.Name, req.Description, req.Frequency, assignee)
	if err != nil {
		writeError(w, err)
		return
	}

	h.Events.Log(eventlog.New(
		eventlog.WithType(eventlog.TypeChoreCreated),
		eventlog.WithHousehold(created.HouseholdID),
		eventlog.WithActor(identity.UserID),
		eventlog.WithData(map[string]string{"chore_id": created.ID.String(), "name": created.Name}),
	))

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) listChores(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	chores, err := h.Chores.HouseholdChores(r.Context(), identity.HouseholdID.UUID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *Handler) completeChore(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid chore id"})
		return
	}

	completed, err := h.Chores.Complete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.Events.Log(eventlog.New(
		eventlog.WithType(eventlog.TypeChoreCompleted),
		eventlog.WithHousehold(completed.HouseholdID),
		eventlog.WithActor(identity.UserID),
		eventlog.WithData(map[string]string{"chore_id": completed.ID.String(), "name": completed.Name}),
	))

	writeJSON(w, http.StatusOK, completed)
}
