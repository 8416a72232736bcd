package api

import (
	"net/http"

	"github.com/chorecast/chorecast/eventlog"
)

// listEvents reads the activity feed for one event type, e.g.
// GET /api/events?type=expense.created.
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	eventType := r.URL.Query().Get("type")
	if eventType == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "type query parameter is required"})
		return
	}

	events, err := h.Feed.ListByType(r.Context(), eventType)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []eventlog.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
