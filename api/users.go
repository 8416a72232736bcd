package api

import (
	"net/http"

	"github.com/chorecast/chorecast/eventlog"
	"github.com/chorecast/chorecast/middleware"
	"github.com/chorecast/chorecast/session"
	"github.com/google/uuid"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	registered, err := h.Users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.Sessions.Create(r.Context(), registered.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	setSessionCookie(w, sess)

	h.Events.Log(eventlog.New(
		eventlog.WithType(eventlog.TypeUserRegistered),
		eventlog.WithActor(registered.ID),
		eventlog.WithData(map[string]string{"email": registered.Email}),
	))

	writeJSON(w, http.StatusCreated, registered)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	account, err := h.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if account == nil || h.Users.VerifyPassword(account.PasswordHash, req.Password) != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid email or password"})
		return
	}

	sess, err := h.Sessions.Create(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	setSessionCookie(w, sess)

	h.Events.Log(eventlog.New(
		eventlog.WithType(eventlog.TypeUserLoggedIn),
		eventlog.WithActor(account.ID),
		eventlog.WithData(map[string]string{"email": account.Email}),
	))

	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := h.Sessions.Delete(r.Context(), cookie.Value); err != nil {
			writeError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:   session.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	account, err := h.Users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if account == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) householdMembers(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	members, err := h.Users.ListByHousehold(r.Context(), identity.HouseholdID.UUID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type joinHouseholdRequest struct {
	// empty household_id starts a new household
	HouseholdID uuid.UUID `json:"household_id"`
}

func (h *Handler) joinHousehold(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.FromContext(r.Context())

	var req joinHouseholdRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	householdID := req.HouseholdID
	if householdID == uuid.Nil {
		householdID = uuid.New()
	}

	if err := h.Users.AssignHousehold(r.Context(), identity.UserID, householdID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uuid.UUID{"household_id": householdID})
}

func setSessionCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
