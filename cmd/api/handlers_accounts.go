package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/safar/go-storefront/internal/store"
)

func (a *api) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := store.CreateUser(r.Context(), a.db, req.Email, req.Name, req.Password)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := store.AuthenticateUser(r.Context(), a.db, req.Email, req.Password)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if err := a.sessions.PutUserID(r.Context(), sessionID(r), user.ID); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.ClearUserID(r.Context(), sessionID(r)); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (a *api) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := a.currentUserID(r)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if userID == nil {
		respondError(w, http.StatusUnauthorized, "login required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	result, err := store.ListOrdersCursor(r.Context(), a.db, *userID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
