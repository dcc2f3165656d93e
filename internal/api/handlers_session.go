// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/cinebrain/internal/models"
)

// sessionView is the body of the session endpoints.
type sessionView struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
}

func (router *Router) sessionView() sessionView {
	return sessionView{
		Authenticated: router.deps.Session.Authenticated(),
		User:          router.deps.Session.User(),
	}
}

// GetSession returns the signed-in user.
func (router *Router) GetSession(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, router.sessionView(), time.Now(), models.Metadata{})
}

// Login stores a token issued elsewhere together with its user. Session
// observers clear the cache and reset the collections.
func (router *Router) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	user := req.User
	if err := router.deps.Session.Login(req.Token, &user); err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, router.sessionView(), start, models.Metadata{})
}

// Logout clears the session.
func (router *Router) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := router.deps.Session.Logout(); err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, router.sessionView(), start, models.Metadata{})
}
