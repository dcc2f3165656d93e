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

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status        string             `json:"status"`
	Phase         models.LoaderPhase `json:"phase,omitempty"`
	Breaker       string             `json:"breaker,omitempty"`
	Authenticated bool               `json:"authenticated"`
	Clients       int                `json:"websocket_clients"`
	Uptime        float64            `json:"uptime_seconds"`
}

// Health reports whether the daemon can reach its backend. An open circuit
// breaker degrades the status but still answers 200, since cached rows
// keep being served.
func (router *Router) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	health := HealthStatus{
		Status: "healthy",
		Uptime: time.Since(router.startTime).Seconds(),
	}

	if router.deps.Rows != nil {
		health.Phase = router.deps.Rows.Phase()
	}
	if router.deps.Breaker != nil {
		health.Breaker = router.deps.Breaker.BreakerState()
		if health.Breaker == "open" {
			health.Status = "degraded"
		}
	}
	if router.deps.Session != nil {
		health.Authenticated = router.deps.Session.Authenticated()
	}
	if router.deps.Clients != nil {
		health.Clients = router.deps.Clients.GetClientCount()
	}

	respondData(w, http.StatusOK, health, start, models.Metadata{Phase: string(health.Phase)})
}
