// Package fleet exposes the operator HTTP API: registry snapshots, mission
// schedule state and fleet KPIs.
package fleet

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	corefleet "github.com/kilianp07/groundlink/core/fleet"
	"github.com/kilianp07/groundlink/core/mission"
	"github.com/kilianp07/groundlink/core/model"
)

// MissionState is the schedule snapshot served to operators.
type MissionState struct {
	Running      bool             `json:"running"`
	Blocked      bool             `json:"blocked"`
	CurrentIndex int              `json:"current_index"`
	Statuses     []mission.Status `json:"statuses"`
}

// Provider serves consistent snapshots of coordination state. Implementations
// marshal the request onto the run loop, so every method takes a context.
type Provider interface {
	FleetSnapshot(ctx context.Context) ([]model.Vehicle, error)
	MissionSnapshot(ctx context.Context) (MissionState, error)
	KPI(ctx context.Context) (corefleet.KPI, error)
	// StartSchedule starts the mission at the current index.
	StartSchedule(ctx context.Context) error
}

// NewHandler builds the API router.
func NewHandler(p Provider) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/fleet", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := reqContext(req)
		defer cancel()
		vehicles, err := p.FleetSnapshot(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, vehicles)
	})
	r.Get("/api/missions", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := reqContext(req)
		defer cancel()
		state, err := p.MissionSnapshot(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, state)
	})
	r.Post("/api/missions/start", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := reqContext(req)
		defer cancel()
		if err := p.StartSchedule(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/api/fleet/kpis", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := reqContext(req)
		defer cancel()
		kpi, err := p.KPI(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, kpi)
	})
	return r
}

func reqContext(req *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(req.Context(), 2*time.Second)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
