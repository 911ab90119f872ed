package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/liars-dice/internal/engine"
	"github.com/DoyleJ11/liars-dice/internal/lobby"
	"github.com/DoyleJ11/liars-dice/pkg/types"
)

// StateSource is anything that can report the lobby's view.
type StateSource interface {
	State(ctx context.Context) (lobby.View, error)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func Status(src StateSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		v, err := src.State(ctx)
		if err != nil {
			http.Error(w, "lobby unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Snapshot(v))
	}
}

// Snapshot converts a lobby view into the public status document.
func Snapshot(v lobby.View) types.Snapshot {
	s := v.State
	snap := types.Snapshot{
		Version: v.Version,
		Phase:   string(s.Phase),
		Round:   s.Round,
		Clients: v.NumClients,
		Players: make([]types.Player, 0, len(s.Players)),
		Outcome: string(s.Outcome),
	}
	for _, p := range s.Players {
		snap.Players = append(snap.Players, types.Player{ID: uint8(p.ID), Name: p.Name, Joined: p.Joined})
	}
	if s.Phase == engine.PhasePlaying {
		turn := uint8(s.Turn)
		snap.Turn = &turn
	}
	if !s.Claim.IsZero() {
		snap.Claim = &types.Claim{Count: s.Claim.Count, Face: s.Claim.Face}
	}
	if s.Phase == engine.PhaseReveal {
		winner := uint8(s.Winner)
		snap.Winner = &winner
	}
	return snap
}
