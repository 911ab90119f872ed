package ledger

import (
	"testing"
	"time"

	"github.com/DoyleJ11/liars-dice/internal/engine"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func resolvedState() engine.State {
	s := engine.NewEmptyState(engine.Rules{})
	s.Phase = engine.PhaseReveal
	s.Round = 3
	s.Seats = [engine.SeatCount]engine.Seat{
		{ID: 4, Name: "Alice", Hand: engine.Hand{4, 4, 1, 2, 3, 6}},
		{ID: 7, Name: "Bob", Hand: engine.Hand{4, 5, 5, 6, 1, 1}},
	}
	s.Claim = engine.Claim{Count: 3, Face: 4}
	s.Claimant = 4
	s.Challenger = 7
	s.Winner = 4
	s.Outcome = engine.OutcomeClaimHeld
	return s
}

func TestFromState(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	r := FromState(resolvedState(), 42, at)

	require.Equal(t, Round{
		Round:       3,
		Seed:        42,
		Player0:     "Alice",
		Player1:     "Bob",
		Hand0:       "441236",
		Hand1:       "455611",
		ClaimCount:  3,
		ClaimFace:   4,
		Claimant:    "Alice",
		Challenger:  "Bob",
		Winner:      "Alice",
		Outcome:     "claim_held",
		CompletedAt: at.UTC(),
	}, r)
}

func TestStore_RecordNeverBlocks(t *testing.T) {
	s := NewStore(nil, zap.NewNop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(s.queue)+10; i++ {
			s.Record(Round{Round: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}
	require.Len(t, s.queue, cap(s.queue))
}
