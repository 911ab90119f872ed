package engine

import "github.com/DoyleJ11/liars-dice/internal/wire"

// Delivery is one message addressed to one player.
type Delivery struct {
	To  PlayerID
	Msg wire.Message
}

// Broadcast returns what every connection must be sent this tick. Hands
// only ever leave the server in DealDice to their owner and in
// RevealResult once the round is over.
func Broadcast(s State) []Delivery {
	var out []Delivery

	switch s.Phase {
	case PhaseWaiting:
		for _, p := range s.Players {
			for _, id := range s.Roster {
				if id == p.ID {
					continue
				}
				other, _ := s.Player(id)
				out = append(out, Delivery{To: p.ID, Msg: wire.Announce{Player: uint8(p.ID), Name: other.Name}})
			}
		}

	case PhaseRolling:
		for _, seat := range s.Seats {
			if !s.Connected(seat.ID) {
				continue
			}
			out = append(out, Delivery{To: seat.ID, Msg: wire.DealDice{Dice: seat.Hand}})
		}

	case PhasePlaying:
		for _, seat := range s.Seats {
			if !s.Connected(seat.ID) {
				continue
			}
			role := wire.RoleWaiting
			if seat.ID == s.Turn {
				role = wire.RoleActive
			}
			out = append(out, Delivery{To: seat.ID, Msg: wire.ClaimNotice{Role: role, Count: s.Claim.Count, Face: s.Claim.Face}})
		}

	case PhaseReveal:
		for _, seat := range s.Seats {
			if !s.Connected(seat.ID) {
				continue
			}
			opp, _ := s.Opponent(seat.ID)
			out = append(out, Delivery{To: seat.ID, Msg: wire.RevealResult{Winner: uint8(s.Winner), Dice: opp.Hand}})
		}
	}

	return out
}
