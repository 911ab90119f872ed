package engine

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/liars-dice/internal/wire"
)

var ErrWrongTurn = errors.New("invalid turn")
var ErrWrongPhase = errors.New("command not allowed in this phase")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrDuplicatePlayer = errors.New("player id already connected")
var ErrAlreadyJoined = errors.New("player already joined")
var ErrNotJoined = errors.New("player is not seated")
var ErrTableFull = errors.New("table is full")
var ErrNameTooLong = errors.New("name too long")
var ErrClaimOutOfRange = errors.New("claim out of range")
var ErrClaimNotRaised = errors.New("claim does not raise the current claim")
var ErrNoClaim = errors.New("no claim to challenge")
var ErrMissingHand = errors.New("missing hand for seated player")
var ErrInvalidHand = errors.New("hand out of range")

// ErrNotReady rejects a Start that came too early. Unlike the other errors
// it is not the peer's fault and must not cost it the connection.
var ErrNotReady = errors.New("table not ready to start")

// ErrInProgress rejects a Start that lost the race to another Start. The
// round it asked for is already under way, so it is ignored like ErrNotReady.
var ErrInProgress = errors.New("round already in progress")

// Ignorable reports whether err rejects a command without the peer having
// broken the protocol.
func Ignorable(err error) bool {
	return errors.Is(err, ErrNotReady) || errors.Is(err, ErrInProgress)
}

const (
	SeatCount = 2
	HandSize  = wire.HandSize
)

type PlayerID uint8

// Hand is one player's dice, each in [1,6].
type Hand [HandSize]uint8

type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseRolling Phase = "rolling"
	PhasePlaying Phase = "playing"
	PhaseReveal  Phase = "reveal"
)

// Claim asserts that at least Count dice across both hands show Face. The
// zero Claim means no claim has been made this round.
type Claim struct {
	Count uint8
	Face  uint8
}

func (c Claim) IsZero() bool { return c == Claim{} }

func (c Claim) Valid() bool {
	return c.Count >= wire.MinCount && c.Count <= wire.MaxCount &&
		c.Face >= wire.MinFace && c.Face <= wire.MaxFace
}

// Raises reports whether c beats prev: more dice, or as many dice of a
// higher face. Anything raises the zero claim.
func (c Claim) Raises(prev Claim) bool {
	if prev.IsZero() {
		return true
	}
	return c.Count > prev.Count || (c.Count == prev.Count && c.Face > prev.Face)
}

type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomeClaimHeld   Outcome = "claim_held"
	OutcomeClaimFailed Outcome = "claim_failed"
	OutcomeForfeit     Outcome = "forfeit"
)

// Player is a connected peer. It joins the roster once it sends its name.
type Player struct {
	ID        PlayerID
	Name      string
	Joined    bool
	Announced bool // has been sent at least one waiting-room broadcast
}

// Seat is a player dealt into the current round.
type Seat struct {
	ID   PlayerID
	Name string
	Hand Hand
}

type Rules struct {
	StrictRaise bool
}

type State struct {
	Phase   Phase
	Players []Player   // connected, in connect order
	Roster  []PlayerID // joined, in join order

	Seats      [SeatCount]Seat // fixed from Start until the next Start
	Claim      Claim
	Claimant   PlayerID
	Turn       PlayerID
	FirstRound bool

	Winner     PlayerID
	Challenger PlayerID
	Outcome    Outcome

	Round int
	Rules Rules
}

type CommandType string

const (
	CmdConnect   CommandType = "Connect"
	CmdJoin      CommandType = "Join"
	CmdStart     CommandType = "Start"
	CmdMakeClaim CommandType = "MakeClaim"
	CmdChallenge CommandType = "Challenge"
	CmdLeave     CommandType = "Leave"
)

/*
	CmdConnect   -> EvtPlayerConnected
	CmdJoin      -> EvtPlayerJoined
	CmdStart     -> EvtRoundStarted, or EvtTableReset from reveal with a player missing
	CmdMakeClaim -> EvtClaimMade -> EvtTurnAdvanced
	CmdChallenge -> EvtClaimChallenged -> EvtRoundResolved
	CmdLeave     -> EvtPlayerLeft (-> EvtRoundCancelled before the deal went out)
	                              (-> EvtRoundForfeited while playing) (-> EvtTableReset when empty)
*/

// Command is one intent applied to the session. Hands is only read by
// CmdStart and must hold a hand for every roster player.
type Command struct {
	Type   CommandType
	Player PlayerID
	Name   string
	Claim  Claim
	Hands  map[PlayerID]Hand
}

type EventType string

const (
	EvtPlayerConnected EventType = "PlayerConnected"
	EvtPlayerJoined    EventType = "PlayerJoined"
	EvtPlayerLeft      EventType = "PlayerLeft"
	EvtRoundStarted    EventType = "RoundStarted"
	EvtDealt           EventType = "Dealt"
	EvtClaimMade       EventType = "ClaimMade"
	EvtTurnAdvanced    EventType = "TurnAdvanced"
	EvtClaimChallenged EventType = "ClaimChallenged"
	EvtRoundResolved   EventType = "RoundResolved"
	EvtRoundForfeited  EventType = "RoundForfeited"
	EvtRoundCancelled  EventType = "RoundCancelled"
	EvtTableReset      EventType = "TableReset"
)

type Event struct {
	Type    EventType
	Player  PlayerID
	Claim   Claim
	Winner  PlayerID
	Outcome Outcome
}

// Apply validates cmd against s and returns the resulting events and state.
// s itself is never modified; on error the returned state is s.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdConnect:
		if _, ok := s.Player(cmd.Player); ok {
			return nil, s, ErrDuplicatePlayer
		}
		newState := s.clone()
		newState.Players = append(newState.Players, Player{ID: cmd.Player})
		return []Event{{Type: EvtPlayerConnected, Player: cmd.Player}}, newState, nil

	case CmdJoin:
		p, ok := s.Player(cmd.Player)
		if !ok {
			return nil, s, ErrUnknownPlayer
		}
		if p.Joined {
			return nil, s, ErrAlreadyJoined
		}
		// roster is append-only outside the waiting room
		if s.Phase != PhaseWaiting {
			return nil, s, ErrWrongPhase
		}
		if len(s.Roster) >= SeatCount {
			return nil, s, ErrTableFull
		}
		if len(cmd.Name) > wire.MaxNameLen {
			return nil, s, ErrNameTooLong
		}

		newState := s.clone()
		i := newState.playerIndex(cmd.Player)
		newState.Players[i].Name = cmd.Name
		newState.Players[i].Joined = true
		newState.Roster = append(newState.Roster, cmd.Player)
		return []Event{{Type: EvtPlayerJoined, Player: cmd.Player}}, newState, nil

	case CmdStart:
		p, ok := s.Player(cmd.Player)
		if !ok {
			return nil, s, ErrUnknownPlayer
		}
		if !p.Joined {
			return nil, s, ErrNotJoined
		}
		if s.Phase == PhaseRolling || s.Phase == PhasePlaying {
			return nil, s, ErrInProgress
		}

		// play again with nobody to play against: reopen the waiting room
		if s.Phase == PhaseReveal && len(s.Roster) < SeatCount {
			newState := s.clone()
			newState.resetRound()
			newState.Phase = PhaseWaiting
			return []Event{{Type: EvtTableReset, Player: cmd.Player}}, newState, nil
		}

		if len(s.Roster) < SeatCount {
			return nil, s, ErrNotReady
		}
		for _, id := range s.Roster {
			if rp, _ := s.Player(id); !rp.Announced {
				return nil, s, ErrNotReady
			}
		}

		newState := s.clone()
		newState.resetRound()
		for i, id := range s.Roster {
			hand, ok := cmd.Hands[id]
			if !ok {
				return nil, s, ErrMissingHand
			}
			if !hand.Valid() {
				return nil, s, ErrInvalidHand
			}
			rp, _ := s.Player(id)
			newState.Seats[i] = Seat{ID: id, Name: rp.Name, Hand: hand}
		}
		newState.FirstRound = true
		newState.Turn = newState.Seats[0].ID
		newState.Round++
		newState.Phase = PhaseRolling

		events := []Event{{Type: EvtRoundStarted, Player: cmd.Player}}
		for _, seat := range newState.Seats {
			events = append(events, Event{Type: EvtDealt, Player: seat.ID})
		}
		return events, newState, nil

	case CmdMakeClaim:
		if s.Phase != PhasePlaying {
			return nil, s, ErrWrongPhase
		}
		if seatIndex(s.Seats, cmd.Player) < 0 {
			return nil, s, ErrNotJoined
		}
		if cmd.Player != s.Turn {
			return nil, s, ErrWrongTurn
		}
		if !cmd.Claim.Valid() {
			return nil, s, ErrClaimOutOfRange
		}
		if s.Rules.StrictRaise && !cmd.Claim.Raises(s.Claim) {
			return nil, s, ErrClaimNotRaised
		}

		newState := s.clone()
		newState.Claim = cmd.Claim
		newState.Claimant = cmd.Player
		newState.Turn = otherSeat(s.Seats, cmd.Player)
		newState.FirstRound = false

		events := []Event{
			{Type: EvtClaimMade, Player: cmd.Player, Claim: cmd.Claim},
			{Type: EvtTurnAdvanced, Player: newState.Turn},
		}
		return events, newState, nil

	case CmdChallenge:
		if s.Phase != PhasePlaying {
			return nil, s, ErrWrongPhase
		}
		if seatIndex(s.Seats, cmd.Player) < 0 {
			return nil, s, ErrNotJoined
		}
		if s.Claim.IsZero() {
			return nil, s, ErrNoClaim
		}

		winner, held := Resolve(s.Seats, s.Claim, cmd.Player)
		outcome := OutcomeClaimFailed
		if held {
			outcome = OutcomeClaimHeld
		}

		newState := s.clone()
		newState.Phase = PhaseReveal
		newState.Winner = winner
		newState.Challenger = cmd.Player
		newState.Outcome = outcome

		events := []Event{
			{Type: EvtClaimChallenged, Player: cmd.Player, Claim: s.Claim},
			{Type: EvtRoundResolved, Claim: s.Claim, Winner: winner, Outcome: outcome},
		}
		return events, newState, nil

	case CmdLeave:
		i := s.playerIndex(cmd.Player)
		if i < 0 {
			return nil, s, ErrUnknownPlayer
		}

		newState := s.clone()
		newState.Players = slices.Delete(newState.Players, i, i+1)
		if j := slices.Index(newState.Roster, cmd.Player); j >= 0 {
			newState.Roster = slices.Delete(newState.Roster, j, j+1)
		}
		events := []Event{{Type: EvtPlayerLeft, Player: cmd.Player}}

		seated := seatIndex(s.Seats, cmd.Player) >= 0
		switch {
		case seated && s.Phase == PhaseRolling:
			// nobody has seen a hand yet; there is no round to lose
			newState.resetRound()
			newState.Phase = PhaseWaiting
			events = append(events, Event{Type: EvtRoundCancelled, Player: cmd.Player})

		case seated && s.Phase == PhasePlaying:
			winner := otherSeat(s.Seats, cmd.Player)
			newState.Phase = PhaseReveal
			newState.Winner = winner
			newState.Challenger = cmd.Player
			newState.Outcome = OutcomeForfeit
			events = append(events, Event{Type: EvtRoundForfeited, Player: cmd.Player, Claim: s.Claim, Winner: winner, Outcome: OutcomeForfeit})
		}

		if len(newState.Players) == 0 && newState.Phase != PhaseWaiting {
			newState.resetRound()
			newState.Phase = PhaseWaiting
			events = append(events, Event{Type: EvtTableReset})
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// Advance applies the transitions that happen on a tick by themselves.
func Advance(s State) ([]Event, State) {
	if s.Phase != PhaseRolling {
		return nil, s
	}
	newState := s.clone()
	newState.Phase = PhasePlaying
	return []Event{{Type: EvtTurnAdvanced, Player: newState.Turn}}, newState
}

// MarkAnnounced records that a waiting-room broadcast went out. Joined
// players that had someone to be told about now know their own id.
func MarkAnnounced(s State) State {
	if s.Phase != PhaseWaiting || len(s.Roster) < 2 {
		return s
	}
	newState := s.clone()
	for i := range newState.Players {
		if newState.Players[i].Joined {
			newState.Players[i].Announced = true
		}
	}
	return newState
}

// CountFace counts dice showing face across hands.
func CountFace(face uint8, hands ...Hand) int {
	n := 0
	for _, h := range hands {
		for _, d := range h {
			if d == face {
				n++
			}
		}
	}
	return n
}

// ClaimHolds reports whether at least claim.Count dice show claim.Face.
func ClaimHolds(claim Claim, hands ...Hand) bool {
	return CountFace(claim.Face, hands...) >= int(claim.Count)
}

// Resolve settles a challenge over the dealt hands. A claim that holds is
// won by the seat that did not challenge; otherwise the challenger wins.
func Resolve(seats [SeatCount]Seat, claim Claim, challenger PlayerID) (winner PlayerID, held bool) {
	if ClaimHolds(claim, seats[0].Hand, seats[1].Hand) {
		return otherSeat(seats, challenger), true
	}
	return challenger, false
}

func (h Hand) Valid() bool {
	for _, d := range h {
		if d < wire.MinFace || d > wire.MaxFace {
			return false
		}
	}
	return true
}

func (s State) clone() State {
	s.Players = slices.Clone(s.Players)
	s.Roster = slices.Clone(s.Roster)
	return s
}

func (s *State) resetRound() {
	s.Seats = [SeatCount]Seat{}
	s.Claim = Claim{}
	s.Claimant = 0
	s.Turn = 0
	s.FirstRound = false
	s.Winner = 0
	s.Challenger = 0
	s.Outcome = OutcomeNone
}
