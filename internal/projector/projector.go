// Package projector mirrors the server's session on the client. It turns
// inbound messages into exactly one view and user intents into outbound
// messages. It owns no dice and no authoritative claim.
package projector

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/liars-dice/internal/engine"
	"github.com/DoyleJ11/liars-dice/internal/wire"
)

var (
	ErrIntentNotAllowed = errors.New("intent not allowed now")
	ErrClaimOutOfRange  = errors.New("claim out of range")
	ErrClaimNotRaised   = errors.New("claim does not raise the current claim")
	ErrUnexpected       = errors.New("unexpected server message")
)

type Phase int

const (
	PhaseLobby Phase = iota
	PhaseMakeClaim
	PhaseRespondClaim
	PhaseWaiting
	PhaseReveal
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseMakeClaim:
		return "make-claim"
	case PhaseRespondClaim:
		return "respond-claim"
	case PhaseWaiting:
		return "waiting"
	case PhaseReveal:
		return "reveal"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Option func(*Projector)

// WithStrictRaise makes SubmitClaim refuse claims that do not raise the
// one on display. It should match the server's rule.
func WithStrictRaise(strict bool) Option { return func(p *Projector) { p.strict = strict } }

type Projector struct {
	name   string
	strict bool

	self      uint8
	selfKnown bool
	// the table seats two, so there is one other name at a time
	opponent string
	rival    string // opponent when the current round was dealt

	phase Phase
	hand  [wire.HandSize]uint8

	// FirstRoundSeen: set by DealDice, cleared by the round's first notice.
	// An active notice while it is set means nobody has claimed yet.
	firstRoundSeen bool
	last           wire.ClaimNotice
	haveLast       bool

	shown   engine.Claim // claim on display, zero before the first
	compose engine.Claim

	revealed bool
	reveal   ShowReveal

	pending bool // an intent went out; wait for the server before another
	done    bool
	version int
}

// New returns a projector for a player called name and the Join message
// that must be sent first.
func New(name string, opts ...Option) (*Projector, wire.Message) {
	p := &Projector{name: name, strict: true, phase: PhaseLobby}
	for _, opt := range opts {
		opt(p)
	}
	return p, wire.Join{Name: name}
}

// Receive applies one server message.
func (p *Projector) Receive(msg wire.Message) error {
	switch m := msg.(type) {
	case wire.Announce:
		if !p.selfKnown {
			p.self, p.selfKnown = m.Player, true
			p.changed()
		}
		if m.Name != p.opponent {
			p.opponent = m.Name
			p.changed()
		}
		// still announcing means the server set the last Start aside
		if p.phase == PhaseLobby && p.pending {
			p.pending = false
			p.changed()
		}
		return nil

	case wire.DealDice:
		p.hand = m.Dice
		if p.opponent != "" {
			p.rival = p.opponent
		}
		p.firstRoundSeen = true
		p.haveLast = false
		p.shown = engine.Claim{}
		p.revealed = false
		p.pending = false
		p.phase = PhaseWaiting
		p.changed()
		return nil

	case wire.ClaimNotice:
		if p.phase == PhaseLobby || p.phase == PhaseReveal {
			// stale notice from before a deal or after a reveal
			return nil
		}
		if p.haveLast && m == p.last {
			return nil
		}
		p.last, p.haveLast = m, true
		p.shown = engine.Claim{Count: m.Count, Face: m.Face}
		p.pending = false

		switch {
		case m.Role == wire.RoleWaiting:
			p.phase = PhaseWaiting
		case p.firstRoundSeen:
			p.phase = PhaseMakeClaim
			p.compose = engine.Claim{Count: wire.MinCount, Face: wire.MinFace}
		default:
			p.phase = PhaseRespondClaim
		}
		p.firstRoundSeen = false
		p.changed()
		return nil

	case wire.RevealResult:
		if p.revealed {
			return nil
		}
		p.revealed = true
		p.pending = false
		won := p.selfKnown && m.Winner == p.self
		p.reveal = ShowReveal{
			Won: won,
			Rows: []RevealRow{
				{Name: p.name, Dice: p.hand, Won: won},
				{Name: p.rivalName(), Dice: m.Dice, Won: !won},
			},
		}
		p.phase = PhaseReveal
		p.changed()
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrUnexpected, msg)
	}
}

// Handle applies one user intent and returns the messages to send.
func (p *Projector) Handle(in Intent) ([]wire.Message, error) {
	if p.done {
		return nil, ErrIntentNotAllowed
	}

	switch i := in.(type) {
	case Start:
		if (p.phase != PhaseLobby && p.phase != PhaseReveal) || p.pending {
			return nil, ErrIntentNotAllowed
		}
		if p.phase == PhaseReveal {
			p.phase = PhaseLobby
			// a departed opponent must not linger; rival still names the last one
			p.opponent = ""
		}
		p.pending = true
		p.changed()
		return []wire.Message{wire.Start{}}, nil

	case Adjust:
		if p.phase != PhaseMakeClaim || p.pending {
			return nil, ErrIntentNotAllowed
		}
		switch i.Axis {
		case AxisCount:
			p.compose.Count = clamp(int(p.compose.Count)+i.Delta, wire.MinCount, wire.MaxCount)
		case AxisFace:
			p.compose.Face = clamp(int(p.compose.Face)+i.Delta, wire.MinFace, wire.MaxFace)
		default:
			return nil, ErrIntentNotAllowed
		}
		p.changed()
		return nil, nil

	case SubmitClaim:
		if p.phase != PhaseMakeClaim || p.pending {
			return nil, ErrIntentNotAllowed
		}
		claim := engine.Claim{Count: i.Count, Face: i.Face}
		if !claim.Valid() {
			return nil, ErrClaimOutOfRange
		}
		if p.strict && !claim.Raises(p.shown) {
			return nil, ErrClaimNotRaised
		}
		p.pending = true
		p.changed()
		return []wire.Message{wire.MakeClaim{Count: claim.Count, Face: claim.Face}}, nil

	case Challenge:
		if p.phase != PhaseRespondClaim || p.pending {
			return nil, ErrIntentNotAllowed
		}
		p.pending = true
		p.changed()
		return []wire.Message{wire.ChallengeClaim{}}, nil

	case Continue:
		if p.phase != PhaseRespondClaim || p.pending {
			return nil, ErrIntentNotAllowed
		}
		p.phase = PhaseMakeClaim
		p.compose = p.shown
		p.changed()
		return nil, nil

	case Acknowledge:
		if p.phase != PhaseReveal {
			return nil, ErrIntentNotAllowed
		}
		p.done = true
		p.changed()
		return nil, nil

	default:
		return nil, ErrIntentNotAllowed
	}
}

// View returns what should be on screen now.
func (p *Projector) View() View {
	switch p.phase {
	case PhaseMakeClaim:
		return ShowMakeClaim{Count: p.compose.Count, Face: p.compose.Face, Current: p.shown, Hand: p.hand, Sent: p.pending}
	case PhaseRespondClaim:
		return ShowRespondClaim{Count: p.shown.Count, Face: p.shown.Face, Hand: p.hand, Sent: p.pending}
	case PhaseWaiting:
		return ShowWaiting{Current: p.shown, Hand: p.hand}
	case PhaseReveal:
		return p.reveal
	default:
		var roster []string
		if p.opponent != "" {
			roster = []string{p.opponent}
		}
		return ShowLobby{Self: p.name, Roster: roster, Sent: p.pending}
	}
}

func (p *Projector) Phase() Phase { return p.phase }

// Self reports the player id the server assigned, once announced.
func (p *Projector) Self() (uint8, bool) { return p.self, p.selfKnown }

// Done reports whether the player acknowledged the result.
func (p *Projector) Done() bool { return p.done }

// Version increases every time the view may have changed.
func (p *Projector) Version() int { return p.version }

func (p *Projector) changed() { p.version++ }

func (p *Projector) rivalName() string {
	if p.rival != "" {
		return p.rival
	}
	return "opponent"
}

func clamp(v, lo, hi int) uint8 {
	return uint8(max(lo, min(v, hi)))
}
