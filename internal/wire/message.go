// Package wire converts between raw protocol bytes and typed messages.
//
// Every message starts with a one byte tag. Payloads are either fixed size
// for the tag or, for names, prefixed with a 3-byte big-endian length.
// Tags 'c' and 'r' are reused in both directions with different payloads,
// so decoding is always done for a known direction.
package wire

const (
	TagJoin     byte = 'j'
	TagStart    byte = 's'
	TagClaim    byte = 'c'
	TagReveal   byte = 'r'
	TagAnnounce byte = 'n'
	TagDeal     byte = 'd'
)

const (
	HandSize   = 6
	MinFace    = 1
	MaxFace    = 6
	MinCount   = 1
	MaxCount   = 12
	MaxNameLen = 1<<24 - 1
)

// Role tells a ClaimNotice recipient whether it must act.
type Role byte

const (
	RoleActive  Role = 'a'
	RoleWaiting Role = 'w'
)

func (r Role) String() string {
	switch r {
	case RoleActive:
		return "active"
	case RoleWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Message is one of the eight protocol messages.
type Message interface {
	Tag() byte
	isMessage()
}

// Client -> server

type Join struct {
	Name string
}

type Start struct{}

type MakeClaim struct {
	Count uint8
	Face  uint8
}

type ChallengeClaim struct{}

// Server -> client

// Announce names another known player. Player is the recipient's own id.
type Announce struct {
	Player uint8
	Name   string
}

// DealDice carries the recipient's own hand.
type DealDice struct {
	Dice [HandSize]uint8
}

// ClaimNotice carries the current claim. Count and Face are both zero
// until the first claim of a round is made.
type ClaimNotice struct {
	Role  Role
	Count uint8
	Face  uint8
}

// RevealResult carries the winner and the recipient's opponent's hand.
type RevealResult struct {
	Winner uint8
	Dice   [HandSize]uint8
}

func (Join) Tag() byte           { return TagJoin }
func (Start) Tag() byte          { return TagStart }
func (MakeClaim) Tag() byte      { return TagClaim }
func (ChallengeClaim) Tag() byte { return TagReveal }
func (Announce) Tag() byte       { return TagAnnounce }
func (DealDice) Tag() byte       { return TagDeal }
func (ClaimNotice) Tag() byte    { return TagClaim }
func (RevealResult) Tag() byte   { return TagReveal }

func (Join) isMessage()           {}
func (Start) isMessage()          {}
func (MakeClaim) isMessage()      {}
func (ChallengeClaim) isMessage() {}
func (Announce) isMessage()       {}
func (DealDice) isMessage()       {}
func (ClaimNotice) isMessage()    {}
func (RevealResult) isMessage()   {}
