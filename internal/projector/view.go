package projector

import (
	"github.com/DoyleJ11/liars-dice/internal/engine"
	"github.com/DoyleJ11/liars-dice/internal/wire"
)

// View is exactly one of the Show* types.
type View interface{ isView() }

type ShowLobby struct {
	Self   string
	Roster []string // other players
	Sent   bool     // Start went out, nothing back yet
}

// ShowMakeClaim is the claim being composed. Current is the claim it has
// to beat, zero when there is none yet.
type ShowMakeClaim struct {
	Count   uint8
	Face    uint8
	Current engine.Claim
	Hand    [wire.HandSize]uint8
	Sent    bool
}

type ShowRespondClaim struct {
	Count uint8
	Face  uint8
	Hand  [wire.HandSize]uint8
	Sent  bool
}

type ShowWaiting struct {
	Current engine.Claim
	Hand    [wire.HandSize]uint8
}

type ShowReveal struct {
	Rows []RevealRow
	Won  bool
}

type RevealRow struct {
	Name string
	Dice [wire.HandSize]uint8
	Won  bool
}

func (ShowLobby) isView()        {}
func (ShowMakeClaim) isView()    {}
func (ShowRespondClaim) isView() {}
func (ShowWaiting) isView()      {}
func (ShowReveal) isView()       {}

// Intent is one discrete user action.
type Intent interface{ isIntent() }

type Axis int

const (
	AxisCount Axis = iota
	AxisFace
)

type Start struct{}

type Adjust struct {
	Axis  Axis
	Delta int
}

type SubmitClaim struct {
	Count uint8
	Face  uint8
}

type Challenge struct{}

type Continue struct{}

type Acknowledge struct{}

func (Start) isIntent()       {}
func (Adjust) isIntent()      {}
func (SubmitClaim) isIntent() {}
func (Challenge) isIntent()   {}
func (Continue) isIntent()    {}
func (Acknowledge) isIntent() {}
