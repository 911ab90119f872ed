package types

// Snapshot is the public view of the table served at /status. It never
// carries dice.
//
//	version: number
//	phase: "waiting" | "rolling" | "playing" | "reveal"
//	round: number
//	players: { id, name, joined }[]
//	turn: number            // playing only
//	claim: { count, face }  // once a claim was made
//	winner: number          // reveal only
//	outcome: "claim_held" | "claim_failed" | "forfeit"
type Snapshot struct {
	Version int      `json:"version"`
	Phase   string   `json:"phase"`
	Round   int      `json:"round"`
	Clients int      `json:"clients"`
	Players []Player `json:"players"`
	Turn    *uint8   `json:"turn,omitempty"`
	Claim   *Claim   `json:"claim,omitempty"`
	Winner  *uint8   `json:"winner,omitempty"`
	Outcome string   `json:"outcome,omitempty"`
}

type Player struct {
	ID     uint8  `json:"id"`
	Name   string `json:"name"`
	Joined bool   `json:"joined"`
}

type Claim struct {
	Count uint8 `json:"count"`
	Face  uint8 `json:"face"`
}
