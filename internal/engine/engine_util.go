package engine

func NewEmptyState(rules Rules) State {
	return State{
		Phase:   PhaseWaiting,
		Players: []Player{},
		Roster:  []PlayerID{},
		Rules:   rules,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Player looks up a connected player.
func (s State) Player(id PlayerID) (Player, bool) {
	if i := s.playerIndex(id); i >= 0 {
		return s.Players[i], true
	}
	return Player{}, false
}

// Connected reports whether id still has a live connection.
func (s State) Connected(id PlayerID) bool {
	return s.playerIndex(id) >= 0
}

// RosterNames returns the joined players' names in join order.
func (s State) RosterNames() []string {
	names := make([]string, 0, len(s.Roster))
	for _, id := range s.Roster {
		p, _ := s.Player(id)
		names = append(names, p.Name)
	}
	return names
}

func (s State) playerIndex(id PlayerID) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
