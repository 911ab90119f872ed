package engine

// Turns strictly alternate between the two seats dealt at Start.

func seatIndex(seats [SeatCount]Seat, id PlayerID) int {
	for i, seat := range seats {
		if seat.ID == id && seat.Hand.Valid() {
			return i
		}
	}
	return -1
}

// otherSeat returns the id of the seat that is not id.
func otherSeat(seats [SeatCount]Seat, id PlayerID) PlayerID {
	if seats[0].ID == id {
		return seats[1].ID
	}
	return seats[0].ID
}

// Opponent returns the seat facing id in the current round.
func (s State) Opponent(id PlayerID) (Seat, bool) {
	i := seatIndex(s.Seats, id)
	if i < 0 {
		return Seat{}, false
	}
	return s.Seats[1-i], true
}

// Seated reports whether id was dealt into the current round.
func (s State) Seated(id PlayerID) bool {
	return seatIndex(s.Seats, id) >= 0
}
