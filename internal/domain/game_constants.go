package domain

const (
	// NumSeats is the fixed number of seats at a Big Two table.
	NumSeats = 4
	// HandSize is the number of cards dealt to each seat.
	HandSize = 13
	// DeckSize is the size of the full deck.
	DeckSize = NumSeats * HandSize
)

// FirstMoveCard must be held by the seat that leads a round and must be part of its first play.
var FirstMoveCard = Card{Suit: SuitDiamond, Rank: RankThree}

// NextSeat returns the seat after seat, wrapping around the table.
func NextSeat(seat int) int {
	return (seat + 1) % NumSeats
}

// ValidSeat reports whether seat addresses one of the four seats.
func ValidSeat(seat int) bool {
	return seat >= 0 && seat < NumSeats
}
