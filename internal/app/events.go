package app

import "bigtwo/internal/domain"

// EventKind identifies emitted round events for transport dispatch.
type EventKind string

const (
	EventHandDealt    EventKind = "hand_dealt"
	EventRoundStarted EventKind = "round_started"
	EventCardsPlayed  EventKind = "cards_played"
	EventTurnPassed   EventKind = "turn_passed"
	EventRoundEnded   EventKind = "round_ended"
	EventRoundAborted EventKind = "round_aborted"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []int // seats; empty means broadcast
}

// Private reports whether the event is addressed to specific seats.
func (e Event) Private() bool {
	return len(e.Recipients) > 0
}

type HandDealtPayload struct {
	Seat int
	Hand domain.Cards
}

type RoundStartedPayload struct {
	FirstSeat int
	Counts    [domain.NumSeats]int
}

type CardsPlayedPayload struct {
	Seat      int
	Category  domain.Category
	Cards     domain.Cards
	Remaining int
	NextSeat  int
	// AutoPlayed is set when the play was made for the seat after its turn expired.
	AutoPlayed bool
}

type TurnPassedPayload struct {
	Seat       int
	NextSeat   int
	AutoPassed bool
}

type RoundEndedPayload struct {
	Winner int
	Counts [domain.NumSeats]int
	Deltas [domain.NumSeats]int64
}

type RoundAbortedPayload struct {
	Reason string
}
