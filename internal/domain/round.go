package domain

import "fmt"

// Move is a proposal from a seat. Empty Cards means pass.
type Move struct {
	Seat  int
	Cards Cards
}

// IsPass reports whether the move is a pass.
func (m Move) IsPass() bool {
	return len(m.Cards) == 0
}

// OutcomeKind classifies an accepted proposal.
type OutcomeKind string

const (
	OutcomeAccepted  OutcomeKind = "accepted"
	OutcomePassed    OutcomeKind = "passed"
	OutcomeRoundOver OutcomeKind = "round_over"
)

// Outcome describes the effect of an accepted proposal.
type Outcome struct {
	Kind        OutcomeKind
	Seat        int
	Combination Combination // zero for a pass
	NextSeat    int         // -1 once the round is over
	Winner      int         // -1 unless Kind is OutcomeRoundOver
}

// Round is the turn state machine for one deal. It is not safe for concurrent
// use; the session layer serializes proposals.
type Round struct {
	phase   Phase
	hands   [NumSeats]Cards
	history []Combination
	current int
	winner  int
	moves   int
}

// NewRound returns an idle round waiting for a deal.
func NewRound() *Round {
	return &Round{phase: PhaseIdle, current: -1, winner: -1}
}

// Start resets the round from a deal and returns the seat that must lead.
func (r *Round) Start(d Deal) (int, error) {
	if !ValidSeat(d.FirstSeat) {
		return -1, fmt.Errorf("deal has no first-move seat")
	}
	var all Cards
	for seat := range d.Hands {
		if d.Hands[seat].Contains(FirstMoveCard) != (seat == d.FirstSeat) {
			return -1, fmt.Errorf("deal first seat %d does not hold %v", d.FirstSeat, FirstMoveCard)
		}
		for _, c := range d.Hands[seat] {
			if !c.Valid() {
				return -1, fmt.Errorf("deal has invalid card %v at seat %d", c, seat)
			}
		}
		all = append(all, d.Hands[seat]...)
	}
	if all.HasDuplicates() {
		return -1, fmt.Errorf("deal hands share cards")
	}

	for seat := range d.Hands {
		r.hands[seat] = d.Hands[seat].Sorted()
	}
	r.history = nil
	r.current = d.FirstSeat
	r.winner = -1
	r.moves = 0
	r.phase = PhaseAwaitingFirstMove
	return r.current, nil
}

// Abort clears every hand and returns the round to idle.
func (r *Round) Abort() {
	*r = *NewRound()
}

// Propose dispatches to Play or Pass.
func (r *Round) Propose(m Move) (Outcome, error) {
	if m.IsPass() {
		return r.Pass(m.Seat)
	}
	return r.Play(m.Seat, m.Cards)
}

// Play proposes cards from seat's hand.
func (r *Round) Play(seat int, cards Cards) (Outcome, error) {
	if err := r.checkTurn(seat); err != nil {
		return Outcome{}, err
	}
	if len(cards) == 0 {
		return Outcome{}, fmt.Errorf("%w: no cards selected", ErrMalformedSelection)
	}
	if cards.HasDuplicates() {
		return Outcome{}, fmt.Errorf("%w: duplicate cards %v", ErrMalformedSelection, cards)
	}
	if !r.hands[seat].ContainsAll(cards) {
		return Outcome{}, fmt.Errorf("%w: seat %d does not hold %v", ErrMalformedSelection, seat, cards)
	}

	combo, err := Classify(cards, seat)
	if err != nil {
		return Outcome{}, err
	}

	if r.phase == PhaseAwaitingFirstMove && !combo.Contains(FirstMoveCard) {
		return Outcome{}, ErrMissingFirstMoveCard
	}
	if last, ok := r.LastPlay(); ok && last.Owner() != seat {
		if combo.Size() != last.Size() {
			return Outcome{}, fmt.Errorf("%w: %d cards against %d", ErrCardinalityMismatch, combo.Size(), last.Size())
		}
		if !Beats(combo, last) {
			return Outcome{}, fmt.Errorf("%w: %v against %v", ErrDoesNotBeat, combo, last)
		}
	}

	r.hands[seat] = RemoveCards(r.hands[seat], cards)
	r.history = append(r.history, combo)
	r.moves++

	if len(r.hands[seat]) == 0 {
		r.phase = PhaseRoundOver
		r.winner = seat
		r.current = -1
		return Outcome{Kind: OutcomeRoundOver, Seat: seat, Combination: combo, NextSeat: -1, Winner: seat}, nil
	}

	r.phase = PhaseAwaitingMove
	r.advance()
	return Outcome{Kind: OutcomeAccepted, Seat: seat, Combination: combo, NextSeat: r.current, Winner: -1}, nil
}

// Pass gives up seat's turn. It is illegal on the first move and when every
// other seat has passed since seat's own last play.
func (r *Round) Pass(seat int) (Outcome, error) {
	if err := r.checkTurn(seat); err != nil {
		return Outcome{}, err
	}
	if r.phase == PhaseAwaitingFirstMove {
		return Outcome{}, fmt.Errorf("%w: the first move cannot be a pass", ErrIllegalPass)
	}
	last, ok := r.LastPlay()
	if !ok {
		return Outcome{}, fmt.Errorf("%w: nothing to pass on", ErrIllegalPass)
	}
	if last.Owner() == seat {
		return Outcome{}, fmt.Errorf("%w: seat %d holds the lead", ErrIllegalPass, seat)
	}

	r.moves++
	r.advance()
	return Outcome{Kind: OutcomePassed, Seat: seat, NextSeat: r.current, Winner: -1}, nil
}

// CanPass reports whether the current seat may pass.
func (r *Round) CanPass() bool {
	if r.phase != PhaseAwaitingMove {
		return false
	}
	last, ok := r.LastPlay()
	return ok && last.Owner() != r.current
}

// advance is the only place turn order changes.
func (r *Round) advance() {
	r.current = NextSeat(r.current)
}

func (r *Round) checkTurn(seat int) error {
	if r.phase != PhaseAwaitingFirstMove && r.phase != PhaseAwaitingMove {
		return fmt.Errorf("%w: phase %s", ErrRoundNotActive, r.phase)
	}
	if !ValidSeat(seat) {
		return fmt.Errorf("%w: seat %d out of range", ErrMalformedSelection, seat)
	}
	if seat != r.current {
		return fmt.Errorf("%w: seat %d, current seat %d", ErrOutOfTurn, seat, r.current)
	}
	return nil
}

// SelectByIndex maps indices into seat's sorted hand to cards.
func (r *Round) SelectByIndex(seat int, indices []int) (Cards, error) {
	if !ValidSeat(seat) {
		return nil, fmt.Errorf("%w: seat %d out of range", ErrMalformedSelection, seat)
	}
	hand := r.hands[seat]
	seen := make(map[int]struct{}, len(indices))
	out := make(Cards, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(hand) {
			return nil, fmt.Errorf("%w: index %d outside hand of %d", ErrMalformedSelection, i, len(hand))
		}
		if _, dup := seen[i]; dup {
			return nil, fmt.Errorf("%w: index %d selected twice", ErrMalformedSelection, i)
		}
		seen[i] = struct{}{}
		out = append(out, hand[i])
	}
	return out, nil
}

func (r *Round) Phase() Phase { return r.phase }

// CurrentSeat is the seat expected to move, or -1 when the round is not active.
func (r *Round) CurrentSeat() int { return r.current }

// Winner is the seat that emptied its hand, or -1.
func (r *Round) Winner() int { return r.winner }

// MoveCount counts accepted plays and passes since the deal.
func (r *Round) MoveCount() int { return r.moves }

// History returns the combinations played this round, oldest first.
func (r *Round) History() []Combination {
	out := make([]Combination, len(r.history))
	copy(out, r.history)
	return out
}

// LastPlay returns the most recent combination, if any.
func (r *Round) LastPlay() (Combination, bool) {
	if len(r.history) == 0 {
		return Combination{}, false
	}
	return r.history[len(r.history)-1], true
}

// Hand returns a sorted copy of seat's remaining cards.
func (r *Round) Hand(seat int) Cards {
	if !ValidSeat(seat) {
		return nil
	}
	return r.hands[seat].Sorted()
}

// Remaining returns the number of cards seat still holds.
func (r *Round) Remaining(seat int) int {
	if !ValidSeat(seat) {
		return 0
	}
	return len(r.hands[seat])
}

// RemainingCounts returns every seat's remaining card count.
func (r *Round) RemainingCounts() [NumSeats]int {
	var out [NumSeats]int
	for seat := range r.hands {
		out[seat] = len(r.hands[seat])
	}
	return out
}
