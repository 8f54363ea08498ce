package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"bigtwo/internal/domain"
)

// Service contains Big Two use-cases operating on domain state.
type Service struct {
	rng       *rand.Rand
	scoreUnit int64
}

// Option customises a Service.
type Option func(*Service)

// WithScoreUnit sets the amount a losing seat pays per remaining card.
func WithScoreUnit(unit int64) Option {
	return func(s *Service) {
		if unit > 0 {
			s.scoreUnit = unit
		}
	}
}

// NewService constructs a Service with provided rng or a time-seeded default.
func NewService(rng *rand.Rand, opts ...Option) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Service{rng: rng, scoreUnit: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	ErrNoRound      = errors.New("no round")
	ErrRoundNotOver = errors.New("round not over")
	ErrEmptyHand    = errors.New("seat has no cards")
)

// StartRound shuffles, deals and starts round. It emits one private hand per seat
// followed by the public round start.
func (s *Service) StartRound(round *domain.Round) ([]Event, error) {
	if round == nil {
		return nil, ErrNoRound
	}
	deal, err := domain.NewDeal(domain.ShuffleDeck(domain.NewDeck(), s.rng))
	if err != nil {
		return nil, fmt.Errorf("deal: %w", err)
	}
	first, err := round.Start(deal)
	if err != nil {
		return nil, fmt.Errorf("start round: %w", err)
	}

	events := make([]Event, 0, domain.NumSeats+1)
	for seat := 0; seat < domain.NumSeats; seat++ {
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{Seat: seat, Hand: round.Hand(seat)},
			Recipients: []int{seat},
		})
	}
	events = append(events, Event{
		Kind:    EventRoundStarted,
		Payload: RoundStartedPayload{FirstSeat: first, Counts: round.RemainingCounts()},
	})
	return events, nil
}

// Play proposes cards for seat.
func (s *Service) Play(round *domain.Round, seat int, cards domain.Cards) ([]Event, error) {
	if round == nil {
		return nil, ErrNoRound
	}
	out, err := round.Play(seat, cards)
	if err != nil {
		return nil, err
	}
	return s.outcomeEvents(round, out, false)
}

// Pass gives up seat's turn.
func (s *Service) Pass(round *domain.Round, seat int) ([]Event, error) {
	if round == nil {
		return nil, ErrNoRound
	}
	out, err := round.Pass(seat)
	if err != nil {
		return nil, err
	}
	return s.outcomeEvents(round, out, false)
}

// Timeout moves for a seat whose turn expired. It passes when passing is legal
// and otherwise plays the seat's lowest card as a single, which is legal both on
// the first move and when the seat holds the lead.
func (s *Service) Timeout(round *domain.Round, seat int) ([]Event, error) {
	if round == nil {
		return nil, ErrNoRound
	}
	if seat == round.CurrentSeat() && round.CanPass() {
		out, err := round.Pass(seat)
		if err != nil {
			return nil, err
		}
		return s.outcomeEvents(round, out, true)
	}

	hand := round.Hand(seat)
	if len(hand) == 0 {
		return nil, fmt.Errorf("%w: seat %d", ErrEmptyHand, seat)
	}
	out, err := round.Play(seat, hand[:1])
	if err != nil {
		return nil, err
	}
	return s.outcomeEvents(round, out, true)
}

// Abort clears the round and announces why.
func (s *Service) Abort(round *domain.Round, reason string) []Event {
	if round == nil {
		return nil
	}
	round.Abort()
	return []Event{{Kind: EventRoundAborted, Payload: RoundAbortedPayload{Reason: reason}}}
}

func (s *Service) outcomeEvents(round *domain.Round, out domain.Outcome, auto bool) ([]Event, error) {
	var events []Event
	switch out.Kind {
	case domain.OutcomePassed:
		events = append(events, Event{
			Kind:    EventTurnPassed,
			Payload: TurnPassedPayload{Seat: out.Seat, NextSeat: out.NextSeat, AutoPassed: auto},
		})
		return events, nil
	case domain.OutcomeAccepted, domain.OutcomeRoundOver:
		events = append(events, Event{
			Kind: EventCardsPlayed,
			Payload: CardsPlayedPayload{
				Seat:       out.Seat,
				Category:   out.Combination.Category(),
				Cards:      out.Combination.Cards(),
				Remaining:  round.Remaining(out.Seat),
				NextSeat:   out.NextSeat,
				AutoPlayed: auto,
			},
		})
	}

	if out.Kind == domain.OutcomeRoundOver {
		deltas, err := Settle(round, s.scoreUnit)
		if err != nil {
			return nil, err
		}
		events = append(events, Event{
			Kind: EventRoundEnded,
			Payload: RoundEndedPayload{
				Winner: out.Winner,
				Counts: round.RemainingCounts(),
				Deltas: deltas,
			},
		})
	}
	return events, nil
}
