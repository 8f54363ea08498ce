package domain

import (
	"fmt"
	"strings"
)

// Phase represents the lifecycle stage of a Big Two round.
type Phase string

const (
	// PhaseIdle is the state before the first deal.
	PhaseIdle Phase = "idle"
	// PhaseAwaitingFirstMove waits for the holder of the first-move card to lead.
	PhaseAwaitingFirstMove Phase = "awaiting_first_move"
	// PhaseAwaitingMove waits for the current seat to play or pass.
	PhaseAwaitingMove Phase = "awaiting_move"
	// PhaseRoundOver is reached once a seat has emptied its hand.
	PhaseRoundOver Phase = "round_over"
)

// Suit is a card suit. The order is only ever used as a tie-break.
type Suit uint8

const (
	SuitDiamond Suit = iota
	SuitClub
	SuitHeart
	SuitSpade
)

// Rank is the natural deck rank of a card: Ace=0, Two=1, Three=2 ... King=12.
type Rank uint8

const (
	RankAce Rank = iota
	RankTwo
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
)

var (
	suitSymbols = [...]string{"D", "C", "H", "S"}
	rankSymbols = [...]string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
)

// Card is a single playing card.
type Card struct {
	Suit Suit
	Rank Rank
}

// Valid reports whether both suit and rank are in range.
func (c Card) Valid() bool {
	return c.Suit <= SuitSpade && c.Rank <= RankKing
}

func (c Card) String() string {
	if !c.Valid() {
		return fmt.Sprintf("?(%d,%d)", c.Suit, c.Rank)
	}
	return rankSymbols[c.Rank] + suitSymbols[c.Suit]
}

// ParseCard reads the String form of a card, e.g. "3D", "10S" or "ah".
// "T" is accepted for ten.
func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return Card{}, fmt.Errorf("%w: card %q", ErrMalformedSelection, s)
	}
	rankPart, suitPart := s[:len(s)-1], s[len(s)-1:]
	if rankPart == "T" {
		rankPart = "10"
	}

	var c Card
	found := false
	for i, sym := range suitSymbols {
		if sym == suitPart {
			c.Suit = Suit(i)
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("%w: card %q has unknown suit", ErrMalformedSelection, s)
	}

	found = false
	for i, sym := range rankSymbols {
		if sym == rankPart {
			c.Rank = Rank(i)
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("%w: card %q has unknown rank", ErrMalformedSelection, s)
	}
	return c, nil
}

// MustParseCards parses a space separated card list and panics on error.
// Intended for tests and fixtures.
func MustParseCards(s string) Cards {
	fields := strings.Fields(s)
	out := make(Cards, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

// GameRank rotates the natural rank so Three is lowest (0) and Two is highest (12).
func GameRank(c Card) int {
	return (int(c.Rank) - 2 + 13) % 13
}

// Compare orders cards by game rank, then suit.
// It returns 1 when a is stronger, -1 when b is stronger and 0 when they are equal.
func Compare(a, b Card) int {
	ga, gb := GameRank(a), GameRank(b)
	switch {
	case ga > gb:
		return 1
	case ga < gb:
		return -1
	case a.Suit > b.Suit:
		return 1
	case a.Suit < b.Suit:
		return -1
	default:
		return 0
	}
}

// cardPower folds Compare into one integer, used for sorting.
func cardPower(c Card) int {
	return GameRank(c)*4 + int(c.Suit)
}
