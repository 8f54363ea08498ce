package domain

import (
	"fmt"
	"math/rand"
)

// NewDeck returns the 52-card deck in suit-major natural order.
func NewDeck() Cards {
	deck := make(Cards, 0, DeckSize)
	for s := SuitDiamond; s <= SuitSpade; s++ {
		for r := RankAce; r <= RankKing; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck.
func ShuffleDeck(deck Cards, rng *rand.Rand) Cards {
	out := make(Cards, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Deal is a deck partitioned into four hands of thirteen.
type Deal struct {
	Hands [NumSeats]Cards
	// FirstSeat holds FirstMoveCard and leads the round.
	FirstSeat int
}

// NewDeal partitions deck so that card i goes to seat i/13. Each hand is sorted.
// The deck must hold the 52 distinct cards.
func NewDeal(deck Cards) (Deal, error) {
	if len(deck) != DeckSize {
		return Deal{}, fmt.Errorf("deal needs %d cards, got %d", DeckSize, len(deck))
	}
	if deck.HasDuplicates() {
		return Deal{}, fmt.Errorf("deal has duplicate cards")
	}

	d := Deal{FirstSeat: -1}
	for seat := 0; seat < NumSeats; seat++ {
		hand := make(Cards, HandSize)
		copy(hand, deck[seat*HandSize:(seat+1)*HandSize])
		for _, c := range hand {
			if !c.Valid() {
				return Deal{}, fmt.Errorf("deal has invalid card %v", c)
			}
			if c == FirstMoveCard {
				d.FirstSeat = seat
			}
		}
		SortHand(hand)
		d.Hands[seat] = hand
	}
	return d, nil
}

// Hand returns a sorted copy of the seat's dealt hand, for display.
func (d Deal) Hand(seat int) Cards {
	if !ValidSeat(seat) {
		return nil
	}
	return d.Hands[seat].Sorted()
}
