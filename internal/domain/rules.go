package domain

import "fmt"

// Category is a combination category. Declaration order is strength order.
type Category int

const (
	Invalid Category = iota
	Single
	Pair
	Triple
	Straight
	Flush
	FullHouse
	Quad
	StraightFlush
)

var categoryNames = [...]string{
	Invalid:       "Invalid",
	Single:        "Single",
	Pair:          "Pair",
	Triple:        "Triple",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "FullHouse",
	Quad:          "Quad",
	StraightFlush: "StraightFlush",
}

func (c Category) String() string {
	if c < Invalid || c > StraightFlush {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Combination is a classified group of 1, 2, 3 or 5 cards played by a seat.
// The zero value is Invalid. Values are only produced by Classify.
type Combination struct {
	category Category
	cards    Cards // sorted weakest first
	owner    int
	top      Card
}

func (cb Combination) Category() Category { return cb.category }
func (cb Combination) Owner() int         { return cb.owner }
func (cb Combination) Size() int          { return len(cb.cards) }
func (cb Combination) Valid() bool        { return cb.category != Invalid }

// Cards returns a copy of the combination's cards, weakest first.
func (cb Combination) Cards() Cards {
	out := make(Cards, len(cb.cards))
	copy(out, cb.cards)
	return out
}

// Contains reports whether card is part of the combination.
func (cb Combination) Contains(card Card) bool {
	return cb.cards.Contains(card)
}

// TopCard is the card that decides same-category comparisons.
// For FullHouse and Quad it is the highest card of the three- or four-card rank group;
// otherwise it is the highest card overall.
func (cb Combination) TopCard() Card {
	return cb.top
}

func (cb Combination) String() string {
	return fmt.Sprintf("%s%v", cb.category, cb.cards)
}

// classifiers are tried strongest first; the first match wins.
var classifiers = []struct {
	category Category
	match    func(Cards) bool
}{
	{StraightFlush, isStraightFlush},
	{Quad, isQuad},
	{FullHouse, isFullHouse},
	{Flush, isFlush},
	{Straight, isStraight},
	{Triple, isTriple},
	{Pair, isPair},
	{Single, isSingle},
}

// Classify returns the strongest combination the cards form, owned by owner.
// It fails with ErrInvalidCombination when no category matches and with
// ErrMalformedSelection for empty, duplicate or out-of-range cards.
func Classify(cards Cards, owner int) (Combination, error) {
	if len(cards) == 0 {
		return Combination{}, fmt.Errorf("%w: empty selection", ErrMalformedSelection)
	}
	for _, c := range cards {
		if !c.Valid() {
			return Combination{}, fmt.Errorf("%w: invalid card %v", ErrMalformedSelection, c)
		}
	}
	if cards.HasDuplicates() {
		return Combination{}, fmt.Errorf("%w: duplicate cards %v", ErrMalformedSelection, cards)
	}

	sorted := cards.Sorted()
	for _, cl := range classifiers {
		if cl.match(sorted) {
			return Combination{
				category: cl.category,
				cards:    sorted,
				owner:    owner,
				top:      topCard(cl.category, sorted),
			}, nil
		}
	}
	return Combination{}, fmt.Errorf("%w: %v", ErrInvalidCombination, sorted)
}

func topCard(cat Category, sorted Cards) Card {
	if cat == FullHouse || cat == Quad {
		return rankGroups(sorted)[0].Highest()
	}
	return sorted[len(sorted)-1]
}

func isSingle(cards Cards) bool {
	return len(cards) == 1
}

func isPair(cards Cards) bool {
	return len(cards) == 2 && allSameRank(cards)
}

func isTriple(cards Cards) bool {
	return len(cards) == 3 && allSameRank(cards)
}

// isStraight expects cards sorted by game order.
func isStraight(cards Cards) bool {
	if len(cards) != 5 {
		return false
	}
	for i := 1; i < len(cards); i++ {
		if GameRank(cards[i]) != GameRank(cards[i-1])+1 {
			return false
		}
	}
	return true
}

func isFlush(cards Cards) bool {
	if len(cards) != 5 {
		return false
	}
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return true
}

func isFullHouse(cards Cards) bool {
	return len(cards) == 5 && groupShape(cards, 3, 2)
}

func isQuad(cards Cards) bool {
	return len(cards) == 5 && groupShape(cards, 4, 1)
}

func isStraightFlush(cards Cards) bool {
	return isStraight(cards) && isFlush(cards)
}

func groupShape(cards Cards, major, minor int) bool {
	groups := rankGroups(cards)
	return len(groups) == 2 && len(groups[0]) == major && len(groups[1]) == minor
}

func allSameRank(cards Cards) bool {
	if len(cards) == 0 {
		return false
	}
	r := cards[0].Rank
	for _, c := range cards {
		if c.Rank != r {
			return false
		}
	}
	return true
}

// Beats reports whether candidate defeats incumbent.
// Both must be valid and of equal size, otherwise it returns false; callers that
// need to tell a size mismatch apart from a loss check Size first.
func Beats(candidate, incumbent Combination) bool {
	if !candidate.Valid() || !incumbent.Valid() {
		return false
	}
	if candidate.Size() != incumbent.Size() {
		return false
	}

	ct, it := candidate.TopCard(), incumbent.TopCard()
	switch candidate.Size() {
	case 1:
		return Compare(ct, it) > 0
	case 2:
		if GameRank(ct) != GameRank(it) {
			return GameRank(ct) > GameRank(it)
		}
		return ct.Suit > it.Suit
	case 3:
		return GameRank(ct) > GameRank(it)
	case 5:
		if candidate.category != incumbent.category {
			return candidate.category > incumbent.category
		}
		if candidate.category == Flush && ct.Suit != it.Suit {
			return ct.Suit > it.Suit
		}
		return Compare(ct, it) > 0
	}
	return false
}
