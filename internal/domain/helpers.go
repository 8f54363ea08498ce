package domain

import (
	"sort"
	"strings"
)

// Cards is an ordered list of cards.
type Cards []Card

func (cs Cards) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Sorted returns a copy ordered from weakest to strongest. The receiver is not modified.
func (cs Cards) Sorted() Cards {
	out := make(Cards, len(cs))
	copy(out, cs)
	SortHand(out)
	return out
}

// Highest returns the strongest card. cs must not be empty.
func (cs Cards) Highest() Card {
	top := cs[0]
	for _, c := range cs[1:] {
		if Compare(c, top) > 0 {
			top = c
		}
	}
	return top
}

// Contains reports whether card is present.
func (cs Cards) Contains(card Card) bool {
	for _, c := range cs {
		if c == card {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every card of sub is present, respecting multiplicity.
func (cs Cards) ContainsAll(sub Cards) bool {
	counts := make(map[Card]int, len(cs))
	for _, c := range cs {
		counts[c]++
	}
	for _, c := range sub {
		if counts[c] == 0 {
			return false
		}
		counts[c]--
	}
	return true
}

// HasDuplicates reports whether any card appears more than once.
func (cs Cards) HasDuplicates() bool {
	seen := make(map[Card]struct{}, len(cs))
	for _, c := range cs {
		if _, ok := seen[c]; ok {
			return true
		}
		seen[c] = struct{}{}
	}
	return false
}

// SortHand orders a hand in place by ascending strength.
func SortHand(cards Cards) {
	sort.Slice(cards, func(i, j int) bool {
		return cardPower(cards[i]) < cardPower(cards[j])
	})
}

// RemoveCards removes the specified cards from a hand and returns the updated hand.
func RemoveCards(hand Cards, toRemove Cards) Cards {
	if len(toRemove) == 0 || len(hand) == 0 {
		return hand
	}

	removeCounts := make(map[Card]int, len(toRemove))
	for _, card := range toRemove {
		removeCounts[card]++
	}

	updated := make(Cards, 0, len(hand))
	for _, card := range hand {
		if count, ok := removeCounts[card]; ok && count > 0 {
			removeCounts[card] = count - 1
			continue
		}
		updated = append(updated, card)
	}

	return updated
}

// rankGroups buckets cards by raw rank, largest group first.
// Equal-sized groups keep the order of their first appearance.
func rankGroups(cards Cards) []Cards {
	index := make(map[Rank]int)
	var groups []Cards
	for _, c := range cards {
		i, ok := index[c.Rank]
		if !ok {
			i = len(groups)
			index[c.Rank] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	sort.SliceStable(groups, func(i, j int) bool { return len(groups[i]) > len(groups[j]) })
	return groups
}
