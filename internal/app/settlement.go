package app

import (
	"fmt"

	"bigtwo/internal/domain"
)

// Settle computes per-seat score deltas for a finished round. Every losing seat
// pays unit for each card it still holds and the winner collects the total.
func Settle(round *domain.Round, unit int64) ([domain.NumSeats]int64, error) {
	var deltas [domain.NumSeats]int64
	if round == nil || round.Phase() != domain.PhaseRoundOver {
		return deltas, ErrRoundNotOver
	}
	winner := round.Winner()
	if !domain.ValidSeat(winner) {
		return deltas, fmt.Errorf("%w: no winner recorded", ErrRoundNotOver)
	}

	var pot int64
	for seat, n := range round.RemainingCounts() {
		if seat == winner {
			continue
		}
		owed := unit * int64(n)
		deltas[seat] = -owed
		pot += owed
	}
	deltas[winner] = pot
	return deltas, nil
}
