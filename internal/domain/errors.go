package domain

import "errors"

// Rejections: well-formed proposals that the rules do not allow.
// The round is left exactly as it was.
var (
	ErrInvalidCombination   = errors.New("cards do not form a valid combination")
	ErrOutOfTurn            = errors.New("not your turn")
	ErrIllegalPass          = errors.New("passing is not allowed now")
	ErrMissingFirstMoveCard = errors.New("first play must include the three of diamonds")
	ErrDoesNotBeat          = errors.New("combination does not beat the last play")
	ErrCardinalityMismatch  = errors.New("combination size differs from the last play")
	ErrRoundNotActive       = errors.New("round is not accepting moves")
)

// ErrMalformedSelection marks a caller contract violation (unknown card, duplicate
// card, card not in hand, index or seat out of range). Session layers should treat
// it as a client bug rather than a gameplay rejection.
var ErrMalformedSelection = errors.New("malformed selection")

var rejections = []error{
	ErrInvalidCombination,
	ErrOutOfTurn,
	ErrIllegalPass,
	ErrMissingFirstMoveCard,
	ErrDoesNotBeat,
	ErrCardinalityMismatch,
	ErrRoundNotActive,
}

// IsRejection reports whether err is a gameplay rejection as opposed to a contract violation.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
