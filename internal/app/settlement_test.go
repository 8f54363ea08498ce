package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bigtwo/internal/domain"
)

func TestSettle(t *testing.T) {
	d := domain.Deal{FirstSeat: 0}
	d.Hands[0] = domain.MustParseCards("3D")
	d.Hands[1] = domain.MustParseCards("4D 5D")
	d.Hands[2] = domain.MustParseCards("6D 7D 8D")
	d.Hands[3] = domain.Cards{}

	round := domain.NewRound()
	_, err := round.Start(d)
	require.NoError(t, err)

	_, err = Settle(round, 5)
	require.ErrorIs(t, err, ErrRoundNotOver)

	_, err = round.Play(0, domain.MustParseCards("3D"))
	require.NoError(t, err)

	deltas, err := Settle(round, 5)
	require.NoError(t, err)
	assert.Equal(t, [domain.NumSeats]int64{25, -10, -15, 0}, deltas)
}

func TestSettleNilRound(t *testing.T) {
	_, err := Settle(nil, 1)
	assert.ErrorIs(t, err, ErrRoundNotOver)
}
