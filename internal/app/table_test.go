package app

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bigtwo/internal/domain"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) push(evs []Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evs...)
}

func (r *recordingSink) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func runTable(t *testing.T, sink func([]Event)) (*Table, context.CancelFunc) {
	t.Helper()
	table := NewTable(NewService(rand.New(rand.NewSource(7))), sink)
	ctx, cancel := context.WithCancel(context.Background())
	go table.Run(ctx)
	t.Cleanup(cancel)
	return table, cancel
}

func TestTableStartAndPlay(t *testing.T) {
	sink := &recordingSink{}
	table, _ := runTable(t, sink.push)
	ctx := context.Background()

	evs, err := table.Start(ctx)
	require.NoError(t, err)
	require.Len(t, evs, domain.NumSeats+1)

	snap, err := table.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseAwaitingFirstMove, snap.Phase)
	assert.Equal(t, -1, snap.LastOwner)
	first := snap.CurrentSeat
	assert.True(t, snap.Hands[first].Contains(domain.FirstMoveCard))

	_, err = table.Play(ctx, domain.NextSeat(first), snap.Hands[domain.NextSeat(first)][:1])
	require.ErrorIs(t, err, domain.ErrOutOfTurn)

	_, err = table.Play(ctx, first, domain.Cards{domain.FirstMoveCard})
	require.NoError(t, err)
	_, err = table.Pass(ctx, domain.NextSeat(first))
	require.NoError(t, err)

	snap, err = table.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, snap.LastOwner)
	assert.Equal(t, domain.Cards{domain.FirstMoveCard}, snap.LastPlay)
	assert.Equal(t, 2, snap.MoveCount)

	kinds := sink.kinds()
	require.Len(t, kinds, domain.NumSeats+3)
	assert.Equal(t, EventCardsPlayed, kinds[len(kinds)-2])
	assert.Equal(t, EventTurnPassed, kinds[len(kinds)-1])
}

func TestTableSerializesConcurrentProposals(t *testing.T) {
	table, _ := runTable(t, nil)
	ctx := context.Background()
	_, err := table.Start(ctx)
	require.NoError(t, err)
	snap, err := table.Snapshot(ctx)
	require.NoError(t, err)
	first := snap.CurrentSeat

	// Every seat races to time out; exactly one proposal can be the current seat's.
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for seat := 0; seat < domain.NumSeats; seat++ {
		wg.Add(1)
		go func(seat int) {
			defer wg.Done()
			if _, err := table.Timeout(ctx, seat); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(seat)
	}
	wg.Wait()

	snap, err = table.Snapshot(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, accepted, 1)
	assert.Equal(t, accepted, snap.MoveCount)
	assert.Equal(t, first, snap.LastOwner)
}

func TestTableAbort(t *testing.T) {
	table, _ := runTable(t, nil)
	ctx := context.Background()
	_, err := table.Start(ctx)
	require.NoError(t, err)

	evs, err := table.Abort(ctx, "quit")
	require.NoError(t, err)
	require.Len(t, evs, 1)

	snap, err := table.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, snap.Phase)
}

func TestTableSubmitHonoursContext(t *testing.T) {
	table := NewTable(NewService(nil), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := table.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTableClosed(t *testing.T) {
	table, cancel := runTable(t, nil)
	cancel()
	require.Eventually(t, func() bool {
		_, err := table.Snapshot(context.Background())
		return err == ErrTableClosed
	}, time.Second, 5*time.Millisecond)
}
