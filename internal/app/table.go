package app

import (
	"context"
	"errors"

	"bigtwo/internal/domain"
)

var ErrTableClosed = errors.New("table closed")

type commandKind int

const (
	cmdStart commandKind = iota
	cmdPlay
	cmdPass
	cmdTimeout
	cmdAbort
	cmdSnapshot
)

type command struct {
	kind   commandKind
	seat   int
	cards  domain.Cards
	reason string
	reply  chan result
}

type result struct {
	events   []Event
	snapshot Snapshot
	err      error
}

// Snapshot is a copy of a table's round state.
type Snapshot struct {
	Phase       domain.Phase
	CurrentSeat int
	Winner      int
	MoveCount   int
	Counts      [domain.NumSeats]int
	Hands       [domain.NumSeats]domain.Cards
	LastPlay    domain.Cards
	LastOwner   int
}

// Table owns one Round and evaluates commands one at a time from a single
// goroutine. Events produced by accepted commands are passed to the sink in
// order before the caller is answered.
type Table struct {
	svc   *Service
	round *domain.Round
	sink  func([]Event)
	cmds  chan command
	done  chan struct{}
}

func NewTable(svc *Service, sink func([]Event)) *Table {
	if sink == nil {
		sink = func([]Event) {}
	}
	return &Table{
		svc:   svc,
		round: domain.NewRound(),
		sink:  sink,
		cmds:  make(chan command),
		done:  make(chan struct{}),
	}
}

// Run processes commands until ctx is cancelled.
func (t *Table) Run(ctx context.Context) error {
	defer close(t.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-t.cmds:
			res := t.handle(cmd)
			if res.err == nil && len(res.events) > 0 {
				t.sink(res.events)
			}
			cmd.reply <- res
		}
	}
}

func (t *Table) handle(cmd command) result {
	var res result
	switch cmd.kind {
	case cmdStart:
		res.events, res.err = t.svc.StartRound(t.round)
	case cmdPlay:
		res.events, res.err = t.svc.Play(t.round, cmd.seat, cmd.cards)
	case cmdPass:
		res.events, res.err = t.svc.Pass(t.round, cmd.seat)
	case cmdTimeout:
		res.events, res.err = t.svc.Timeout(t.round, cmd.seat)
	case cmdAbort:
		res.events = t.svc.Abort(t.round, cmd.reason)
	case cmdSnapshot:
		res.snapshot = t.snapshot()
	}
	return res
}

func (t *Table) snapshot() Snapshot {
	s := Snapshot{
		Phase:       t.round.Phase(),
		CurrentSeat: t.round.CurrentSeat(),
		Winner:      t.round.Winner(),
		MoveCount:   t.round.MoveCount(),
		Counts:      t.round.RemainingCounts(),
		LastOwner:   -1,
	}
	for seat := 0; seat < domain.NumSeats; seat++ {
		s.Hands[seat] = t.round.Hand(seat)
	}
	if last, ok := t.round.LastPlay(); ok {
		s.LastPlay = last.Cards()
		s.LastOwner = last.Owner()
	}
	return s
}

func (t *Table) submit(ctx context.Context, cmd command) (result, error) {
	cmd.reply = make(chan result, 1)
	select {
	case t.cmds <- cmd:
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-t.done:
		return result{}, ErrTableClosed
	}
	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

// Start deals a new round.
func (t *Table) Start(ctx context.Context) ([]Event, error) {
	res, err := t.submit(ctx, command{kind: cmdStart})
	return res.events, err
}

func (t *Table) Play(ctx context.Context, seat int, cards domain.Cards) ([]Event, error) {
	res, err := t.submit(ctx, command{kind: cmdPlay, seat: seat, cards: cards})
	return res.events, err
}

func (t *Table) Pass(ctx context.Context, seat int) ([]Event, error) {
	res, err := t.submit(ctx, command{kind: cmdPass, seat: seat})
	return res.events, err
}

// Timeout moves for seat after its turn expired.
func (t *Table) Timeout(ctx context.Context, seat int) ([]Event, error) {
	res, err := t.submit(ctx, command{kind: cmdTimeout, seat: seat})
	return res.events, err
}

func (t *Table) Abort(ctx context.Context, reason string) ([]Event, error) {
	res, err := t.submit(ctx, command{kind: cmdAbort, reason: reason})
	return res.events, err
}

func (t *Table) Snapshot(ctx context.Context) (Snapshot, error) {
	res, err := t.submit(ctx, command{kind: cmdSnapshot})
	return res.snapshot, err
}
