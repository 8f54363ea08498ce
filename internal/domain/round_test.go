package domain

import (
	"errors"
	"testing"
)

// dealOf builds a short-handed deal for scenario tests.
func dealOf(hands ...string) Deal {
	d := Deal{FirstSeat: -1}
	for seat, h := range hands {
		d.Hands[seat] = MustParseCards(h)
		if d.Hands[seat].Contains(FirstMoveCard) {
			d.FirstSeat = seat
		}
	}
	return d
}

func startRound(t *testing.T, d Deal) *Round {
	t.Helper()
	r := NewRound()
	if _, err := r.Start(d); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return r
}

func mustPlay(t *testing.T, r *Round, seat int, cards string) Outcome {
	t.Helper()
	out, err := r.Play(seat, MustParseCards(cards))
	if err != nil {
		t.Fatalf("seat %d play %s: %v", seat, cards, err)
	}
	return out
}

func mustPass(t *testing.T, r *Round, seat int) Outcome {
	t.Helper()
	out, err := r.Pass(seat)
	if err != nil {
		t.Fatalf("seat %d pass: %v", seat, err)
	}
	return out
}

func TestNewRoundIsIdle(t *testing.T) {
	r := NewRound()
	if r.Phase() != PhaseIdle || r.CurrentSeat() != -1 || r.Winner() != -1 {
		t.Fatalf("unexpected idle round: %s %d %d", r.Phase(), r.CurrentSeat(), r.Winner())
	}
	if _, err := r.Play(0, MustParseCards("3D")); !errors.Is(err, ErrRoundNotActive) {
		t.Fatalf("expected ErrRoundNotActive, got %v", err)
	}
	if _, err := r.Pass(0); !errors.Is(err, ErrRoundNotActive) {
		t.Fatalf("expected ErrRoundNotActive, got %v", err)
	}
}

func TestStartValidatesFirstSeat(t *testing.T) {
	d, _ := NewDeal(NewDeck())
	d.FirstSeat = 2
	if _, err := NewRound().Start(d); err == nil {
		t.Fatal("expected error when first seat does not hold the first-move card")
	}
	d.FirstSeat = -1
	if _, err := NewRound().Start(d); err == nil {
		t.Fatal("expected error for missing first seat")
	}
}

func TestStartRejectsSharedCards(t *testing.T) {
	tests := []struct {
		name string
		deal Deal
	}{
		{name: "same card in two hands", deal: dealOf("3D 5C", "5C 6D", "7D", "8D")},
		{name: "same card twice in one hand", deal: dealOf("3D 9S 9S", "4D", "5D", "6D")},
		{name: "invalid card", deal: func() Deal {
			d := dealOf("3D", "4D", "5D", "6D")
			d.Hands[2] = append(d.Hands[2], Card{Suit: 7, Rank: 3})
			return d
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRound()
			if _, err := r.Start(tt.deal); err == nil {
				t.Fatal("expected error")
			}
			if r.Phase() != PhaseIdle {
				t.Fatalf("rejected deal changed phase to %s", r.Phase())
			}
		})
	}
}

func TestFirstMoveRejections(t *testing.T) {
	d, _ := NewDeal(NewDeck())
	r := startRound(t, d)

	if r.Phase() != PhaseAwaitingFirstMove || r.CurrentSeat() != 0 {
		t.Fatalf("phase %s seat %d", r.Phase(), r.CurrentSeat())
	}

	tests := []struct {
		name string
		seat int
		move string
		err  error
	}{
		{name: "out of turn", seat: 1, move: "AC", err: ErrOutOfTurn},
		{name: "pass on first move", seat: 0, move: "", err: ErrIllegalPass},
		{name: "missing first-move card", seat: 0, move: "4D", err: ErrMissingFirstMoveCard},
		{name: "invalid combination", seat: 0, move: "3D 4D", err: ErrInvalidCombination},
		{name: "card not held", seat: 0, move: "3C", err: ErrMalformedSelection},
		{name: "duplicate card", seat: 0, move: "3D 3D", err: ErrMalformedSelection},
		{name: "seat out of range", seat: 7, move: "3D", err: ErrMalformedSelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Propose(Move{Seat: tt.seat, Cards: MustParseCards(tt.move)})
			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, want %v", err, tt.err)
			}
			if r.MoveCount() != 0 || r.Remaining(0) != HandSize || r.CurrentSeat() != 0 || r.Phase() != PhaseAwaitingFirstMove {
				t.Fatal("rejected proposal changed the round")
			}
			if len(r.History()) != 0 {
				t.Fatal("rejected proposal recorded history")
			}
		})
	}

	out := mustPlay(t, r, 0, "3D 4D 5D 6D 7D")
	if out.Combination.Category() != StraightFlush || out.NextSeat != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if r.Phase() != PhaseAwaitingMove || r.Remaining(0) != HandSize-5 {
		t.Fatalf("phase %s remaining %d", r.Phase(), r.Remaining(0))
	}
}

func TestTurnOrderIsCircular(t *testing.T) {
	d, _ := NewDeal(NewDeck())
	r := startRound(t, d)

	plays := []struct {
		seat  int
		cards string
		next  int
	}{
		{0, "3D", 1},
		{1, "4C", 2},
		{2, "5H", 3},
		{3, "6S", 0},
		{0, "7D", 1},
	}
	for i, p := range plays {
		out := mustPlay(t, r, p.seat, p.cards)
		if out.NextSeat != p.next || r.CurrentSeat() != p.next {
			t.Fatalf("play %d: next seat %d, want %d", i, out.NextSeat, p.next)
		}
		if r.MoveCount() != i+1 {
			t.Fatalf("move count %d, want %d", r.MoveCount(), i+1)
		}
	}
}

// roundView is the observable state a rejected proposal must leave untouched.
type roundView struct {
	phase   Phase
	current int
	moves   int
	history int
	counts  [NumSeats]int
}

func viewOf(r *Round) roundView {
	return roundView{
		phase:   r.Phase(),
		current: r.CurrentSeat(),
		moves:   r.MoveCount(),
		history: len(r.History()),
		counts:  r.RemainingCounts(),
	}
}

func assertUnchanged(t *testing.T, r *Round, before roundView) {
	t.Helper()
	if got := viewOf(r); got != before {
		t.Fatalf("rejected proposal changed the round: %+v, want %+v", got, before)
	}
}

func TestRoundScenario(t *testing.T) {
	r := startRound(t, dealOf("3D 3C 9D", "4D 5C 8H 8S", "6D 7C", "JD QD"))

	mustPlay(t, r, 0, "3D")

	before := viewOf(r)
	if _, err := r.Play(1, MustParseCards("8H 8S")); !errors.Is(err, ErrCardinalityMismatch) {
		t.Fatalf("pair against single: got %v", err)
	}
	assertUnchanged(t, r, before)
	mustPlay(t, r, 1, "4D")
	mustPlay(t, r, 2, "6D")
	mustPlay(t, r, 3, "JD")

	before = viewOf(r)
	if _, err := r.Play(0, MustParseCards("9D")); !errors.Is(err, ErrDoesNotBeat) {
		t.Fatalf("9D against JD: got %v", err)
	}
	assertUnchanged(t, r, before)
	mustPass(t, r, 0)
	mustPass(t, r, 1)
	out := mustPass(t, r, 2)
	if out.Kind != OutcomePassed || out.NextSeat != 3 {
		t.Fatalf("unexpected pass outcome %+v", out)
	}

	if r.CanPass() {
		t.Fatal("seat holding the lead must not be able to pass")
	}
	before = viewOf(r)
	if _, err := r.Pass(3); !errors.Is(err, ErrIllegalPass) {
		t.Fatalf("pass with the lead: got %v", err)
	}
	assertUnchanged(t, r, before)
	if _, err := r.Play(2, MustParseCards("7C")); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("out of turn: got %v", err)
	}
	assertUnchanged(t, r, before)

	out = mustPlay(t, r, 3, "QD")
	if out.Kind != OutcomeRoundOver || out.Winner != 3 || out.NextSeat != -1 {
		t.Fatalf("unexpected final outcome %+v", out)
	}
	if r.Phase() != PhaseRoundOver || r.Winner() != 3 || r.CurrentSeat() != -1 {
		t.Fatalf("phase %s winner %d current %d", r.Phase(), r.Winner(), r.CurrentSeat())
	}
	if r.MoveCount() != 8 {
		t.Fatalf("move count %d, want 8", r.MoveCount())
	}
	if got := r.RemainingCounts(); got != [NumSeats]int{2, 3, 1, 0} {
		t.Fatalf("remaining counts %v", got)
	}

	if _, err := r.Play(0, MustParseCards("3C")); !errors.Is(err, ErrRoundNotActive) {
		t.Fatalf("play after round over: got %v", err)
	}
}

func TestLeaderMayChangeSizeAfterEveryonePasses(t *testing.T) {
	r := startRound(t, dealOf("3D 3C 3H KD", "4D 4C 4H QD KC", "5D 6D", "7D 8D"))

	mustPlay(t, r, 0, "3D 3C 3H")
	out := mustPlay(t, r, 1, "4D 4C 4H")
	if out.Combination.Category() != Triple {
		t.Fatalf("expected triple, got %v", out.Combination)
	}
	mustPass(t, r, 2)
	mustPass(t, r, 3)
	mustPass(t, r, 0)

	if r.CurrentSeat() != 1 {
		t.Fatalf("lead should cycle back to seat 1, got %d", r.CurrentSeat())
	}
	out = mustPlay(t, r, 1, "QD")
	if out.Combination.Category() != Single || out.NextSeat != 2 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if last, ok := r.LastPlay(); !ok || last.Owner() != 1 {
		t.Fatalf("last play %v", last)
	}
}

func TestHistoryIsACopy(t *testing.T) {
	d, _ := NewDeal(NewDeck())
	r := startRound(t, d)
	mustPlay(t, r, 0, "3D")

	h := r.History()
	h[0] = Combination{}
	if last, _ := r.LastPlay(); !last.Valid() {
		t.Fatal("History exposed internal state")
	}

	hand := r.Hand(0)
	hand[0] = Card{Suit: SuitSpade, Rank: RankTwo}
	if r.Hand(0)[0] == hand[0] {
		t.Fatal("Hand exposed internal state")
	}
}

func TestAbortAndRestart(t *testing.T) {
	d, _ := NewDeal(NewDeck())
	r := startRound(t, d)
	mustPlay(t, r, 0, "3D")

	r.Abort()
	if r.Phase() != PhaseIdle || r.Remaining(0) != 0 || len(r.History()) != 0 {
		t.Fatal("Abort should clear the round")
	}
	if seat, err := r.Start(d); err != nil || seat != 0 {
		t.Fatalf("restart: seat %d err %v", seat, err)
	}
	if r.MoveCount() != 0 {
		t.Fatal("restart should reset the move count")
	}
}

func TestSelectByIndex(t *testing.T) {
	d, _ := NewDeal(NewDeck())
	r := startRound(t, d)

	cards, err := r.SelectByIndex(0, []int{0, 1})
	if err != nil {
		t.Fatalf("SelectByIndex: %v", err)
	}
	if cards.String() != "[3D 4D]" {
		t.Fatalf("SelectByIndex = %v", cards)
	}

	for _, bad := range [][]int{{13}, {-1}, {0, 0}} {
		if _, err := r.SelectByIndex(0, bad); !errors.Is(err, ErrMalformedSelection) {
			t.Fatalf("indices %v: got %v", bad, err)
		}
	}
	if _, err := r.SelectByIndex(4, []int{0}); !errors.Is(err, ErrMalformedSelection) {
		t.Fatalf("bad seat: got %v", err)
	}
}
