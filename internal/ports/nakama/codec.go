package nakama

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"
)

// Client payloads and server events travel as protojson-encoded Struct values so
// that any Nakama client SDK can read them without generated types.

type playRequest struct {
	Cards   domain.Cards
	Indices []int
}

func cardsToValue(cards domain.Cards) []interface{} {
	out := make([]interface{}, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func intsToValue[T int | int64](values []T) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func marshalStruct(fields map[string]interface{}) ([]byte, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

// decodePlayRequest reads {"cards": ["3D", ...]} or {"indices": [0, 1]}.
func decodePlayRequest(data []byte) (playRequest, error) {
	var req playRequest
	if len(data) == 0 {
		return req, fmt.Errorf("%w: empty payload", domain.ErrMalformedSelection)
	}
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return req, fmt.Errorf("%w: %v", domain.ErrMalformedSelection, err)
	}
	fields := s.GetFields()

	if v, ok := fields["cards"]; ok {
		list := v.GetListValue()
		if list == nil {
			return req, fmt.Errorf("%w: cards must be a list", domain.ErrMalformedSelection)
		}
		for _, item := range list.GetValues() {
			card, err := domain.ParseCard(item.GetStringValue())
			if err != nil {
				return req, err
			}
			req.Cards = append(req.Cards, card)
		}
		return req, nil
	}

	if v, ok := fields["indices"]; ok {
		list := v.GetListValue()
		if list == nil {
			return req, fmt.Errorf("%w: indices must be a list", domain.ErrMalformedSelection)
		}
		for _, item := range list.GetValues() {
			n, isNum := item.GetKind().(*structpb.Value_NumberValue)
			if !isNum || n.NumberValue != math.Trunc(n.NumberValue) {
				return req, fmt.Errorf("%w: index %v is not an integer", domain.ErrMalformedSelection, item.AsInterface())
			}
			req.Indices = append(req.Indices, int(n.NumberValue))
		}
		return req, nil
	}

	return req, fmt.Errorf("%w: payload has neither cards nor indices", domain.ErrMalformedSelection)
}

// encodeEvent maps an app event to its opcode and wire payload.
func encodeEvent(ev app.Event) (int64, []byte, error) {
	var (
		opCode int64
		fields map[string]interface{}
	)
	switch p := ev.Payload.(type) {
	case app.HandDealtPayload:
		opCode = OpHandDealt
		fields = map[string]interface{}{"seat": p.Seat, "hand": cardsToValue(p.Hand)}
	case app.RoundStartedPayload:
		opCode = OpRoundStarted
		fields = map[string]interface{}{"first_seat": p.FirstSeat, "counts": intsToValue(p.Counts[:])}
	case app.CardsPlayedPayload:
		opCode = OpCardsPlayed
		fields = map[string]interface{}{
			"seat":      p.Seat,
			"category":  p.Category.String(),
			"cards":     cardsToValue(p.Cards),
			"remaining": p.Remaining,
			"next_seat": p.NextSeat,
			"auto":      p.AutoPlayed,
		}
	case app.TurnPassedPayload:
		opCode = OpTurnPassed
		fields = map[string]interface{}{"seat": p.Seat, "next_seat": p.NextSeat, "auto": p.AutoPassed}
	case app.RoundEndedPayload:
		opCode = OpRoundEnded
		fields = map[string]interface{}{
			"winner": p.Winner,
			"counts": intsToValue(p.Counts[:]),
			"deltas": intsToValue(p.Deltas[:]),
		}
	case app.RoundAbortedPayload:
		opCode = OpRoundAborted
		fields = map[string]interface{}{"reason": p.Reason}
	default:
		return 0, nil, fmt.Errorf("unknown event %s with payload %T", ev.Kind, ev.Payload)
	}

	data, err := marshalStruct(fields)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s: %w", ev.Kind, err)
	}
	return opCode, data, nil
}

func encodeError(code int, reason string) ([]byte, error) {
	return marshalStruct(map[string]interface{}{"code": code, "reason": reason})
}

func encodeLabel(open int, phase string) (string, error) {
	data, err := marshalStruct(map[string]interface{}{"open": open, "game": GameLabel, "phase": phase})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeSeats(state *MatchState) ([]byte, error) {
	seats := make([]interface{}, domain.NumSeats)
	ready := make([]interface{}, domain.NumSeats)
	connected := make([]interface{}, domain.NumSeats)
	for i, userID := range state.Seats {
		seats[i] = userID
		ready[i] = state.Ready[i]
		_, online := state.Presences[userID]
		connected[i] = userID != "" && online
	}
	counts := state.Round.RemainingCounts()
	return marshalStruct(map[string]interface{}{
		"seats":        seats,
		"ready":        ready,
		"connected":    connected,
		"counts":       intsToValue(counts[:]),
		"phase":        string(state.Round.Phase()),
		"current_seat": state.Round.CurrentSeat(),
		"last_winner":  state.LastWinnerSeat,
	})
}
