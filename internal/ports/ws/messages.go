package ws

import (
	"fmt"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"
)

// Client -> server message types.
const (
	MsgJoin  = "join"
	MsgReady = "ready"
	MsgPlay  = "play"
	MsgPass  = "pass"
)

// Server -> client message types that are not app events.
const (
	MsgJoined = "joined"
	MsgSeats  = "seats"
	MsgError  = "error"
)

// Error codes carried by MsgError.
const (
	CodeRejected  = 400
	CodeNotFound  = 404
	CodeConflict  = 409
	CodeMalformed = 422
)

type ClientMessage struct {
	Type  string   `json:"type"`
	Room  string   `json:"room,omitempty"`
	Cards []string `json:"cards,omitempty"`
}

// ServerMessage is every frame the server writes. App events set Type to the
// event kind and carry their fields in Data.
type ServerMessage struct {
	Type     string                 `json:"type"`
	Room     string                 `json:"room,omitempty"`
	PlayerID string                 `json:"player_id,omitempty"`
	Seat     *int                   `json:"seat,omitempty"`
	Seats    []string               `json:"seats,omitempty"`
	Ready    []bool                 `json:"ready,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Code     int                    `json:"code,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
}

func cardStrings(cards domain.Cards) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func parseCards(in []string) (domain.Cards, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no cards", domain.ErrMalformedSelection)
	}
	out := make(domain.Cards, 0, len(in))
	for _, s := range in {
		c, err := domain.ParseCard(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// eventMessage renders an app event for the wire.
func eventMessage(ev app.Event) (ServerMessage, error) {
	msg := ServerMessage{Type: string(ev.Kind)}
	switch p := ev.Payload.(type) {
	case app.HandDealtPayload:
		msg.Data = map[string]interface{}{"seat": p.Seat, "hand": cardStrings(p.Hand)}
	case app.RoundStartedPayload:
		msg.Data = map[string]interface{}{"first_seat": p.FirstSeat, "counts": p.Counts}
	case app.CardsPlayedPayload:
		msg.Data = map[string]interface{}{
			"seat":      p.Seat,
			"category":  p.Category.String(),
			"cards":     cardStrings(p.Cards),
			"remaining": p.Remaining,
			"next_seat": p.NextSeat,
			"auto":      p.AutoPlayed,
		}
	case app.TurnPassedPayload:
		msg.Data = map[string]interface{}{"seat": p.Seat, "next_seat": p.NextSeat, "auto": p.AutoPassed}
	case app.RoundEndedPayload:
		msg.Data = map[string]interface{}{"winner": p.Winner, "counts": p.Counts, "deltas": p.Deltas}
	case app.RoundAbortedPayload:
		msg.Data = map[string]interface{}{"reason": p.Reason}
	default:
		return msg, fmt.Errorf("unknown event %s with payload %T", ev.Kind, ev.Payload)
	}
	return msg, nil
}

func errorMessage(code int, reason string) ServerMessage {
	return ServerMessage{Type: MsgError, Code: code, Reason: reason}
}

// errorCode classifies an error from a table command.
func errorCode(err error) int {
	if domain.IsRejection(err) {
		return CodeRejected
	}
	return CodeMalformed
}
