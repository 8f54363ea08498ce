package nakama

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"
	"github.com/heroiclabs/nakama-common/runtime"
)

// SeatTicketRequest asks for a reconnect ticket in the given match.
type SeatTicketRequest struct {
	MatchID string `json:"match_id"`
}

// SeatTicketResponse carries a signed ticket the client passes as join metadata
// ("ticket") when it rejoins after a drop.
type SeatTicketResponse struct {
	Ticket    string `json:"ticket"`
	Seat      int    `json:"seat"`
	ExpiresAt int64  `json:"expires_at"`
}

type matchSignaler interface {
	MatchSignal(ctx context.Context, id string, data string) (string, error)
}

func rpcSeatTicket(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return seatTicket(ctx, logger, nk, payload)
}

func seatTicket(ctx context.Context, logger runtime.Logger, nk matchSignaler, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("no user in context", codeUnauthenticated)
	}

	var req SeatTicketRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.MatchID == "" {
		return "", runtime.NewError("match_id required", codeInvalidArgument)
	}

	signal, _ := json.Marshal(signalRequest{Kind: signalSeatTicket, UserID: userID})
	result, err := nk.MatchSignal(ctx, req.MatchID, string(signal))
	if err != nil {
		logger.Warn("SeatTicket [User:%s]: MatchSignal to %s failed: %v", userID, req.MatchID, err)
		return "", runtime.NewError("match not found", codeNotFound)
	}

	var resp signalResponse
	if err := json.Unmarshal([]byte(result), &resp); err != nil {
		logger.Error("SeatTicket [User:%s]: Bad signal response: %v", userID, err)
		return "", runtime.NewError("internal error", codeInternal)
	}
	if resp.Error != "" {
		return "", runtime.NewError(resp.Error, codeFailedPrecondition)
	}

	out, err := json.Marshal(SeatTicketResponse{Ticket: resp.Ticket, Seat: resp.Seat, ExpiresAt: resp.ExpiresAt})
	if err != nil {
		return "", runtime.NewError("internal error", codeInternal)
	}
	return string(out), nil
}
