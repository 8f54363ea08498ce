package nakama

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/spf13/cast"

	"bigtwo/internal/app"
	"bigtwo/internal/config"
	"bigtwo/internal/domain"
	"bigtwo/internal/ports"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Seats          [domain.NumSeats]string     `json:"seats"`            // user IDs, empty string means seat is empty
	Ready          [domain.NumSeats]bool       `json:"ready"`            // seats that asked for the next deal
	LastWinnerSeat int                         `json:"last_winner_seat"` // winner of the last finished round, -1 if none
	Tick           int64                       `json:"tick"`
	TurnDeadline   int64                       `json:"turn_deadline"` // tick at which the current seat times out, 0 when idle
	Reserved       map[int]int64               `json:"reserved"`      // seat -> tick at which a dropped player's seat is released
	TurnTicks      int64                       `json:"turn_ticks"`
	GraceTicks     int64                       `json:"grace_ticks"`
	Presences      map[string]runtime.Presence `json:"-"` // UserId -> Presence for targeted messaging
	App            *app.Service                `json:"-"`
	Round          *domain.Round               `json:"-"`
	Tickets        *app.TicketIssuer           `json:"-"`
	Economy        ports.EconomyPort           `json:"-"`
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	return domain.NumSeats - ms.GetOpenSeatsCount()
}

// SeatOf returns the seat held by userID or -1.
func (ms *MatchState) SeatOf(userID string) int {
	if userID == "" {
		return -1
	}
	for i, seatUserID := range ms.Seats {
		if seatUserID == userID {
			return i
		}
	}
	return -1
}

// RoundActive reports whether a deal is being played.
func (ms *MatchState) RoundActive() bool {
	phase := ms.Round.Phase()
	return phase == domain.PhaseAwaitingFirstMove || phase == domain.PhaseAwaitingMove
}

// abandoned reports whether nobody is connected and no seat is held for a reconnect.
func (ms *MatchState) abandoned() bool {
	return len(ms.Presences) == 0 && len(ms.Reserved) == 0
}

func (ms *MatchState) allReady() bool {
	for i := range ms.Seats {
		if ms.Seats[i] == "" || !ms.Ready[i] {
			return false
		}
	}
	return true
}

func (ms *MatchState) clearReady() {
	ms.Ready = [domain.NumSeats]bool{}
}

// newMatchState builds the initial state from the game config.
func newMatchState(cfg *config.GameConfig, economy ports.EconomyPort) *MatchState {
	return &MatchState{
		LastWinnerSeat: -1,
		Reserved:       make(map[int]int64),
		TurnTicks:      cfg.TurnTicks(),
		GraceTicks:     cfg.GraceTicks(),
		Presences:      make(map[string]runtime.Presence),
		App:            app.NewService(nil, app.WithScoreUnit(cfg.ScoreUnit)),
		Round:          domain.NewRound(),
		Tickets:        app.NewTicketIssuer(cfg.TicketSecret, cfg.TicketTTL()),
		Economy:        economy,
	}
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// runtimeConfig resolves the game config and applies Nakama runtime env overrides.
func runtimeConfig(ctx context.Context, logger runtime.Logger) *config.GameConfig {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	if err := config.LoadGameConfig(env[envConfigPath]); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}
	cfg := *config.GetGameConfig()

	if val, ok := env[envTurnSeconds]; ok {
		if i, err := cast.ToIntE(val); err == nil && i > 0 {
			cfg.TurnDurationSeconds = i
		}
	}
	if val, ok := env[envGraceSeconds]; ok {
		if i, err := cast.ToIntE(val); err == nil && i >= 0 {
			cfg.ReconnectGraceSeconds = i
		}
	}
	if val, ok := env[envScoreUnit]; ok {
		if i, err := cast.ToInt64E(val); err == nil && i > 0 {
			cfg.ScoreUnit = i
		}
	}
	if val, ok := env[envTicketTTL]; ok {
		if i, err := cast.ToIntE(val); err == nil && i > 0 {
			cfg.TicketTTLSeconds = i
		}
	}
	if val := env[envTicketSecret]; val != "" {
		cfg.TicketSecret = val
	}
	if cfg.TicketSecret == "" {
		logger.Warn("MatchInit: No ticket secret configured, seat tickets are disabled.")
	}
	return &cfg
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	cfg := runtimeConfig(ctx, logger)
	var economy ports.EconomyPort
	if nk != nil {
		economy = NewNakamaEconomyAdapter(nk)
	}
	state := newMatchState(cfg, economy)

	label, err := encodeLabel(state.GetOpenSeatsCount(), labelPhaseLobby)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	return state, cfg.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	userID := presence.GetUserId()
	if seat := matchState.SeatOf(userID); seat >= 0 {
		if _, online := matchState.Presences[userID]; online {
			return state, false, "Already joined"
		}
		if _, reserved := matchState.Reserved[seat]; !reserved {
			return state, true, ""
		}
		matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
		ticket, err := matchState.Tickets.Verify(metadata[metadataTicketKey], matchID)
		if err != nil {
			logger.Warn("MatchJoinAttempt: User %s presented an invalid seat ticket: %v", userID, err)
			return state, false, "Seat ticket required"
		}
		if ticket.UserID != userID || ticket.Seat != seat {
			return state, false, "Seat ticket does not match"
		}
		return state, true, ""
	}

	if matchState.RoundActive() {
		return state, false, "Round in progress"
	}
	if matchState.GetOpenSeatsCount() <= 0 {
		return state, false, "Match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		if seat := matchState.SeatOf(userID); seat >= 0 {
			delete(matchState.Reserved, seat)
			logger.Info("MatchJoin: User %s reclaimed seat %d.", userID, seat)
			mh.resendHand(matchState, dispatcher, logger, seat)
			continue
		}

		assigned := false
		for i, seatUserID := range matchState.Seats {
			if seatUserID == "" {
				matchState.Seats[i] = userID
				matchState.Ready[i] = false
				assigned = true
				logger.Debug("MatchJoin: User %s took seat %d.", userID, i)
				break
			}
		}
		if !assigned {
			logger.Warn("MatchJoin: User %s joined but no seat was available.", userID)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastSeats(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	matchState.Tick = tick
	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)

		seat := matchState.SeatOf(userID)
		if seat < 0 {
			continue
		}
		if matchState.RoundActive() {
			matchState.Reserved[seat] = tick + matchState.GraceTicks
			logger.Info("MatchLeave: User %s dropped from seat %d, holding it until tick %d.", userID, seat, matchState.Reserved[seat])
			continue
		}
		matchState.Seats[seat] = ""
		matchState.Ready[seat] = false
		logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, seat)
	}

	if matchState.abandoned() {
		logger.Info("MatchLeave: Terminating match with no connected players.")
		return nil
	}

	mh.releaseExpiredSeats(ctx, matchState, dispatcher, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastSeats(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpReady:
			mh.handleReady(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCards:
			mh.handlePlayCards(ctx, matchState, dispatcher, logger, msg)
		case OpPassTurn:
			mh.handlePassTurn(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	mh.releaseExpiredSeats(ctx, matchState, dispatcher, logger)
	if matchState.abandoned() {
		logger.Info("MatchLoop: No player reclaimed a seat, terminating match.")
		return nil
	}
	mh.processTurnTimer(ctx, matchState, dispatcher, logger)

	return matchState
}

// releaseExpiredSeats aborts the round when a dropped player fails to return in time.
func (mh *matchHandler) releaseExpiredSeats(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	expired := false
	for seat, deadline := range state.Reserved {
		if state.Tick < deadline {
			continue
		}
		logger.Info("releaseExpiredSeats: Seat %d (%s) was not reclaimed, releasing it.", seat, state.Seats[seat])
		state.Seats[seat] = ""
		delete(state.Reserved, seat)
		expired = true
	}
	if !expired {
		return
	}

	if state.RoundActive() {
		mh.dispatchEvents(ctx, state, dispatcher, logger, state.App.Abort(state.Round, "player left"))
	}
	// Seats held for other dropped players are released with the round.
	for seat := range state.Reserved {
		state.Seats[seat] = ""
		delete(state.Reserved, seat)
	}
	state.clearReady()
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastSeats(state, dispatcher, logger)
}

func (mh *matchHandler) processTurnTimer(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if !state.RoundActive() || state.TurnDeadline == 0 || state.Tick < state.TurnDeadline {
		return
	}
	seat := state.Round.CurrentSeat()
	events, err := state.App.Timeout(state.Round, seat)
	if err != nil {
		logger.Error("processTurnTimer: Timeout for seat %d failed: %v", seat, err)
		state.TurnDeadline = 0
		return
	}
	logger.Debug("processTurnTimer: Seat %d timed out at tick %d.", seat, state.Tick)
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) handleReady(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	seat := state.SeatOf(senderID)
	if seat < 0 {
		logger.Warn("handleReady: User %s is not seated.", senderID)
		return
	}
	if state.RoundActive() {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeRejected, errRoundInProgress.Error())
		return
	}

	state.Ready[seat] = true
	logger.Info("handleReady: Seat %d ready (occupied=%d).", seat, state.GetOccupiedSeatCount())
	mh.broadcastSeats(state, dispatcher, logger)

	if state.allReady() {
		mh.startRound(ctx, state, dispatcher, logger)
	}
}

func (mh *matchHandler) startRound(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	events, err := state.App.StartRound(state.Round)
	if err != nil {
		logger.Error("StartRound: Failed to start round: %v", err)
		return
	}
	state.clearReady()
	state.TurnDeadline = state.Tick + state.TurnTicks
	mh.updateLabel(state, dispatcher, logger)
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
	logger.Info("StartRound: Round started, seat %d leads.", state.Round.CurrentSeat())
}

func (mh *matchHandler) handlePlayCards(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	seat := state.SeatOf(senderID)

	req, err := decodePlayRequest(msg.GetData())
	if err != nil {
		mh.reject(state, dispatcher, logger, senderID, seat, "handlePlayCards", err)
		return
	}
	cards := req.Cards
	if len(req.Indices) > 0 {
		cards, err = state.Round.SelectByIndex(seat, req.Indices)
		if err != nil {
			mh.reject(state, dispatcher, logger, senderID, seat, "handlePlayCards", err)
			return
		}
	}

	events, err := state.App.Play(state.Round, seat, cards)
	if err != nil {
		logger.Warn("handlePlayCards: Requested %v, hand %v", cards, state.Round.Hand(seat))
		mh.reject(state, dispatcher, logger, senderID, seat, "handlePlayCards", err)
		return
	}
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) handlePassTurn(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	seat := state.SeatOf(senderID)

	events, err := state.App.Pass(state.Round, seat)
	if err != nil {
		mh.reject(state, dispatcher, logger, senderID, seat, "handlePassTurn", err)
		return
	}
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

// reject reports a refused proposal to its sender. Rule rejections use 400;
// anything else is a client contract violation and uses 422.
func (mh *matchHandler) reject(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, seat int, op string, err error) {
	code := ErrCodeMalformed
	if domain.IsRejection(err) {
		code = ErrCodeRejected
	}
	logger.Warn("%s: User %s (seat %d) rejected with %d: %v", op, userID, seat, code, err)
	mh.sendError(state, dispatcher, logger, userID, code, err.Error())
}

// dispatchEvents sends events and applies their side effects on the match state.
func (mh *matchHandler) dispatchEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		switch p := ev.Payload.(type) {
		case app.CardsPlayedPayload, app.TurnPassedPayload:
			state.TurnDeadline = state.Tick + state.TurnTicks
		case app.RoundEndedPayload:
			state.TurnDeadline = 0
			state.LastWinnerSeat = p.Winner
			mh.settle(ctx, state, logger, p)
			mh.updateLabel(state, dispatcher, logger)
		case app.RoundAbortedPayload:
			state.TurnDeadline = 0
			mh.updateLabel(state, dispatcher, logger)
		}
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) settle(ctx context.Context, state *MatchState, logger runtime.Logger, p app.RoundEndedPayload) {
	if state.Economy == nil {
		return
	}
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	updates := make([]ports.WalletUpdate, 0, domain.NumSeats)
	for seat, amount := range p.Deltas {
		if state.Seats[seat] == "" || amount == 0 {
			continue
		}
		updates = append(updates, ports.WalletUpdate{
			UserID: state.Seats[seat],
			Amount: amount,
			Metadata: map[string]interface{}{
				"match_id": matchID,
				"reason":   "round_settlement",
				"winner":   p.Winner,
			},
		})
	}
	if err := state.Economy.UpdateBalances(ctx, updates); err != nil {
		logger.Error("Failed to update balances: %v", err)
	}
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, data, err := encodeEvent(ev)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	var recipients []runtime.Presence
	if ev.Private() {
		for _, seat := range ev.Recipients {
			if p, ok := state.Presences[state.Seats[seat]]; ok {
				recipients = append(recipients, p)
			}
		}
		// A private event must never fall back to a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

// resendHand gives a reconnecting player their hand back.
func (mh *matchHandler) resendHand(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, seat int) {
	if !state.RoundActive() {
		return
	}
	mh.broadcastEvent(state, dispatcher, logger, app.Event{
		Kind:       app.EventHandDealt,
		Payload:    app.HandDealtPayload{Seat: seat, Hand: state.Round.Hand(seat)},
		Recipients: []int{seat},
	})
}

func (mh *matchHandler) broadcastSeats(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	data, err := encodeSeats(state)
	if err != nil {
		logger.Error("broadcastSeats: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpSeatsUpdated, data, nil, nil, true); err != nil {
		logger.Error("broadcastSeats: Failed to broadcast: %v", err)
	}
}

// sendError sends a game error to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := encodeError(code, message)
	if err != nil {
		logger.Error("Failed to marshal game error: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	if err := dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send game error: %v", err)
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	phase := labelPhaseLobby
	if state.RoundActive() {
		phase = labelPhasePlaying
	}

	label, err := encodeLabel(state.GetOpenSeatsCount(), phase)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	return state
}

type signalRequest struct {
	Kind   string `json:"kind"`
	UserID string `json:"user_id"`
}

type signalResponse struct {
	Ticket    string `json:"ticket,omitempty"`
	Seat      int    `json:"seat"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

const signalSeatTicket = "seat_ticket"

var (
	errNotSeated       = errors.New("user is not seated in this match")
	errRoundInProgress = errors.New("round in progress")
)

// MatchSignal issues seat tickets on behalf of the seat_ticket RPC.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}

	var req signalRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil || req.Kind != signalSeatTicket {
		return state, signalError("unsupported signal")
	}

	seat := matchState.SeatOf(req.UserID)
	if seat < 0 {
		return state, signalError(errNotSeated.Error())
	}
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	ticket, err := matchState.Tickets.Issue(req.UserID, matchID, seat)
	if err != nil {
		logger.Warn("MatchSignal: Could not issue seat ticket for %s: %v", req.UserID, err)
		return state, signalError(err.Error())
	}

	out, _ := json.Marshal(signalResponse{Ticket: ticket, Seat: seat, ExpiresAt: time.Now().Add(matchState.Tickets.TTL()).Unix()})
	return state, string(out)
}

func signalError(msg string) string {
	out, _ := json.Marshal(signalResponse{Seat: -1, Error: msg})
	return string(out)
}
