package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"
)

const (
	writeWait      = 5 * time.Second
	commandTimeout = 5 * time.Second
)

var (
	ErrRoomFull        = errors.New("room is full")
	ErrRoundInProgress = errors.New("round in progress")
	ErrNotSeated       = errors.New("not seated")
)

// conn serialises writes to a websocket connection.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

type player struct {
	id   string
	conn *conn
}

// RoomInfo is the public listing of a room.
type RoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Playing bool   `json:"playing"`
}

// Room seats up to four connections around one table. Moves go through the
// table actor; the table's sink fans events out to the seated connections and
// re-arms the turn timer.
type Room struct {
	Code  string
	table *app.Table
	turn  time.Duration
	stop  context.CancelFunc

	mu      sync.Mutex
	players [domain.NumSeats]*player
	ready   [domain.NumSeats]bool
	playing bool
	timer   *time.Timer
	turnGen uint64
}

func newRoom(ctx context.Context, code string, svc *app.Service, turn time.Duration) *Room {
	r := &Room{Code: code, turn: turn}
	r.table = app.NewTable(svc, r.dispatch)

	ctx, r.stop = context.WithCancel(ctx)
	go func() {
		if err := r.table.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("room", code).Msg("table stopped")
		}
	}()
	return r
}

// Join seats id at the lowest free seat.
func (r *Room) Join(id string, c *conn) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.playing {
		return -1, ErrRoundInProgress
	}
	for seat, p := range r.players {
		if p == nil {
			r.players[seat] = &player{id: id, conn: c}
			r.ready[seat] = false
			return seat, nil
		}
	}
	return -1, ErrRoomFull
}

// Leave frees id's seat. It reports whether a round was being played and
// whether the room is now empty.
func (r *Room) Leave(id string) (wasPlaying bool, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for seat, p := range r.players {
		if p != nil && p.id == id {
			r.players[seat] = nil
			r.ready[seat] = false
		}
	}
	return r.playing, r.countLocked() == 0
}

// SetReady marks seat ready and reports whether all four seats now are, in
// which case the caller must start the round.
func (r *Room) SetReady(seat int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !domain.ValidSeat(seat) || r.players[seat] == nil {
		return false, ErrNotSeated
	}
	if r.playing {
		return false, ErrRoundInProgress
	}
	r.ready[seat] = true
	for i := range r.players {
		if r.players[i] == nil || !r.ready[i] {
			return false, nil
		}
	}
	r.ready = [domain.NumSeats]bool{}
	r.playing = true
	return true, nil
}

// startFailed undoes SetReady's claim when the table refused to deal.
func (r *Room) startFailed() {
	r.mu.Lock()
	r.playing = false
	r.mu.Unlock()
}

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{Code: r.Code, Players: r.countLocked(), Playing: r.playing}
}

func (r *Room) countLocked() int {
	n := 0
	for _, p := range r.players {
		if p != nil {
			n++
		}
	}
	return n
}

func (r *Room) broadcastSeats() {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := ServerMessage{Type: MsgSeats, Room: r.Code, Seats: make([]string, domain.NumSeats), Ready: r.ready[:]}
	for seat, p := range r.players {
		if p != nil {
			msg.Seats[seat] = p.id
		}
	}
	r.broadcastLocked(msg)
}

func (r *Room) broadcastLocked(msg ServerMessage) {
	for seat, p := range r.players {
		if p == nil {
			continue
		}
		if err := p.conn.send(msg); err != nil {
			log.Warn().Err(err).Str("room", r.Code).Int("seat", seat).Msg("write failed")
		}
	}
}

// dispatch is the table sink. It runs on the table goroutine.
func (r *Room) dispatch(events []app.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range events {
		msg, err := eventMessage(ev)
		if err != nil {
			log.Error().Err(err).Str("room", r.Code).Msg("cannot encode event")
			continue
		}

		if ev.Private() {
			for _, seat := range ev.Recipients {
				if p := r.players[seat]; p != nil {
					if err := p.conn.send(msg); err != nil {
						log.Warn().Err(err).Str("room", r.Code).Int("seat", seat).Msg("write failed")
					}
				}
			}
		} else {
			r.broadcastLocked(msg)
		}

		switch p := ev.Payload.(type) {
		case app.RoundStartedPayload:
			r.armLocked(p.FirstSeat)
		case app.CardsPlayedPayload:
			r.armLocked(p.NextSeat)
		case app.TurnPassedPayload:
			r.armLocked(p.NextSeat)
		case app.RoundEndedPayload:
			log.Info().Str("room", r.Code).Int("winner", p.Winner).Ints64("deltas", p.Deltas[:]).Msg("round ended")
			r.endLocked()
		case app.RoundAbortedPayload:
			log.Info().Str("room", r.Code).Str("reason", p.Reason).Msg("round aborted")
			r.endLocked()
		}
	}
}

func (r *Room) armLocked(seat int) {
	r.turnGen++
	gen := r.turnGen
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.turn, func() { r.expire(gen, seat) })
}

func (r *Room) endLocked() {
	r.turnGen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.playing = false
	r.ready = [domain.NumSeats]bool{}
}

// expire moves for seat unless the turn has moved on since the timer was armed.
func (r *Room) expire(gen uint64, seat int) {
	r.mu.Lock()
	stale := gen != r.turnGen
	r.mu.Unlock()
	if stale {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if _, err := r.table.Timeout(ctx, seat); err != nil {
		log.Debug().Err(err).Str("room", r.Code).Int("seat", seat).Msg("turn timeout ignored")
	}
}

// Close stops the table and the turn timer.
func (r *Room) Close() {
	r.mu.Lock()
	r.endLocked()
	r.mu.Unlock()
	r.stop()
}
