package ws

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to game sessions.
type Handler struct {
	rooms *RoomManager
}

func NewHandler(rooms *RoomManager) *Handler {
	return &Handler{rooms: rooms}
}

// session is one connection's view of the room it sits in. Only the read loop
// touches it.
type session struct {
	id   string
	conn *conn
	room *Room
	seat int
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s := &session{id: uuid.NewString(), conn: &conn{ws: ws}, seat: -1}
	defer h.disconnect(s)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("player", s.id).Msg("websocket closed")
			}
			return
		}
		h.handleMessage(r.Context(), s, data)
	}
}

func (h *Handler) handleMessage(ctx context.Context, s *session, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(s, CodeMalformed, "invalid message format")
		return
	}
	log.Debug().Str("player", s.id).Str("type", msg.Type).Msg("received")

	switch msg.Type {
	case MsgJoin:
		h.handleJoin(s, msg)
	case MsgReady:
		h.handleReady(ctx, s)
	case MsgPlay:
		h.handlePlay(ctx, s, msg)
	case MsgPass:
		h.handlePass(ctx, s)
	default:
		h.sendError(s, CodeMalformed, "unknown message type")
	}
}

func (h *Handler) handleJoin(s *session, msg ClientMessage) {
	if s.room != nil {
		h.sendError(s, CodeConflict, "already in a room")
		return
	}

	var room *Room
	if msg.Room == "" {
		room = h.rooms.CreateRoom()
		log.Info().Str("room", room.Code).Str("player", s.id).Msg("room created")
	} else if room = h.rooms.GetRoom(msg.Room); room == nil {
		h.sendError(s, CodeNotFound, "room not found")
		return
	}

	seat, err := room.Join(s.id, s.conn)
	if err != nil {
		h.sendError(s, CodeConflict, err.Error())
		return
	}
	s.room, s.seat = room, seat
	log.Info().Str("room", room.Code).Str("player", s.id).Int("seat", seat).Msg("player joined")

	if err := s.conn.send(ServerMessage{Type: MsgJoined, Room: room.Code, PlayerID: s.id, Seat: &seat}); err != nil {
		log.Warn().Err(err).Str("player", s.id).Msg("write failed")
	}
	room.broadcastSeats()
}

func (h *Handler) handleReady(ctx context.Context, s *session) {
	if s.room == nil {
		h.sendError(s, CodeConflict, ErrNotSeated.Error())
		return
	}
	start, err := s.room.SetReady(s.seat)
	if err != nil {
		h.sendError(s, CodeConflict, err.Error())
		return
	}
	s.room.broadcastSeats()
	if !start {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if _, err := s.room.table.Start(ctx); err != nil {
		s.room.startFailed()
		log.Error().Err(err).Str("room", s.room.Code).Msg("could not start round")
		h.sendError(s, CodeConflict, err.Error())
	}
}

func (h *Handler) handlePlay(ctx context.Context, s *session, msg ClientMessage) {
	if s.room == nil {
		h.sendError(s, CodeConflict, ErrNotSeated.Error())
		return
	}
	cards, err := parseCards(msg.Cards)
	if err != nil {
		h.sendError(s, CodeMalformed, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if _, err := s.room.table.Play(ctx, s.seat, cards); err != nil {
		h.sendError(s, errorCode(err), err.Error())
	}
}

func (h *Handler) handlePass(ctx context.Context, s *session) {
	if s.room == nil {
		h.sendError(s, CodeConflict, ErrNotSeated.Error())
		return
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if _, err := s.room.table.Pass(ctx, s.seat); err != nil {
		h.sendError(s, errorCode(err), err.Error())
	}
}

// disconnect frees the session's seat. A round in progress cannot continue
// with an empty seat and is aborted.
func (h *Handler) disconnect(s *session) {
	defer s.conn.ws.Close()
	if s.room == nil {
		return
	}

	room := s.room
	wasPlaying, empty := room.Leave(s.id)
	log.Info().Str("room", room.Code).Str("player", s.id).Int("seat", s.seat).Msg("player left")

	if empty {
		h.rooms.RemoveRoom(room.Code)
		return
	}
	if wasPlaying {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if _, err := room.table.Abort(ctx, "player left"); err != nil {
			log.Warn().Err(err).Str("room", room.Code).Msg("abort failed")
		}
	}
	room.broadcastSeats()
}

func (h *Handler) sendError(s *session, code int, reason string) {
	if err := s.conn.send(errorMessage(code, reason)); err != nil {
		log.Warn().Err(err).Str("player", s.id).Msg("write failed")
	}
}
