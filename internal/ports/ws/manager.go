package ws

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bigtwo/internal/app"
)

// RoomManager owns the live rooms of a websocket server.
type RoomManager struct {
	ctx  context.Context
	turn time.Duration
	opts []app.Option

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRoomManager creates rooms whose tables live until ctx is cancelled or the
// room empties. turn is how long a seat may think before it is moved for.
func NewRoomManager(ctx context.Context, turn time.Duration, opts ...app.Option) *RoomManager {
	return &RoomManager{
		ctx:   ctx,
		turn:  turn,
		opts:  opts,
		rooms: make(map[string]*Room),
	}
}

// CreateRoom opens a room under a fresh code.
func (m *RoomManager) CreateRoom() *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := m.generateCode()
	room := newRoom(m.ctx, code, app.NewService(nil, m.opts...), m.turn)
	m.rooms[code] = room
	return room
}

// GetRoom returns a room by code (case-insensitive)
func (m *RoomManager) GetRoom(code string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[strings.ToLower(code)]
}

// RemoveRoom closes and forgets a room.
func (m *RoomManager) RemoveRoom(code string) {
	m.mu.Lock()
	room, ok := m.rooms[strings.ToLower(code)]
	delete(m.rooms, strings.ToLower(code))
	m.mu.Unlock()

	if ok {
		room.Close()
	}
}

// Rooms lists every room ordered by code.
func (m *RoomManager) Rooms() []RoomInfo {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	out := make([]RoomInfo, len(rooms))
	for i, r := range rooms {
		out[i] = r.Info()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// generateCode returns an unused 8 character room code.
func (m *RoomManager) generateCode() string {
	for {
		code := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}
