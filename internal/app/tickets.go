package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/spf13/cast"

	"bigtwo/internal/domain"
)

var ErrInvalidTicket = errors.New("invalid seat ticket")

// SeatTicket is the verified content of a reconnect ticket.
type SeatTicket struct {
	UserID    string
	MatchID   string
	Seat      int
	ExpiresAt time.Time
}

// TicketIssuer signs and verifies seat tickets that let a dropped player reclaim
// their seat in a running match.
type TicketIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTicketIssuer(secret string, ttl time.Duration) *TicketIssuer {
	return &TicketIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is how long issued tickets stay valid.
func (s *TicketIssuer) TTL() time.Duration {
	return s.ttl
}

func (s *TicketIssuer) Issue(userID, matchID string, seat int) (string, error) {
	if s == nil {
		return "", fmt.Errorf("ticket issuer is nil")
	}
	if len(s.secret) == 0 {
		return "", fmt.Errorf("ticket secret is not configured")
	}
	if userID == "" || matchID == "" {
		return "", fmt.Errorf("user and match are required")
	}
	if !domain.ValidSeat(seat) {
		return "", fmt.Errorf("seat %d out of range", seat)
	}

	claims := jwt.MapClaims{
		"sub":  userID,
		"mid":  matchID,
		"seat": seat,
		"exp":  s.now().Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature, expiry and that the ticket was issued for matchID.
func (s *TicketIssuer) Verify(tokenString, matchID string) (SeatTicket, error) {
	if s == nil || len(s.secret) == 0 {
		return SeatTicket{}, fmt.Errorf("%w: issuer not configured", ErrInvalidTicket)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return SeatTicket{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return SeatTicket{}, ErrInvalidTicket
	}

	ticket := SeatTicket{
		UserID:  cast.ToString(claims["sub"]),
		MatchID: cast.ToString(claims["mid"]),
	}
	if ticket.MatchID != matchID {
		return SeatTicket{}, fmt.Errorf("%w: issued for another match", ErrInvalidTicket)
	}
	if ticket.UserID == "" {
		return SeatTicket{}, fmt.Errorf("%w: missing subject", ErrInvalidTicket)
	}
	ticket.Seat, err = cast.ToIntE(claims["seat"])
	if err != nil || !domain.ValidSeat(ticket.Seat) {
		return SeatTicket{}, fmt.Errorf("%w: bad seat claim", ErrInvalidTicket)
	}
	exp, err := cast.ToInt64E(claims["exp"])
	if err != nil {
		return SeatTicket{}, fmt.Errorf("%w: bad exp claim", ErrInvalidTicket)
	}
	ticket.ExpiresAt = time.Unix(exp, 0)
	return ticket, nil
}
