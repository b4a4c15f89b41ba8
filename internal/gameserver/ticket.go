package gameserver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Ticket validation failures. All of them close the handshake the same
// way; the split exists for logs and tests.
var (
	ErrTicketMissing = errors.New("ticket is required")
	ErrTicketInvalid = errors.New("ticket is invalid")
	ErrTicketExpired = errors.New("ticket is expired")
)

// TicketClaims is the identity a verified connect ticket grants.
type TicketClaims struct {
	UserID string
	Name   string
	Shape  string
	Color  string
}

// ticketClaims is the wire claims shape used for JWT parsing.
type ticketClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Shape string `json:"shape"`
	Color string `json:"color"`
}

// TicketVerifier checks connect tickets issued by the session service.
// Tickets are HS256 JWTs over a shared secret with the user id in the
// subject claim.
type TicketVerifier struct {
	secret []byte
}

func NewTicketVerifier(secret string) (*TicketVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("ticket secret is required")
	}
	return &TicketVerifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a ticket and returns the identity it
// carries. Expiry is mandatory; a ticket that never expires is treated
// as forged.
func (v *TicketVerifier) Verify(token string) (TicketClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TicketClaims{}, ErrTicketMissing
	}

	var parsed ticketClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return TicketClaims{}, mapTicketError(err)
	}

	if strings.TrimSpace(parsed.Subject) == "" {
		return TicketClaims{}, fmt.Errorf("%w: subject is required", ErrTicketInvalid)
	}
	if strings.TrimSpace(parsed.Name) == "" {
		return TicketClaims{}, fmt.Errorf("%w: name is required", ErrTicketInvalid)
	}

	return TicketClaims{
		UserID: parsed.Subject,
		Name:   parsed.Name,
		Shape:  parsed.Shape,
		Color:  parsed.Color,
	}, nil
}

// mapTicketError folds jwt library failures into the package sentinels.
func mapTicketError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTicketExpired
	}
	return fmt.Errorf("%w: %v", ErrTicketInvalid, err)
}
