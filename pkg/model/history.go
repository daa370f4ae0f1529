package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// TurnRole is the author of a conversation turn
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Validate checks that the role is one of the known values
func (r TurnRole) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return goerr.New("unknown turn role", goerr.V("role", string(r)))
	}
}

// HistoryTurn is one message in a conversation. Turns are append-only:
// insertion order is the only order, and a stored turn is never mutated.
type HistoryTurn struct {
	Role      TurnRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
