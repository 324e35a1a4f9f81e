package pasetotoken

import (
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Subject is who a token is issued to.
type Subject struct {
	UserID uuid.UUID
	Kind   constants.AccountKind
	Role   constants.Role
}

// Claims is the app-facing token payload.
type Claims struct {
	Type TokenType

	UserID    uuid.UUID
	Kind      constants.AccountKind
	Role      constants.Role
	SessionID *uuid.UUID

	Issuer   string
	Audience string

	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
	TokenID   string // jti
}

func (c *Claims) GetUserID() uuid.UUID { return c.UserID }

func (c *Claims) GetSessionID() *uuid.UUID { return c.SessionID }

func (c *Claims) GetTokenType() string { return string(c.Type) }

func (c *Claims) GetRole() constants.Role { return c.Role }

func (c *Claims) GetKind() constants.AccountKind { return c.Kind }

func (c *Claims) IsExpired() bool { return time.Now().After(c.ExpiresAt) }

func (c *Claims) Subject() Subject {
	return Subject{UserID: c.UserID, Kind: c.Kind, Role: c.Role}
}
