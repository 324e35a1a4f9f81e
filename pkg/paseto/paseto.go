package pasetotoken

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type Config struct {
	Mode Mode

	Issuer   string
	Audience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Implicit []byte
}

type Manager struct {
	cfg  Config
	keys Keys
}

func New(cfg Config, keys Keys) (*Manager, error) {
	if cfg.Mode != keys.Mode {
		return nil, ConfigError{Reason: "cfg.Mode must match keys.Mode"}
	}
	if cfg.Issuer == "" {
		return nil, ConfigError{Reason: "Issuer is required"}
	}
	if cfg.Audience == "" {
		return nil, ConfigError{Reason: "Audience is required"}
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Manager{cfg: cfg, keys: keys}, nil
}

func (m *Manager) AccessTTL() time.Duration  { return m.cfg.AccessTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }

func (m *Manager) IssueAccess(sub Subject, sessionID *uuid.UUID) (string, error) {
	return m.issue(TokenTypeAccess, sub, sessionID, m.cfg.AccessTTL)
}

func (m *Manager) IssueRefresh(sub Subject, sessionID *uuid.UUID) (string, error) {
	return m.issue(TokenTypeRefresh, sub, sessionID, m.cfg.RefreshTTL)
}

// Verify checks signature/encryption, issuer, audience and expiry.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(m.cfg.Issuer))
	p.AddRule(paseto.ForAudience(m.cfg.Audience))
	p.AddRule(paseto.NotExpired())

	var (
		tok *paseto.Token
		err error
	)
	switch m.cfg.Mode {
	case ModeLocal:
		if m.keys.Symmetric == nil {
			return nil, ConfigError{Reason: "missing symmetric key"}
		}
		tok, err = p.ParseV4Local(*m.keys.Symmetric, tokenStr, m.cfg.Implicit)
	case ModePublic:
		if m.keys.Public == nil {
			return nil, ConfigError{Reason: "missing public key"}
		}
		tok, err = p.ParseV4Public(*m.keys.Public, tokenStr, m.cfg.Implicit)
	default:
		return nil, ConfigError{Reason: "unknown mode"}
	}
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}

	claims, err := readClaims(tok)
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}
	claims.Issuer = m.cfg.Issuer
	claims.Audience = m.cfg.Audience
	return claims, nil
}

func (m *Manager) issue(tt TokenType, sub Subject, sessionID *uuid.UUID, ttl time.Duration) (string, error) {
	if sub.UserID == uuid.Nil {
		return "", ConfigError{Reason: "subject user id is required"}
	}
	now := time.Now()

	tok := paseto.NewToken()
	tok.SetIssuer(m.cfg.Issuer)
	tok.SetAudience(m.cfg.Audience)
	tok.SetJti(randHex(16))
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(now.Add(ttl))
	tok.SetSubject(sub.UserID.String())

	tok.SetString("typ", string(tt))
	tok.SetString("uid", sub.UserID.String())
	tok.SetString("knd", string(sub.Kind))
	tok.SetString("rol", string(sub.Role))
	if sessionID != nil {
		tok.SetString("sid", sessionID.String())
	}

	switch m.cfg.Mode {
	case ModeLocal:
		if m.keys.Symmetric == nil {
			return "", ConfigError{Reason: "missing symmetric key"}
		}
		return tok.V4Encrypt(*m.keys.Symmetric, m.cfg.Implicit), nil
	case ModePublic:
		if m.keys.Secret == nil {
			return "", ConfigError{Reason: "missing secret key"}
		}
		return tok.V4Sign(*m.keys.Secret, m.cfg.Implicit), nil
	default:
		return "", ConfigError{Reason: "unknown mode"}
	}
}

func randHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func readClaims(tok *paseto.Token) (*Claims, error) {
	out := &Claims{}
	var err error

	if out.TokenID, err = tok.GetJti(); err != nil {
		return nil, err
	}
	if out.IssuedAt, err = tok.GetIssuedAt(); err != nil {
		return nil, err
	}
	if out.NotBefore, err = tok.GetNotBefore(); err != nil {
		return nil, err
	}
	if out.ExpiresAt, err = tok.GetExpiration(); err != nil {
		return nil, err
	}

	typ, err := tok.GetString("typ")
	if err != nil {
		return nil, err
	}
	out.Type = TokenType(typ)

	uidStr, err := tok.GetString("uid")
	if err != nil {
		return nil, err
	}
	if out.UserID, err = uuid.Parse(uidStr); err != nil {
		return nil, err
	}

	kind, err := tok.GetString("knd")
	if err != nil {
		return nil, err
	}
	out.Kind = constants.AccountKind(kind)
	if out.Kind != constants.KindAdmin && out.Kind != constants.KindUser {
		return nil, fmt.Errorf("unknown account kind %q", kind)
	}

	role, err := tok.GetString("rol")
	if err != nil {
		return nil, err
	}
	out.Role = constants.Role(role)

	if sidStr, err := tok.GetString("sid"); err == nil {
		sid, err := uuid.Parse(sidStr)
		if err != nil {
			return nil, err
		}
		out.SessionID = &sid
	}

	return out, nil
}
