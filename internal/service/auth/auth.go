package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	pasetotoken "github.com/Alijeyrad/dentlab_backend/pkg/paseto"
	"github.com/Alijeyrad/dentlab_backend/pkg/util/otp"
	"github.com/Alijeyrad/dentlab_backend/pkg/util/password"
)

const (
	purposeReset = "reset"
	tokenReset   = "reset"
)

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

type AdminStore interface {
	Create(ctx context.Context, a *repo.Admin) error
	Get(ctx context.Context, id uuid.UUID) (*repo.Admin, error)
	GetByEmail(ctx context.Context, email string) (*repo.Admin, error)
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
	GetByEmail(ctx context.Context, email string) (*repo.User, error)
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
}

// Codes is satisfied by *otp.Store.
type Codes interface {
	Issue(ctx context.Context, purpose, subject string) (string, error)
	Check(ctx context.Context, purpose, subject, code string) error
	PutToken(ctx context.Context, purpose, token, subject string) error
	TakeToken(ctx context.Context, purpose, token string) (string, error)
	Config() otp.Config
}

type Mailer interface {
	SendResetOTP(ctx context.Context, to, name, code string, ttlMinutes int) error
}

type Tokens interface {
	IssueAccess(sub pasetotoken.Subject, sessionID *uuid.UUID) (string, error)
	IssueRefresh(sub pasetotoken.Subject, sessionID *uuid.UUID) (string, error)
	Verify(token string) (*pasetotoken.Claims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type SignupRequest struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     constants.Role
}

type LoginRequest struct {
	Email    string
	Password string
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// LoginResult carries exactly one of Admin or User.
type LoginResult struct {
	Tokens AuthTokens
	Admin  *repo.Admin
	User   *repo.User
}

type ResetPasswordRequest struct {
	ResetToken      string
	NewPassword     string
	ConfirmPassword string
}

type ChangePasswordRequest struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*repo.Admin, error)
	AdminLogin(ctx context.Context, req LoginRequest) (*LoginResult, error)
	UserLogin(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	// Session reports whether a session is still live; AuthRequired uses it.
	Session(ctx context.Context, sessionID uuid.UUID) error

	ForgotPassword(ctx context.Context, email string) error
	VerifyResetOTP(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	ChangePassword(ctx context.Context, sub pasetotoken.Subject, req ChangePasswordRequest) error

	DeleteAdmin(ctx context.Context, callerID, id uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type authService struct {
	admins   AdminStore
	users    UserStore
	sessions Sessions
	codes    Codes
	mailer   Mailer
	tokens   Tokens
	hasher   *password.Hasher
	authz    authorize.IAuthorization
}

func New(
	admins AdminStore,
	users UserStore,
	sessions Sessions,
	codes Codes,
	mailer Mailer,
	tokens Tokens,
	hasher *password.Hasher,
	authz authorize.IAuthorization,
) Service {
	return &authService{
		admins:   admins,
		users:    users,
		sessions: sessions,
		codes:    codes,
		mailer:   mailer,
		tokens:   tokens,
		hasher:   hasher,
		authz:    authz,
	}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

// ---------------------------------------------------------------------------
// Signup / Login
// ---------------------------------------------------------------------------

func (s *authService) Signup(ctx context.Context, req SignupRequest) (*repo.Admin, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, ErrFieldsRequired
	}
	if !validEmail(req.Email) {
		return nil, ErrInvalidEmail
	}
	if err := password.Validate(req.Password); err != nil {
		return nil, ErrPasswordTooShort
	}
	if req.Role == "" {
		req.Role = constants.RoleAdmin
	}
	if !req.Role.IsAdmin() {
		return nil, ErrInvalidRole
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &repo.Admin{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		if repo.IsDuplicate(err) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	if s.authz != nil {
		if err := authorize.AssignAccountRole(ctx, s.authz, a.ID, a.Role); err != nil {
			return nil, fmt.Errorf("assign role: %w", err)
		}
	}
	return a, nil
}

func (s *authService) AdminLogin(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrFieldsRequired
	}
	a, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNoAccount
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if err := s.hasher.Verify(a.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	s.rehash(ctx, a.PasswordHash, req.Password, func(h string) error { return s.admins.SetPassword(ctx, a.ID, h) })

	tokens, err := s.createSession(ctx, pasetotoken.Subject{UserID: a.ID, Kind: constants.KindAdmin, Role: a.Role})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: *tokens, Admin: a}, nil
}

func (s *authService) UserLogin(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrFieldsRequired
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := s.hasher.Verify(u.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Status != constants.StatusActive {
		return nil, ErrAccountInactive
	}
	s.rehash(ctx, u.PasswordHash, req.Password, func(h string) error { return s.users.SetPassword(ctx, u.ID, h) })

	tokens, err := s.createSession(ctx, pasetotoken.Subject{UserID: u.ID, Kind: constants.KindUser, Role: u.Role})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: *tokens, User: u}, nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil || claims.Type != pasetotoken.TokenTypeRefresh || claims.SessionID == nil {
		return nil, ErrInvalidToken
	}

	sub, err := s.sessions.Get(ctx, *claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}
	if err := s.sessions.Touch(ctx, *claims.SessionID, s.tokens.RefreshTTL()); err != nil {
		return nil, err
	}

	// refresh token stays the same until logout
	access, err := s.tokens.IssueAccess(*sub, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *authService) Session(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.sessions.Get(ctx, sessionID)
	return err
}

func (s *authService) createSession(ctx context.Context, sub pasetotoken.Subject) (*AuthTokens, error) {
	sessionID := uuid.Must(uuid.NewV7())
	if err := s.sessions.Create(ctx, sessionID, sub, s.tokens.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	access, err := s.tokens.IssueAccess(sub, &sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(sub, &sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *authService) rehash(ctx context.Context, hash, plain string, save func(string) error) {
	if !s.hasher.NeedsRehash(hash) {
		return
	}
	h, err := s.hasher.Hash(plain)
	if err == nil {
		err = save(h)
	}
	if err != nil {
		slog.WarnContext(ctx, "auth: password rehash failed", "error", err)
	}
}

// ---------------------------------------------------------------------------
// Password reset
// ---------------------------------------------------------------------------

// account is the part of an admin or staff user the reset flow needs.
type account struct {
	id    uuid.UUID
	kind  constants.AccountKind
	name  string
	email string
}

func (s *authService) findAccount(ctx context.Context, email string) (*account, error) {
	a, err := s.admins.GetByEmail(ctx, email)
	if err == nil {
		return &account{id: a.ID, kind: constants.KindAdmin, name: a.Name, email: a.Email}, nil
	}
	if !repo.IsNotFound(err) {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return &account{id: u.ID, kind: constants.KindUser, name: u.Name, email: u.Email}, nil
	}
	if repo.IsNotFound(err) {
		return nil, ErrAccountNotFound
	}
	return nil, fmt.Errorf("find user: %w", err)
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	acc, err := s.findAccount(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.codes.Issue(ctx, purposeReset, acc.email)
	if errors.Is(err, otp.ErrLocked) {
		return ErrOTPLocked
	}
	if err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}
	ttl := int(s.codes.Config().TTL / time.Minute)
	if err := s.mailer.SendResetOTP(ctx, acc.email, acc.name, code, ttl); err != nil {
		slog.ErrorContext(ctx, "auth: reset otp mail failed", "email", acc.email, "error", err)
		return ErrMailFailed
	}
	return nil
}

func (s *authService) VerifyResetOTP(ctx context.Context, email, code string) (string, error) {
	email = normalizeEmail(email)
	if strings.TrimSpace(code) == "" {
		return "", ErrOTPRequired
	}
	acc, err := s.findAccount(ctx, email)
	if err != nil {
		return "", err
	}

	switch err := s.codes.Check(ctx, purposeReset, acc.email, code); {
	case err == nil:
	case errors.Is(err, otp.ErrExpired):
		return "", ErrNoActiveOTP
	case errors.Is(err, otp.ErrMismatch):
		return "", ErrInvalidOTP
	case errors.Is(err, otp.ErrMaxAttempts), errors.Is(err, otp.ErrLocked):
		return "", ErrOTPLocked
	default:
		return "", fmt.Errorf("check otp: %w", err)
	}

	token, err := otp.Token(32)
	if err != nil {
		return "", err
	}
	if err := s.codes.PutToken(ctx, tokenReset, token, acc.email); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

func (s *authService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if req.ResetToken == "" {
		return ErrResetTokenRequired
	}
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if password.Validate(req.NewPassword) != nil {
		return ErrPasswordTooShort
	}

	email, err := s.codes.TakeToken(ctx, tokenReset, req.ResetToken)
	if err != nil {
		if errors.Is(err, otp.ErrExpired) {
			return ErrInvalidToken
		}
		return err
	}
	acc, err := s.findAccount(ctx, email)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, acc.kind, acc.id, req.NewPassword); err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, acc.id); err != nil {
		slog.WarnContext(ctx, "auth: revoke sessions after reset failed", "account_id", acc.id, "error", err)
	}
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, sub pasetotoken.Subject, req ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if password.Validate(req.NewPassword) != nil {
		return ErrPasswordTooShort
	}

	var current string
	switch sub.Kind {
	case constants.KindAdmin:
		a, err := s.admins.Get(ctx, sub.UserID)
		if err != nil {
			return s.lookupErr(err)
		}
		current = a.PasswordHash
	default:
		u, err := s.users.Get(ctx, sub.UserID)
		if err != nil {
			return s.lookupErr(err)
		}
		current = u.PasswordHash
	}
	if err := s.hasher.Verify(current, req.OldPassword); err != nil {
		return ErrWrongPassword
	}
	return s.setPassword(ctx, sub.Kind, sub.UserID, req.NewPassword)
}

func (s *authService) setPassword(ctx context.Context, kind constants.AccountKind, id uuid.UUID, plain string) error {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if kind == constants.KindAdmin {
		err = s.admins.SetPassword(ctx, id, hash)
	} else {
		err = s.users.SetPassword(ctx, id, hash)
	}
	if err != nil {
		return s.lookupErr(err)
	}
	return nil
}

func (s *authService) lookupErr(err error) error {
	if repo.IsNotFound(err) {
		return ErrAccountNotFound
	}
	return err
}

// ---------------------------------------------------------------------------
// Admin accounts
// ---------------------------------------------------------------------------

func (s *authService) DeleteAdmin(ctx context.Context, callerID, id uuid.UUID) error {
	if callerID == id {
		return ErrCannotDeleteSelf
	}
	a, err := s.admins.Get(ctx, id)
	if err != nil {
		return s.lookupErr(err)
	}
	if err := s.admins.Delete(ctx, id); err != nil {
		return s.lookupErr(err)
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		slog.WarnContext(ctx, "auth: revoke sessions of deleted admin failed", "admin_id", id, "error", err)
	}
	if s.authz != nil {
		if err := authorize.RemoveAccountRole(ctx, s.authz, id, a.Role); err != nil {
			slog.WarnContext(ctx, "auth: remove role grouping failed", "admin_id", id, "error", err)
		}
	}
	return nil
}
