package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	pasetotoken "github.com/Alijeyrad/dentlab_backend/pkg/paseto"
	"github.com/Alijeyrad/dentlab_backend/pkg/util/otp"
	"github.com/Alijeyrad/dentlab_backend/pkg/util/password"
)

// --- fakes -----------------------------------------------------------------

type memAdmins struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*repo.Admin
}

func (m *memAdmins) Create(_ context.Context, a *repo.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == a.Email {
			return repo.ErrDuplicate
		}
	}
	a.ID = uuid.New()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAdmins) Get(_ context.Context, id uuid.UUID) (*repo.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAdmins) GetByEmail(_ context.Context, email string) (*repo.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memAdmins) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (m *memAdmins) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memUsers struct {
	byID map[uuid.UUID]*repo.User
}

func (m *memUsers) Get(_ context.Context, id uuid.UUID) (*repo.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*repo.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type memSessions struct {
	mu   sync.Mutex
	subs map[uuid.UUID]pasetotoken.Subject
}

func (m *memSessions) Create(_ context.Context, id uuid.UUID, sub pasetotoken.Subject, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[id] = sub
	return nil
}

func (m *memSessions) Get(_ context.Context, id uuid.UUID) (*pasetotoken.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &sub, nil
}

func (m *memSessions) Touch(ctx context.Context, id uuid.UUID, _ time.Duration) error {
	_, err := m.Get(ctx, id)
	return err
}

func (m *memSessions) Revoke(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
	return nil
}

func (m *memSessions) RevokeAll(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sub := range m.subs {
		if sub.UserID == userID {
			delete(m.subs, id)
		}
	}
	return nil
}

// memCodes issues a fixed code so tests can verify it.
type memCodes struct {
	codes  map[string]string
	tokens map[string]string
}

func (m *memCodes) Config() otp.Config { return otp.DefaultConfig() }

func (m *memCodes) Issue(_ context.Context, purpose, subject string) (string, error) {
	m.codes[purpose+":"+subject] = "123456"
	return "123456", nil
}

func (m *memCodes) Check(_ context.Context, purpose, subject, code string) error {
	want, ok := m.codes[purpose+":"+subject]
	if !ok {
		return otp.ErrExpired
	}
	if want != code {
		return otp.ErrMismatch
	}
	delete(m.codes, purpose+":"+subject)
	return nil
}

func (m *memCodes) PutToken(_ context.Context, purpose, token, subject string) error {
	m.tokens[purpose+":"+token] = subject
	return nil
}

func (m *memCodes) TakeToken(_ context.Context, purpose, token string) (string, error) {
	s, ok := m.tokens[purpose+":"+token]
	if !ok {
		return "", otp.ErrExpired
	}
	delete(m.tokens, purpose+":"+token)
	return s, nil
}

type sentMail struct{ to, code string }

type memMailer struct {
	sent []sentMail
	err  error
}

func (m *memMailer) SendResetOTP(_ context.Context, to, _, code string, _ int) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, code: code})
	return nil
}

// --- harness ---------------------------------------------------------------

type harness struct {
	svc      Service
	admins   *memAdmins
	users    *memUsers
	sessions *memSessions
	mailer   *memMailer
	tokens   *pasetotoken.Manager
	hasher   *password.Hasher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	keys := pasetotoken.NewLocalKeys()
	tm, err := pasetotoken.New(pasetotoken.Config{
		Mode:      keys.Mode,
		Issuer:    "dentlab",
		Audience:  "dentlab-api",
		AccessTTL: time.Minute,
	}, keys)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	h := &harness{
		admins:   &memAdmins{byID: map[uuid.UUID]*repo.Admin{}},
		users:    &memUsers{byID: map[uuid.UUID]*repo.User{}},
		sessions: &memSessions{subs: map[uuid.UUID]pasetotoken.Subject{}},
		mailer:   &memMailer{},
		tokens:   tm,
		hasher:   password.NewHasher(password.Config{MemoryKiB: 1024, Iterations: 1, Parallelism: 1}),
	}
	codes := &memCodes{codes: map[string]string{}, tokens: map[string]string{}}
	h.svc = New(h.admins, h.users, h.sessions, codes, h.mailer, tm, h.hasher, nil)
	return h
}

func (h *harness) addUser(t *testing.T, email, pass, status string) *repo.User {
	t.Helper()
	hash, err := h.hasher.Hash(pass)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &repo.User{
		ID:           uuid.New(),
		Name:         "Nurse Joy",
		Email:        email,
		PasswordHash: hash,
		Role:         constants.RolePracticeNurse,
		Status:       status,
	}
	h.users.byID[u.ID] = u
	return u
}

// --- tests -----------------------------------------------------------------

func TestSignup(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tests := []struct {
		name string
		req  SignupRequest
		want error
	}{
		{"missing fields", SignupRequest{Email: "a@lab.test"}, ErrFieldsRequired},
		{"bad email", SignupRequest{Name: "A", Email: "not-an-email", Password: "secret1"}, ErrInvalidEmail},
		{"short password", SignupRequest{Name: "A", Email: "a@lab.test", Password: "abc"}, ErrPasswordTooShort},
		{"staff role", SignupRequest{Name: "A", Email: "a@lab.test", Password: "secret1", Role: constants.RoleDentist}, ErrInvalidRole},
		{"ok", SignupRequest{Name: "A", Email: " A@Lab.test ", Password: "secret1"}, nil},
		{"duplicate", SignupRequest{Name: "B", Email: "a@lab.test", Password: "secret1"}, ErrEmailInUse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := h.svc.Signup(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.want == nil {
				if a.Email != "a@lab.test" {
					t.Errorf("email = %q, want normalized", a.Email)
				}
				if a.Role != constants.RoleAdmin {
					t.Errorf("role = %q, want admin default", a.Role)
				}
				if a.PasswordHash == "secret1" {
					t.Error("password stored in clear")
				}
			}
		})
	}
}

func TestAdminLoginAndRefresh(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if _, err := h.svc.Signup(ctx, SignupRequest{Name: "Root", Email: "root@lab.test", Password: "secret1", Role: constants.RoleSuperAdmin}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := h.svc.AdminLogin(ctx, LoginRequest{Email: "nobody@lab.test", Password: "x"}); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("unknown email err = %v", err)
	}
	if _, err := h.svc.AdminLogin(ctx, LoginRequest{Email: "root@lab.test", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}

	res, err := h.svc.AdminLogin(ctx, LoginRequest{Email: "root@lab.test", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Admin == nil || res.User != nil {
		t.Fatalf("login result = %+v, want admin only", res)
	}
	claims, err := h.tokens.Verify(res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Kind != constants.KindAdmin || claims.Role != constants.RoleSuperAdmin {
		t.Errorf("claims = %+v", claims)
	}
	if err := h.svc.Session(ctx, *claims.SessionID); err != nil {
		t.Fatalf("session after login: %v", err)
	}

	if _, err := h.svc.Refresh(ctx, res.Tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh with access token err = %v", err)
	}
	fresh, err := h.svc.Refresh(ctx, res.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if fresh.RefreshToken != res.Tokens.RefreshToken {
		t.Error("refresh token should be reused")
	}

	if err := h.svc.Logout(ctx, *claims.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := h.svc.Refresh(ctx, res.Tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("refresh after logout err = %v, want ErrSessionNotFound", err)
	}
}

func TestUserLogin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addUser(t, "nurse@clinic.test", "secret1", constants.StatusActive)
	h.addUser(t, "gone@clinic.test", "secret1", constants.StatusInactive)

	tests := []struct {
		name  string
		email string
		pass  string
		want  error
	}{
		{"empty", "", "", ErrFieldsRequired},
		{"unknown", "x@clinic.test", "secret1", ErrInvalidCredentials},
		{"wrong password", "nurse@clinic.test", "nope", ErrInvalidCredentials},
		{"inactive", "gone@clinic.test", "secret1", ErrAccountInactive},
		{"ok", "NURSE@clinic.test", "secret1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.svc.UserLogin(ctx, LoginRequest{Email: tt.email, Password: tt.pass})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if err == nil && (res.User == nil || res.User.Role != constants.RolePracticeNurse) {
				t.Errorf("user = %+v", res.User)
			}
		})
	}
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.addUser(t, "nurse@clinic.test", "secret1", constants.StatusActive)

	if err := h.svc.ForgotPassword(ctx, "missing@clinic.test"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("unknown account err = %v", err)
	}

	login, err := h.svc.UserLogin(ctx, LoginRequest{Email: u.Email, Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := h.svc.ForgotPassword(ctx, u.Email); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	if len(h.mailer.sent) != 1 || h.mailer.sent[0].to != u.Email {
		t.Fatalf("sent = %+v", h.mailer.sent)
	}

	if _, err := h.svc.VerifyResetOTP(ctx, u.Email, ""); !errors.Is(err, ErrOTPRequired) {
		t.Errorf("empty code err = %v", err)
	}
	if _, err := h.svc.VerifyResetOTP(ctx, u.Email, "000000"); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("wrong code err = %v", err)
	}
	token, err := h.svc.VerifyResetOTP(ctx, u.Email, h.mailer.sent[0].code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := h.svc.VerifyResetOTP(ctx, u.Email, h.mailer.sent[0].code); !errors.Is(err, ErrNoActiveOTP) {
		t.Errorf("reused code err = %v", err)
	}

	if err := h.svc.ResetPassword(ctx, ResetPasswordRequest{ResetToken: token, NewPassword: "newpass1", ConfirmPassword: "other"}); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("mismatch err = %v", err)
	}
	if err := h.svc.ResetPassword(ctx, ResetPasswordRequest{ResetToken: token, NewPassword: "newpass1", ConfirmPassword: "newpass1"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := h.svc.ResetPassword(ctx, ResetPasswordRequest{ResetToken: token, NewPassword: "newpass1", ConfirmPassword: "newpass1"}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused token err = %v", err)
	}

	if _, err := h.svc.UserLogin(ctx, LoginRequest{Email: u.Email, Password: "newpass1"}); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	claims, err := h.tokens.Verify(login.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := h.svc.Session(ctx, *claims.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("old session survived reset: %v", err)
	}
}

func TestForgotPasswordMailFailure(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "nurse@clinic.test", "secret1", constants.StatusActive)
	h.mailer.err = errors.New("smtp down")

	if err := h.svc.ForgotPassword(context.Background(), "nurse@clinic.test"); !errors.Is(err, ErrMailFailed) {
		t.Fatalf("err = %v, want ErrMailFailed", err)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.addUser(t, "nurse@clinic.test", "secret1", constants.StatusActive)
	sub := pasetotoken.Subject{UserID: u.ID, Kind: constants.KindUser, Role: u.Role}

	tests := []struct {
		name string
		req  ChangePasswordRequest
		want error
	}{
		{"mismatch", ChangePasswordRequest{OldPassword: "secret1", NewPassword: "abcdef", ConfirmPassword: "abcdeg"}, ErrPasswordMismatch},
		{"too short", ChangePasswordRequest{OldPassword: "secret1", NewPassword: "abc", ConfirmPassword: "abc"}, ErrPasswordTooShort},
		{"wrong old", ChangePasswordRequest{OldPassword: "nope", NewPassword: "abcdef", ConfirmPassword: "abcdef"}, ErrWrongPassword},
		{"ok", ChangePasswordRequest{OldPassword: "secret1", NewPassword: "abcdef", ConfirmPassword: "abcdef"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.svc.ChangePassword(ctx, sub, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if err := h.hasher.Verify(h.users.byID[u.ID].PasswordHash, "abcdef"); err != nil {
		t.Errorf("new password not stored: %v", err)
	}
}

func TestDeleteAdmin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	root, err := h.svc.Signup(ctx, SignupRequest{Name: "Root", Email: "root@lab.test", Password: "secret1", Role: constants.RoleSuperAdmin})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	other, err := h.svc.Signup(ctx, SignupRequest{Name: "Ops", Email: "ops@lab.test", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := h.svc.DeleteAdmin(ctx, root.ID, root.ID); !errors.Is(err, ErrCannotDeleteSelf) {
		t.Errorf("self delete err = %v", err)
	}
	if err := h.svc.DeleteAdmin(ctx, root.ID, other.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := h.svc.DeleteAdmin(ctx, root.ID, other.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}
