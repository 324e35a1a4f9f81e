package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/config"
	"github.com/Alijeyrad/dentlab_backend/internal/service/auth"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	pasetotoken "github.com/Alijeyrad/dentlab_backend/pkg/paseto"
)

type AuthHandler struct {
	svc        auth.Service
	cookie     config.CookieConfig
	refreshTTL time.Duration
}

func NewAuthHandler(svc auth.Service, cookie config.CookieConfig, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie, refreshTTL: refreshTTL}
}

func (h *AuthHandler) setCookie(c fiber.Ctx, name, value string, ttl time.Duration) {
	sameSite := h.cookie.SameSite
	if sameSite == "" {
		sameSite = fiber.CookieSameSiteLaxMode
	}
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   int(ttl.Seconds()),
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: sameSite,
	})
}

func (h *AuthHandler) setTokenCookies(c fiber.Ctx, t auth.AuthTokens) {
	h.setCookie(c, pasetotoken.CookieAccess, t.AccessToken, time.Duration(t.ExpiresIn)*time.Second)
	h.setCookie(c, pasetotoken.CookieRefresh, t.RefreshToken, h.refreshTTL)
}

func (h *AuthHandler) clearTokenCookies(c fiber.Ctx) {
	for _, name := range []string{pasetotoken.CookieAccess, pasetotoken.CookieRefresh} {
		c.Cookie(&fiber.Cookie{Name: name, Value: "", Path: "/", Domain: h.cookie.Domain, MaxAge: -1, HTTPOnly: true})
	}
}

// POST /auth/signup  (superadmin)
func (h *AuthHandler) Signup(c fiber.Ctx) error {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}

	a, err := h.svc.Signup(c.Context(), auth.SignupRequest{
		Name:     body.Name,
		Email:    body.Email,
		Phone:    body.Phone,
		Password: body.Password,
		Role:     constants.Role(strings.ToLower(body.Role)),
	})
	if err != nil {
		return mapAuthError(c, err)
	}
	return created(c, "Admin created successfully", a)
}

func (h *AuthHandler) login(c fiber.Ctx, fn func(auth.LoginRequest) (*auth.LoginResult, error)) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	res, err := fn(auth.LoginRequest{Email: body.Email, Password: body.Password})
	if err != nil {
		return mapAuthError(c, err)
	}
	h.setTokenCookies(c, res.Tokens)

	data := fiber.Map{
		"accessToken":  res.Tokens.AccessToken,
		"refreshToken": res.Tokens.RefreshToken,
		"expiresIn":    res.Tokens.ExpiresIn,
	}
	if res.Admin != nil {
		data["admin"] = res.Admin
	} else {
		data["user"] = res.User
	}
	return ok(c, "Login successful", data)
}

// POST /auth/login
func (h *AuthHandler) AdminLogin(c fiber.Ctx) error {
	return h.login(c, func(req auth.LoginRequest) (*auth.LoginResult, error) {
		return h.svc.AdminLogin(c.Context(), req)
	})
}

// POST /user/user-login
func (h *AuthHandler) UserLogin(c fiber.Ctx) error {
	return h.login(c, func(req auth.LoginRequest) (*auth.LoginResult, error) {
		return h.svc.UserLogin(c.Context(), req)
	})
}

// POST /auth/refresh-token
//
// The refresh token is read from the body or the refreshToken cookie.
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.Bind().JSON(&body)
	tok := body.RefreshToken
	if tok == "" {
		tok = c.Cookies(pasetotoken.CookieRefresh)
	}
	if tok == "" {
		return fail(c, fiber.StatusUnauthorized, "Refresh token required")
	}

	tokens, err := h.svc.Refresh(c.Context(), tok)
	if err != nil {
		return mapAuthError(c, err)
	}
	h.setTokenCookies(c, *tokens)
	return ok(c, "Token refreshed", tokens)
}

// POST /auth/logout
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	if claims.SessionID != nil {
		if err := h.svc.Logout(c.Context(), *claims.SessionID); err != nil {
			return internalError(c, err)
		}
	}
	h.clearTokenCookies(c)
	return ok(c, "Logged out successfully", nil)
}

// POST /auth/forgot-password and /auth/resend-otp
func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.svc.ForgotPassword(c.Context(), body.Email); err != nil {
		return mapAuthError(c, err)
	}
	return ok(c, "OTP sent to your email", nil)
}

// POST /auth/verify-reset-otp
func (h *AuthHandler) VerifyResetOTP(c fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	token, err := h.svc.VerifyResetOTP(c.Context(), body.Email, body.OTP)
	if err != nil {
		return mapAuthError(c, err)
	}
	return ok(c, "OTP verified", fiber.Map{"resetToken": token})
}

// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var body struct {
		ResetToken      string `json:"resetToken"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.svc.ResetPassword(c.Context(), auth.ResetPasswordRequest{
		ResetToken:      body.ResetToken,
		NewPassword:     body.NewPassword,
		ConfirmPassword: body.ConfirmPassword,
	}); err != nil {
		return mapAuthError(c, err)
	}
	return ok(c, "Password reset successfully", nil)
}

// POST /auth/change-password and /user/user-change-password
func (h *AuthHandler) ChangePassword(c fiber.Ctx) error {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	var body struct {
		OldPassword     string `json:"oldPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.svc.ChangePassword(c.Context(), claims.Subject(), auth.ChangePasswordRequest{
		OldPassword:     body.OldPassword,
		NewPassword:     body.NewPassword,
		ConfirmPassword: body.ConfirmPassword,
	}); err != nil {
		return mapAuthError(c, err)
	}
	return ok(c, "Password changed successfully", nil)
}

// DELETE /auth/delete-admin/:id  (superadmin)
func (h *AuthHandler) DeleteAdmin(c fiber.Ctx) error {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.svc.DeleteAdmin(c.Context(), claims.UserID, id); err != nil {
		return mapAuthError(c, err)
	}
	return ok(c, "Admin deleted successfully", nil)
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapAuthError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrFieldsRequired),
		errors.Is(err, auth.ErrEmailRequired),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, auth.ErrOTPRequired),
		errors.Is(err, auth.ErrNoActiveOTP),
		errors.Is(err, auth.ErrInvalidOTP),
		errors.Is(err, auth.ErrResetTokenRequired),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrWrongPassword),
		errors.Is(err, auth.ErrCannotDeleteSelf):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrEmailInUse):
		return conflict(c, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrSessionNotFound):
		return fail(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrAccountInactive):
		return forbidden(c, err.Error())
	case errors.Is(err, auth.ErrNoAccount),
		errors.Is(err, auth.ErrAccountNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, auth.ErrOTPLocked):
		return tooManyRequests(c, err.Error())
	case errors.Is(err, auth.ErrMailFailed):
		return fail(c, fiber.StatusBadGateway, err.Error())
	default:
		return internalError(c, err)
	}
}
