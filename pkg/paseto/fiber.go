package pasetotoken

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/config"
)

const (
	CtxKeyClaims = "auth.claims"

	CookieAccess  = "accessToken"
	CookieRefresh = "refreshToken"
)

// TokenFromRequest finds an access token in, by precedence: the bearer
// header, the accessToken cookie, the x-access-token header and the
// accessToken query parameter.
func TokenFromRequest(c fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if tok := strings.TrimSpace(parts[1]); tok != "" {
				return tok
			}
		}
	}
	if tok := c.Cookies(CookieAccess); tok != "" {
		return tok
	}
	if tok := c.Get("x-access-token"); tok != "" {
		return tok
	}
	return c.Query(CookieAccess)
}

func ClaimsFromFiber(c fiber.Ctx) (*Claims, bool) {
	v := c.Locals(CtxKeyClaims)
	if v == nil {
		return nil, false
	}
	cl, ok := v.(*Claims)
	return cl, ok
}

// NewPasetoManager creates a new PASETO manager from config.
func NewPasetoManager(cfg *config.Config) (*Manager, error) {
	p := cfg.Authentication.Paseto

	keys, err := KeysFromConfig(p)
	if err != nil {
		return nil, err
	}

	return New(Config{
		Mode:       keys.Mode,
		Issuer:     p.Issuer,
		Audience:   p.Audience,
		AccessTTL:  time.Duration(p.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(p.RefreshTTLDays) * 24 * time.Hour,
	}, keys)
}
