package reqctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

// AuthClaims is what the rest of the app needs from a verified token.
type AuthClaims interface {
	GetUserID() uuid.UUID
	GetSessionID() *uuid.UUID
	GetTokenType() string
	GetRole() constants.Role
	GetKind() constants.AccountKind
	IsExpired() bool
}

func WithClaims(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, keyClaims, claims)
}

// ClaimsFromContext returns nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) AuthClaims {
	claims, _ := ctx.Value(keyClaims).(AuthClaims)
	return claims
}

func IsAuthenticated(ctx context.Context) bool {
	claims := ClaimsFromContext(ctx)
	return claims != nil && !claims.IsExpired()
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return uuid.Nil, false
	}
	return claims.GetUserID(), true
}

// RoleFromContext returns "" for anonymous requests.
func RoleFromContext(ctx context.Context) constants.Role {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.GetRole()
	}
	return ""
}
