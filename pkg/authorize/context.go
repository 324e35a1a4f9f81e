package authorize

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/reqctx"
)

var ErrNoSubjectInContext = errors.New("no subject found in context")

// SubjectFromContext reads the caller from the verified claims.
func SubjectFromContext(ctx context.Context) (GroupSubject, error) {
	id, err := UserIDFromContext(ctx)
	if err != nil {
		return "", err
	}
	return SubjectFor(id), nil
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	id, ok := reqctx.UserIDFromContext(ctx)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrNoSubjectInContext
	}
	return id, nil
}

// EnforceContext checks the caller in ctx against obj/act in the sys domain.
func EnforceContext(ctx context.Context, auth IAuthorization, obj Resource, act Action) error {
	subject, err := SubjectFromContext(ctx)
	if err != nil {
		return ErrForbidden
	}
	return auth.MustEnforce(ctx, subject, DomainSys, obj, act)
}
