package authorize

import (
	"context"
	"log/slog"
	"time"

	casbin "github.com/casbin/casbin/v2"

	"github.com/Alijeyrad/dentlab_backend/pkg/reqctx"
)

// auditLog wraps an IAuthorization and records denials, errors and every
// policy or role change. Allowed decisions are logged at debug level only:
// each request makes at least one.
type auditLog struct {
	IAuthorization
	log *slog.Logger
}

func NewAuditedAuthorization(inner IAuthorization, logger *slog.Logger) IAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &auditLog{IAuthorization: inner, log: logger.With("component", "authz")}
}

func (a *auditLog) Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error) {
	start := time.Now()
	allowed, err := a.IAuthorization.Enforce(ctx, subject, domain, object, action)

	level := slog.LevelDebug
	switch {
	case err != nil:
		level = slog.LevelError
	case !allowed:
		level = slog.LevelWarn
	}
	a.log.Log(ctx, level, "authz decision",
		"subject", subject,
		"domain", domain,
		"resource", object,
		"action", action,
		"allowed", allowed,
		"took", time.Since(start),
		"request_id", reqctx.RequestIDFromContext(ctx),
		"error", err,
	)
	return allowed, err
}

// MustEnforce goes through the audited Enforce, not the embedded one.
func (a *auditLog) MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error {
	allowed, err := a.Enforce(ctx, subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

func (a *auditLog) change(ctx context.Context, op string, changed bool, err error, attrs ...any) {
	attrs = append(attrs, "op", op, "changed", changed)
	if err != nil {
		a.log.ErrorContext(ctx, "authz policy change failed", append(attrs, "error", err)...)
		return
	}
	a.log.InfoContext(ctx, "authz policy change", attrs...)
}

func (a *auditLog) AddRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	ok, err := a.IAuthorization.AddRoleForUserInDomain(ctx, subject, role, domain)
	a.change(ctx, "grant_role", ok, err, "subject", subject, "role", role, "domain", domain)
	return ok, err
}

func (a *auditLog) RemoveRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	ok, err := a.IAuthorization.RemoveRoleForUserInDomain(ctx, subject, role, domain)
	a.change(ctx, "revoke_role", ok, err, "subject", subject, "role", role, "domain", domain)
	return ok, err
}

func (a *auditLog) AddPermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	ok, err := a.IAuthorization.AddPermission(ctx, role, domain, object, action, effect)
	a.change(ctx, "add_permission", ok, err, "role", role, "resource", object, "action", action, "effect", effect)
	return ok, err
}

func (a *auditLog) RemovePermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	ok, err := a.IAuthorization.RemovePermission(ctx, role, domain, object, action, effect)
	a.change(ctx, "remove_permission", ok, err, "role", role, "resource", object, "action", action, "effect", effect)
	return ok, err
}

func (a *auditLog) Raw() *casbin.DistributedEnforcer { return a.IAuthorization.Raw() }
