package authorize

import (
	"context"
	"errors"
	"fmt"

	casbin "github.com/casbin/casbin/v2"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidArgs = errors.New("invalid authorization arguments")
)

// IAuthorization is what services and middleware depend on. Requests are
// (subject, domain, resource, action); grouping rules are g(subject, role,
// domain) and policies p(role, domain, resource, action, effect).
type IAuthorization interface {
	Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error)
	// MustEnforce turns a denial into ErrForbidden.
	MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error

	AddRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error)
	RemoveRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error)
	GetRolesForUserInDomain(ctx context.Context, subject GroupSubject, domain Domain) ([]Role, error)

	AddPermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error)
	RemovePermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error)

	Raw() *casbin.DistributedEnforcer
}

// Authorization validates arguments against the known vocabulary before
// anything reaches casbin.
type Authorization struct {
	enforcer *casbin.DistributedEnforcer
	bypass   Role // empty disables the superadmin short-circuit
}

type Option func(*Authorization)

// WithSuperadminBypass toggles the short-circuit that lets superadmins
// past every check. It is on by default.
func WithSuperadminBypass(enabled bool) Option {
	return func(a *Authorization) {
		a.bypass = ""
		if enabled {
			a.bypass = RoleSysSuperAdmin
		}
	}
}

// NewAuthorization loads the stored policy into e and wraps it.
func NewAuthorization(e *casbin.DistributedEnforcer, opts ...Option) (IAuthorization, error) {
	if e == nil {
		return nil, invalid("nil enforcer")
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	a := &Authorization{enforcer: e, bypass: RoleSysSuperAdmin}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Authorization) Raw() *casbin.DistributedEnforcer { return a.enforcer }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgs}, args...)...)
}

// check runs validators in order and returns the first failure.
func check(validators ...func() error) error {
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func subjectOK(s GroupSubject) func() error {
	return func() error {
		if s == "" {
			return invalid("empty subject")
		}
		return nil
	}
}

func domainOK(d Domain) func() error {
	return func() error {
		if !IsValidDomain(d) {
			return invalid("domain %q", d)
		}
		return nil
	}
}

func roleOK(r Role, mustBeKnown bool) func() error {
	return func() error {
		if r == "" {
			return invalid("empty role")
		}
		if _, known := KnownRoles[r]; mustBeKnown && !known && r != WildcardRole {
			return invalid("unknown role %q", r)
		}
		return nil
	}
}

func resourceOK(o Resource) func() error {
	return func() error {
		if _, known := KnownResources[o]; !known && o != WildcardResource {
			return invalid("unknown resource %q", o)
		}
		return nil
	}
}

func actionOK(act Action) func() error {
	return func() error {
		if _, known := KnownActions[act]; !known && act != WildcardAction {
			return invalid("unknown action %q", act)
		}
		return nil
	}
}

func effectOK(e PolicyEffect) func() error {
	return func() error {
		if e != EffectAllow && e != EffectDeny {
			return invalid("effect %q", e)
		}
		return nil
	}
}

func (a *Authorization) Enforce(_ context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error) {
	if err := check(subjectOK(subject), domainOK(domain), resourceOK(object), actionOK(action)); err != nil {
		return false, err
	}
	if a.bypass != "" && a.enforcer.HasGroupingPolicy(string(subject), string(a.bypass), string(DomainSys)) {
		return true, nil
	}
	return a.enforcer.Enforce(string(subject), string(domain), string(object), string(action))
}

func (a *Authorization) MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error {
	allowed, err := a.Enforce(ctx, subject, domain, object, action)
	switch {
	case err != nil:
		return err
	case !allowed:
		return ErrForbidden
	}
	return nil
}

func (a *Authorization) AddRoleForUserInDomain(_ context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	if err := check(subjectOK(subject), roleOK(role, true), domainOK(domain)); err != nil {
		return false, err
	}
	return a.enforcer.AddGroupingPolicy(string(subject), string(role), string(domain))
}

// RemoveRoleForUserInDomain accepts roles outside the known set so stale
// grants can still be cleaned up.
func (a *Authorization) RemoveRoleForUserInDomain(_ context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	if err := check(subjectOK(subject), roleOK(role, false), domainOK(domain)); err != nil {
		return false, err
	}
	return a.enforcer.RemoveGroupingPolicy(string(subject), string(role), string(domain))
}

func (a *Authorization) GetRolesForUserInDomain(_ context.Context, subject GroupSubject, domain Domain) ([]Role, error) {
	if err := check(subjectOK(subject), domainOK(domain)); err != nil {
		return nil, err
	}
	names := a.enforcer.GetRolesForUserInDomain(string(subject), string(domain))
	roles := make([]Role, len(names))
	for i, n := range names {
		roles[i] = Role(n)
	}
	return roles, nil
}

func (a *Authorization) AddPermission(_ context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	if err := check(roleOK(role, true), domainOK(domain), resourceOK(object), actionOK(action), effectOK(effect)); err != nil {
		return false, err
	}
	return a.enforcer.AddPolicy(string(role), string(domain), string(object), string(action), string(effect))
}

func (a *Authorization) RemovePermission(_ context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	if err := check(roleOK(role, false), domainOK(domain), effectOK(effect)); err != nil {
		return false, err
	}
	return a.enforcer.RemovePolicy(string(role), string(domain), string(object), string(action), string(effect))
}
