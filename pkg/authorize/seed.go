package authorize

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

// DefaultPolicies is the baseline rule set. Finer checks (clinic scoping,
// assigned technician) happen in the services.
func DefaultPolicies() []PermissionPolicy {
	sys := func(r Role, obj Resource, act Action) PermissionPolicy {
		return PermissionPolicy{r, DomainSys, obj, act, EffectAllow}
	}
	// everyone signed in
	common := func(r Role) []PermissionPolicy {
		return []PermissionPolicy{
			sys(r, ResourceNotification, ActionManage),
			sys(r, ResourceMessage, ActionManage),
			sys(r, ResourceSearch, ActionRead),
			sys(r, ResourceProduct, ActionRead),
			sys(r, ResourceProduct, ActionList),
			sys(r, ResourceCase, ActionRead),
			sys(r, ResourceCase, ActionList),
		}
	}

	out := []PermissionPolicy{
		sys(RoleSysSuperAdmin, WildcardResource, WildcardAction),
	}

	out = append(out, common(RoleSysAdmin)...)
	out = append(out,
		sys(RoleSysAdmin, ResourceCase, ActionManage),
		sys(RoleSysAdmin, ResourceCaseReview, ActionExecute),
		sys(RoleSysAdmin, ResourceCaseAssignment, ActionExecute),
		sys(RoleSysAdmin, ResourceCaseStatus, ActionUpdate),
		sys(RoleSysAdmin, ResourceCaseArchive, ActionExecute),
		sys(RoleSysAdmin, ResourceUser, ActionRead),
		sys(RoleSysAdmin, ResourceUser, ActionList),
		sys(RoleSysAdmin, ResourceUser, ActionUpdate),
		sys(RoleSysAdmin, ResourceAdmin, ActionRead),
		sys(RoleSysAdmin, ResourceAdmin, ActionList),
		sys(RoleSysAdmin, ResourceClinic, ActionRead),
		sys(RoleSysAdmin, ResourceClinic, ActionList),
		sys(RoleSysAdmin, ResourceClinic, ActionUpdate),
		sys(RoleSysAdmin, ResourceLab, ActionManage),
		sys(RoleSysAdmin, ResourceProduct, ActionManage),
		sys(RoleSysAdmin, ResourceSettings, ActionUpdate),
	)

	out = append(out, common(RoleLabManager)...)
	out = append(out,
		sys(RoleLabManager, ResourceCase, ActionUpdate),
		sys(RoleLabManager, ResourceCaseAssignment, ActionExecute),
		sys(RoleLabManager, ResourceCaseStatus, ActionUpdate),
		sys(RoleLabManager, ResourceTechnician, ActionCreate),
		sys(RoleLabManager, ResourceUser, ActionRead),
		sys(RoleLabManager, ResourceUser, ActionList),
		sys(RoleLabManager, ResourceLab, ActionRead),
		sys(RoleLabManager, ResourceLab, ActionList),
		sys(RoleLabManager, ResourceClinic, ActionRead),
		sys(RoleLabManager, ResourceClinic, ActionList),
	)

	out = append(out, common(RoleLabTechnician)...)
	out = append(out, sys(RoleLabTechnician, ResourceCaseStatus, ActionUpdate))

	for _, r := range []Role{RoleDentist, RolePracticeManager} {
		out = append(out, common(r)...)
		out = append(out,
			sys(r, ResourceCase, ActionCreate),
			sys(r, ResourceCase, ActionUpdate),
			sys(r, ResourceClinic, ActionRead),
		)
	}
	out = append(out, sys(RolePracticeManager, ResourceCaseStatus, ActionUpdate))

	out = append(out, common(RolePracticeNurse)...)
	out = append(out, sys(RolePracticeNurse, ResourceCase, ActionCreate))
	return out
}

// SeedDefaultPolicies installs DefaultPolicies. Existing rows are kept.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization) error {
	policies := DefaultPolicies()
	for _, p := range policies {
		added, err := auth.AddPermission(ctx, p.Subject, p.Domain, p.Object, p.Action, p.Effect)
		if err != nil {
			slog.Error("failed to add policy", "policy", p, "error", err)
			return err
		}
		if added {
			slog.Debug("added policy", "role", p.Subject, "resource", p.Object, "action", p.Action)
		}
	}
	slog.Info("seeded default RBAC policies", "count", len(policies))
	return nil
}

// AssignAccountRole groups an account under its role. Call it whenever an
// account is created or its role changes.
func AssignAccountRole(ctx context.Context, auth IAuthorization, id uuid.UUID, role constants.Role) error {
	_, err := auth.AddRoleForUserInDomain(ctx, SubjectFor(id), RoleFor(role), DomainSys)
	return err
}

// RemoveAccountRole drops the grouping added by AssignAccountRole.
func RemoveAccountRole(ctx context.Context, auth IAuthorization, id uuid.UUID, role constants.Role) error {
	_, err := auth.RemoveRoleForUserInDomain(ctx, SubjectFor(id), RoleFor(role), DomainSys)
	return err
}

// ChangeAccountRole moves an account from one role group to another.
func ChangeAccountRole(ctx context.Context, auth IAuthorization, id uuid.UUID, from, to constants.Role) error {
	if from == to {
		return AssignAccountRole(ctx, auth, id, to)
	}
	if from != "" {
		if err := RemoveAccountRole(ctx, auth, id, from); err != nil {
			return err
		}
	}
	return AssignAccountRole(ctx, auth, id, to)
}
