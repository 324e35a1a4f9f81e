package authorize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	casbin "github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

// createTestEnforcer builds an enforcer over a throwaway file adapter with
// the same model as casbin_model.conf.
func createTestEnforcer(t *testing.T) *casbin.DistributedEnforcer {
	t.Helper()

	tmpDir := t.TempDir()

	modelPath := filepath.Join(tmpDir, "model.conf")
	modelContent := `[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act, eft

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = g(r.sub, p.sub, r.dom) && (p.dom == "*" || p.dom == r.dom) && (p.obj == "*" || keyMatch2(r.obj, p.obj)) && (p.act == "*" || p.act == r.act || (p.act == "manage" && r.act != "execute"))
`
	if err := os.WriteFile(modelPath, []byte(modelContent), 0644); err != nil {
		t.Fatalf("failed to write model file: %v", err)
	}

	policyPath := filepath.Join(tmpDir, "policy.csv")
	if err := os.WriteFile(policyPath, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write policy file: %v", err)
	}

	a := fileadapter.NewAdapter(policyPath)

	e, err := casbin.NewDistributedEnforcer(modelPath, a)
	if err != nil {
		t.Fatalf("failed to create enforcer: %v", err)
	}

	e.EnableAutoSave(false)
	e.EnableEnforce(true)

	return e
}

func TestNewAuthorization(t *testing.T) {
	t.Run("returns error for nil enforcer", func(t *testing.T) {
		_, err := NewAuthorization(nil)
		if err == nil {
			t.Error("Expected error for nil enforcer")
		}
	})

	t.Run("succeeds with valid enforcer", func(t *testing.T) {
		e := createTestEnforcer(t)
		auth, err := NewAuthorization(e)
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if auth == nil {
			t.Error("Expected non-nil authorization")
		}
	})
}

func TestEnforce(t *testing.T) {
	auth, _ := NewAuthorization(createTestEnforcer(t))
	ctx := context.Background()
	if err := SeedDefaultPolicies(ctx, auth); err != nil {
		t.Fatalf("SeedDefaultPolicies() error = %v", err)
	}

	manager := GroupSubject("manager-1")
	tech := GroupSubject("tech-1")
	admin := GroupSubject("admin-1")
	for subj, role := range map[GroupSubject]Role{manager: RoleLabManager, tech: RoleLabTechnician, admin: RoleSysAdmin} {
		if _, err := auth.AddRoleForUserInDomain(ctx, subj, role, DomainSys); err != nil {
			t.Fatalf("AddRoleForUserInDomain(%s) error = %v", subj, err)
		}
	}

	tests := []struct {
		name     string
		subject  GroupSubject
		domain   Domain
		resource Resource
		action   Action
		want     bool
		wantErr  bool
	}{
		{"manager assigns technicians", manager, DomainSys, ResourceCaseAssignment, ActionExecute, true, false},
		{"manager creates technicians", manager, DomainSys, ResourceTechnician, ActionCreate, true, false},
		{"manager cannot review", manager, DomainSys, ResourceCaseReview, ActionExecute, false, false},
		{"technician updates status", tech, DomainSys, ResourceCaseStatus, ActionUpdate, true, false},
		{"technician cannot create cases", tech, DomainSys, ResourceCase, ActionCreate, false, false},
		{"manage implies delete", admin, DomainSys, ResourceCase, ActionDelete, true, false},
		{"manage does not imply execute", admin, DomainSys, ResourceLab, ActionExecute, false, false},
		{"admin cannot create clinics", admin, DomainSys, ResourceClinic, ActionCreate, false, false},
		{"unknown subject", GroupSubject("nobody"), DomainSys, ResourceCase, ActionRead, false, false},
		{"empty subject", "", DomainSys, ResourceCase, ActionRead, false, true},
		{"invalid domain", manager, Domain("invalid"), ResourceCase, ActionRead, false, true},
		{"unknown resource", manager, DomainSys, Resource("unknown"), ActionRead, false, true},
		{"unknown action", manager, DomainSys, ResourceCase, Action("unknown"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.Enforce(ctx, tt.subject, tt.domain, tt.resource, tt.action)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSuperAdminBypass(t *testing.T) {
	ctx := context.Background()
	id := GroupSubject("super-admin-id")

	auth, _ := NewAuthorization(createTestEnforcer(t))
	if _, err := auth.AddRoleForUserInDomain(ctx, id, RoleSysSuperAdmin, DomainSys); err != nil {
		t.Fatalf("Failed to add superadmin role: %v", err)
	}
	allowed, err := auth.Enforce(ctx, id, DomainSys, ResourceSystem, ActionExecute)
	if err != nil || !allowed {
		t.Errorf("superadmin Enforce() = %v, %v; want allowed", allowed, err)
	}

	strict, _ := NewAuthorization(createTestEnforcer(t), WithSuperadminBypass(false))
	if _, err := strict.AddRoleForUserInDomain(ctx, id, RoleSysSuperAdmin, DomainSys); err != nil {
		t.Fatal(err)
	}
	allowed, err = strict.Enforce(ctx, id, DomainSys, ResourceSystem, ActionExecute)
	if err != nil || allowed {
		t.Errorf("without bypass and without policies Enforce() = %v, %v; want denied", allowed, err)
	}
}

func TestAccountRoleLifecycle(t *testing.T) {
	auth, _ := NewAuthorization(createTestEnforcer(t))
	ctx := context.Background()
	id := uuid.New()

	if err := AssignAccountRole(ctx, auth, id, constants.RoleDentist); err != nil {
		t.Fatalf("AssignAccountRole() error = %v", err)
	}
	roles, _ := auth.GetRolesForUserInDomain(ctx, SubjectFor(id), DomainSys)
	if len(roles) != 1 || roles[0] != RoleDentist {
		t.Fatalf("roles = %v, want [%s]", roles, RoleDentist)
	}

	if err := ChangeAccountRole(ctx, auth, id, constants.RoleDentist, constants.RolePracticeManager); err != nil {
		t.Fatalf("ChangeAccountRole() error = %v", err)
	}
	roles, _ = auth.GetRolesForUserInDomain(ctx, SubjectFor(id), DomainSys)
	if len(roles) != 1 || roles[0] != RolePracticeManager {
		t.Errorf("roles after change = %v", roles)
	}

	if err := RemoveAccountRole(ctx, auth, id, constants.RolePracticeManager); err != nil {
		t.Fatalf("RemoveAccountRole() error = %v", err)
	}
	roles, _ = auth.GetRolesForUserInDomain(ctx, SubjectFor(id), DomainSys)
	if len(roles) != 0 {
		t.Errorf("roles after removal = %v", roles)
	}

	if _, err := auth.AddRoleForUserInDomain(ctx, SubjectFor(id), Role("role:intern"), DomainSys); err == nil {
		t.Error("Expected error for unknown role")
	}
}

func TestPermissionManagement(t *testing.T) {
	auth, _ := NewAuthorization(createTestEnforcer(t))
	ctx := context.Background()

	added, err := auth.AddPermission(ctx, RoleLabTechnician, DomainSys, ResourceProduct, ActionRead, EffectAllow)
	if err != nil || !added {
		t.Errorf("AddPermission() = %v, %v", added, err)
	}
	removed, err := auth.RemovePermission(ctx, RoleLabTechnician, DomainSys, ResourceProduct, ActionRead, EffectAllow)
	if err != nil || !removed {
		t.Errorf("RemovePermission() = %v, %v", removed, err)
	}
	if _, err := auth.AddPermission(ctx, RoleSysAdmin, DomainSys, ResourceUser, ActionRead, PolicyEffect("invalid")); err == nil {
		t.Error("Expected error for invalid effect")
	}
}
