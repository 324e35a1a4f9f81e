package authorize

import (
	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type Action string
type Resource string
type Role string
type Domain string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	ActionManage  Action = "manage"  // CRUD + list
	ActionExecute Action = "execute" // review, assign, sweep
)

const (
	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionUpdate: {}, ActionDelete: {}, ActionList: {},
	ActionManage: {}, ActionExecute: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	// Cases and their transitions
	ResourceCase           Resource = "case"
	ResourceCaseReview     Resource = "case_review"
	ResourceCaseAssignment Resource = "case_assignment"
	ResourceCaseStatus     Resource = "case_status"
	ResourceCaseArchive    Resource = "case_archive"

	// Accounts and organisations
	ResourceUser       Resource = "user"
	ResourceTechnician Resource = "technician"
	ResourceAdmin      Resource = "admin"
	ResourceClinic     Resource = "clinic"
	ResourceLab        Resource = "lab"
	ResourceProduct    Resource = "product"

	// Communication
	ResourceNotification Resource = "notification"
	ResourceMessage      Resource = "message"

	ResourceSettings Resource = "settings"
	ResourceSearch   Resource = "search"
	ResourceSystem   Resource = "system"
)

var KnownResources = map[Resource]struct{}{
	ResourceCase: {}, ResourceCaseReview: {}, ResourceCaseAssignment: {}, ResourceCaseStatus: {}, ResourceCaseArchive: {},
	ResourceUser: {}, ResourceTechnician: {}, ResourceAdmin: {}, ResourceClinic: {}, ResourceLab: {}, ResourceProduct: {},
	ResourceNotification: {}, ResourceMessage: {},
	ResourceSettings: {}, ResourceSearch: {}, ResourceSystem: {},
}

// ----------------------------
// Roles
// ----------------------------
//
// Policy subjects. Every account is grouped into exactly one of these in
// the sys domain.

const (
	WildcardRole Role = "*"

	RoleSysSuperAdmin   Role = "role:superadmin"
	RoleSysAdmin        Role = "role:admin"
	RoleDentist         Role = "role:dentist"
	RoleLabManager      Role = "role:labmanager"
	RoleLabTechnician   Role = "role:labtechnician"
	RolePracticeManager Role = "role:practicemanager"
	RolePracticeNurse   Role = "role:practicenurse"
)

var KnownRoles = map[Role]struct{}{
	RoleSysSuperAdmin:   {},
	RoleSysAdmin:        {},
	RoleDentist:         {},
	RoleLabManager:      {},
	RoleLabTechnician:   {},
	RolePracticeManager: {},
	RolePracticeNurse:   {},
}

// RoleFor maps an account role onto its policy subject.
func RoleFor(r constants.Role) Role {
	return Role("role:" + string(r))
}

// SubjectFor is the grouping subject of an account.
func SubjectFor(id uuid.UUID) GroupSubject {
	return GroupSubject(id.String())
}

// ----------------------------
// Domains
// ----------------------------

// Tenancy is enforced by the case visibility filter, so every rule lives
// in the sys domain.
const (
	DomainSys      Domain = "sys"
	WildcardDomain Domain = "*"
)

func IsValidDomain(d Domain) bool {
	return d == DomainSys || d == WildcardDomain
}

// ----------------------------
// Casbin tuple helpers
// ----------------------------

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// GroupSubject is the g.sub in Casbin: an account id.
type GroupSubject string

// Permission rows: p, role, domain, resource, action, eft
type PermissionPolicy struct {
	Subject Role
	Domain  Domain
	Object  Resource
	Action  Action
	Effect  PolicyEffect
}
