package constants

const (
	ConfigName   = "config"
	ConfigFormat = "yaml"
	EnvPrefix    = "DENTLAB"
)

// Role is the role claim carried by every account.
type Role string

const (
	RoleSuperAdmin      Role = "superadmin"
	RoleAdmin           Role = "admin"
	RoleDentist         Role = "dentist"
	RoleLabManager      Role = "labmanager"
	RolePracticeManager Role = "practicemanager"
	RolePracticeNurse   Role = "practicenurse"
	RoleLabTechnician   Role = "labtechnician"
)

// StaffRoles are the roles a UserRole account may hold.
var StaffRoles = []Role{
	RoleDentist,
	RoleLabManager,
	RolePracticeManager,
	RolePracticeNurse,
	RoleLabTechnician,
}

func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

func (r Role) IsStaff() bool {
	for _, s := range StaffRoles {
		if r == s {
			return true
		}
	}
	return false
}

// AccountKind separates the two account tables sharing one token format.
type AccountKind string

const (
	KindAdmin AccountKind = "admin"
	KindUser  AccountKind = "user"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)
