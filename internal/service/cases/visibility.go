package cases

import (
	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

// Actor is the authenticated caller a case operation runs for. A nil
// *Actor is an anonymous caller.
type Actor struct {
	ID       uuid.UUID
	Kind     constants.AccountKind
	Role     constants.Role
	ClinicID *uuid.UUID
	LabID    *uuid.UUID
}

// Query holds the explicit filters a caller asked for.
type Query struct {
	ClinicID       *uuid.UUID
	Statuses       []repo.CaseStatus
	ApprovalStatus repo.ApprovalStatus
	Tier           repo.Tier
	PatientID      string
	// PatientIDExact selects one patient's cases; PatientID is a substring.
	PatientIDExact string
	CaseNumber     string
	Search         string
	Archived       *bool
	// AssignedToMe narrows any caller to the cases assigned to them.
	AssignedToMe bool
}

// PendingReview is the queue of cases awaiting an admin decision.
func PendingReview(q *Query) {
	q.Statuses = []repo.CaseStatus{repo.StatusPending}
	q.ApprovalStatus = repo.ApprovalPending
}

// AwaitingAssignment is the queue of approved cases nobody has started.
func AwaitingAssignment(q *Query) {
	q.Statuses = []repo.CaseStatus{repo.StatusAccepted}
	q.ApprovalStatus = repo.ApprovalAccepted
}

// AssignedWork is the caller's own in-progress cases.
func AssignedWork(q *Query) {
	q.Statuses = []repo.CaseStatus{repo.StatusInProgress}
	q.AssignedToMe = true
}

// Scope turns actor and query into the filter every case read runs under.
// Role restrictions always win over explicit query values.
func Scope(actor *Actor, q Query) repo.CaseFilter {
	f := repo.CaseFilter{
		ClinicID:       q.ClinicID,
		Statuses:       q.Statuses,
		ApprovalStatus: q.ApprovalStatus,
		Tier:           q.Tier,
		PatientID:      q.PatientID,
		PatientIDExact: q.PatientIDExact,
		CaseNumber:     q.CaseNumber,
		Search:         q.Search,
		Archived:       q.Archived,
	}
	if actor == nil {
		return f
	}

	switch actor.Role {
	case constants.RoleDentist:
		id := actor.ID
		f.CreatedBy = &id
		f.ClinicID = actor.ClinicID
	case constants.RolePracticeManager, constants.RolePracticeNurse:
		if actor.ClinicID == nil {
			return repo.CaseFilter{None: true}
		}
		f.ClinicID = actor.ClinicID
	case constants.RoleLabTechnician, constants.RoleLabManager, constants.RoleAdmin, constants.RoleSuperAdmin:
	default:
		return repo.CaseFilter{None: true}
	}
	if q.AssignedToMe {
		id := actor.ID
		f.AssignedTechnician = &id
	}
	return f
}

// CanView reports whether actor may read c. It is the single-record form
// of Scope with no query filters.
func CanView(actor *Actor, c *repo.Case) bool {
	if actor == nil {
		return false
	}
	return Scope(actor, Query{}).Matches(c)
}
