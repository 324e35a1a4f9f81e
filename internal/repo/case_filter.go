package repo

import (
	"strings"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// CaseFilter is the set of constraints a case query runs under. The zero
// value matches every case. Predicate renders it for Postgres and Matches
// evaluates it against a loaded case; the two must agree.
type CaseFilter struct {
	// None matches nothing.
	None bool

	ClinicID           *uuid.UUID
	CreatedBy          *uuid.UUID
	AssignedTechnician *uuid.UUID
	Statuses           []CaseStatus
	ApprovalStatus     ApprovalStatus
	Tier               Tier
	Archived           *bool

	// PatientIDExact matches the patient id exactly.
	PatientIDExact string

	// case-insensitive substring matches
	PatientID  string
	CaseNumber string
	// Search matches case number, patient id or scan number.
	Search string
}

func (f CaseFilter) Predicate() *sql.Predicate {
	if f.None {
		return sql.False()
	}
	var ps []*sql.Predicate
	if f.ClinicID != nil {
		ps = append(ps, sql.EQ("clinic_id", *f.ClinicID))
	}
	if f.CreatedBy != nil {
		ps = append(ps, sql.EQ("created_by", *f.CreatedBy))
	}
	if f.AssignedTechnician != nil {
		ps = append(ps, sql.EQ("assigned_technician", *f.AssignedTechnician))
	}
	switch len(f.Statuses) {
	case 0:
	case 1:
		ps = append(ps, sql.EQ("status", string(f.Statuses[0])))
	default:
		vs := make([]any, len(f.Statuses))
		for i, s := range f.Statuses {
			vs[i] = string(s)
		}
		ps = append(ps, sql.In("status", vs...))
	}
	if f.ApprovalStatus != "" {
		ps = append(ps, sql.EQ("approval_status", string(f.ApprovalStatus)))
	}
	if f.Tier != "" {
		ps = append(ps, sql.EQ("selected_tier", string(f.Tier)))
	}
	if f.Archived != nil {
		ps = append(ps, sql.EQ("is_archived", *f.Archived))
	}
	if f.PatientIDExact != "" {
		ps = append(ps, sql.EQ("patient_id", f.PatientIDExact))
	}
	if f.PatientID != "" {
		ps = append(ps, sql.ContainsFold("patient_id", f.PatientID))
	}
	if f.CaseNumber != "" {
		ps = append(ps, sql.ContainsFold("case_number", f.CaseNumber))
	}
	if f.Search != "" {
		ps = append(ps, anyFold(f.Search, "case_number", "patient_id", "scan_number"))
	}
	return andAll(ps)
}

func (f CaseFilter) Matches(c *Case) bool {
	if f.None {
		return false
	}
	if f.ClinicID != nil && !sameID(c.ClinicID, *f.ClinicID) {
		return false
	}
	if f.CreatedBy != nil && !sameID(c.CreatedBy, *f.CreatedBy) {
		return false
	}
	if f.AssignedTechnician != nil && !sameID(c.AssignedTechnician, *f.AssignedTechnician) {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if c.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.ApprovalStatus != "" && c.AdminApproval.Status != f.ApprovalStatus {
		return false
	}
	if f.Tier != "" && c.SelectedTier != f.Tier {
		return false
	}
	if f.Archived != nil && c.IsArchived != *f.Archived {
		return false
	}
	if f.PatientIDExact != "" && c.PatientID != f.PatientIDExact {
		return false
	}
	if f.PatientID != "" && !containsFold(c.PatientID, f.PatientID) {
		return false
	}
	if f.CaseNumber != "" && !containsFold(c.CaseNumber, f.CaseNumber) {
		return false
	}
	if f.Search != "" &&
		!containsFold(c.CaseNumber, f.Search) &&
		!containsFold(c.PatientID, f.Search) &&
		!containsFold(c.ScanNumber, f.Search) {
		return false
	}
	return true
}

func sameID(have *uuid.UUID, want uuid.UUID) bool {
	return have != nil && *have == want
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// ArchiveRule is one eligibility rule of the archival sweep: a case that
// satisfies the status condition and whose reference time is at least
// After old gets archived.
type ArchiveRule struct {
	Name  string
	After time.Duration
	// Approved selects the admin-approved rule; otherwise the completed rule.
	Approved bool
}

func (r ArchiveRule) Predicate(now time.Time) *sql.Predicate {
	cutoff := now.Add(-r.After)
	if r.Approved {
		return sql.And(
			sql.EQ("is_archived", false),
			sql.EQ("status", string(StatusAccepted)),
			sql.EQ("approval_status", string(ApprovalAccepted)),
			sql.NotNull("approved_at"),
			sql.LTE("approved_at", cutoff),
		)
	}
	return sql.And(
		sql.EQ("is_archived", false),
		sql.EQ("is_completed", true),
		sql.Or(
			sql.LTE("completed_at", cutoff),
			sql.And(sql.IsNull("completed_at"), sql.LTE("updated_at", cutoff)),
		),
	)
}

func (r ArchiveRule) Matches(c *Case, now time.Time) bool {
	if c.IsArchived {
		return false
	}
	cutoff := now.Add(-r.After)
	if r.Approved {
		return c.Status == StatusAccepted &&
			c.AdminApproval.Status == ApprovalAccepted &&
			c.AdminApproval.ApprovedAt != nil &&
			!c.AdminApproval.ApprovedAt.After(cutoff)
	}
	if !c.IsCompleted {
		return false
	}
	ref := c.UpdatedAt
	if c.CompletedAt != nil {
		ref = *c.CompletedAt
	}
	return !ref.After(cutoff)
}
