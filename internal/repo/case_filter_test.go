package repo

import (
	"strings"
	"testing"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

func render(p *sql.Predicate) (string, []any) {
	sel := builder().Select("id").From(sql.Table(casesTable))
	if p != nil {
		sel.Where(p)
	}
	return sel.Query()
}

func TestCaseFilterPredicate(t *testing.T) {
	clinic := uuid.New()
	user := uuid.New()
	archived, live := true, false

	tests := []struct {
		name     string
		filter   CaseFilter
		contains []string
		nargs    int
	}{
		{"empty", CaseFilter{}, nil, 0},
		{"none", CaseFilter{None: true}, []string{"FALSE"}, 0},
		{"clinic", CaseFilter{ClinicID: &clinic}, []string{`"clinic_id" = $1`}, 1},
		{"dentist", CaseFilter{ClinicID: &clinic, CreatedBy: &user}, []string{`"clinic_id" = $1`, `"created_by" = $2`}, 2},
		{"statuses", CaseFilter{Statuses: []CaseStatus{StatusPending, StatusOnHold}}, []string{`"status" IN ($1, $2)`}, 2},
		{"archived", CaseFilter{Archived: &archived}, []string{`WHERE "is_archived"`}, 0},
		{"not archived", CaseFilter{Archived: &live}, []string{`WHERE NOT "is_archived"`}, 0},
		{"patient exact", CaseFilter{PatientIDExact: "P1"}, []string{`"patient_id" = $1`}, 1},
		{"search", CaseFilter{Search: "ab"}, []string{"case_number", "patient_id", "scan_number", " OR "}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := render(tt.filter.Predicate())
			if tt.contains == nil && strings.Contains(q, "WHERE") {
				t.Fatalf("expected no WHERE clause, got %s", q)
			}
			for _, want := range tt.contains {
				if !strings.Contains(q, want) {
					t.Errorf("query %q does not contain %q", q, want)
				}
			}
			if len(args) != tt.nargs {
				t.Errorf("got %d args, want %d", len(args), tt.nargs)
			}
		})
	}
}

func TestCaseFilterMatches(t *testing.T) {
	clinic, other := uuid.New(), uuid.New()
	user := uuid.New()
	c := &Case{
		ClinicID:   &clinic,
		CreatedBy:  &user,
		Status:     StatusInProgress,
		CaseNumber: "CN-1001",
		PatientID:  "PAT-77",
		ScanNumber: "SCN-9",
	}

	tests := []struct {
		name   string
		filter CaseFilter
		want   bool
	}{
		{"zero matches all", CaseFilter{}, true},
		{"none", CaseFilter{None: true}, false},
		{"same clinic", CaseFilter{ClinicID: &clinic}, true},
		{"other clinic", CaseFilter{ClinicID: &other}, false},
		{"creator", CaseFilter{CreatedBy: &user}, true},
		{"not creator", CaseFilter{CreatedBy: &other}, false},
		{"status listed", CaseFilter{Statuses: []CaseStatus{StatusPending, StatusInProgress}}, true},
		{"status missing", CaseFilter{Statuses: []CaseStatus{StatusCompleted}}, false},
		{"search scan fold", CaseFilter{Search: "scn"}, true},
		{"search miss", CaseFilter{Search: "zzz"}, false},
		{"unassigned technician", CaseFilter{AssignedTechnician: &user}, false},
		{"patient exact", CaseFilter{PatientIDExact: "PAT-77"}, true},
		{"patient exact is not a substring match", CaseFilter{PatientIDExact: "PAT-7"}, false},
		{"patient exact is case sensitive", CaseFilter{PatientIDExact: "pat-77"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(c); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArchiveRuleMatches(t *testing.T) {
	now := time.Date(2025, 3, 20, 2, 0, 0, 0, time.UTC)
	days := func(n int) *time.Time {
		ts := now.AddDate(0, 0, -n)
		return &ts
	}
	completed := ArchiveRule{Name: "completed", After: 10 * 24 * time.Hour}
	approved := ArchiveRule{Name: "approved", After: 14 * 24 * time.Hour, Approved: true}

	tests := []struct {
		name string
		rule ArchiveRule
		c    Case
		want bool
	}{
		{"completed 15 days", completed, Case{Status: StatusCompleted, IsCompleted: true, CompletedAt: days(15)}, true},
		{"completed 3 days", completed, Case{Status: StatusCompleted, IsCompleted: true, CompletedAt: days(3)}, false},
		{"completed falls back to updatedAt", completed, Case{Status: StatusCompleted, IsCompleted: true, UpdatedAt: *days(11)}, true},
		{"already archived", completed, Case{Status: StatusArchived, IsArchived: true, CompletedAt: days(30)}, false},
		{"approved 20 days", approved, Case{Status: StatusAccepted, AdminApproval: AdminApproval{Status: ApprovalAccepted, ApprovedAt: days(20)}}, true},
		{"approved but in progress", approved, Case{Status: StatusInProgress, IsInProgress: true, AdminApproval: AdminApproval{Status: ApprovalAccepted, ApprovedAt: days(20)}}, false},
		{"approved 2 days", approved, Case{Status: StatusAccepted, AdminApproval: AdminApproval{Status: ApprovalAccepted, ApprovedAt: days(2)}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(&tt.c, now); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPage(t *testing.T) {
	p := Page{}.Normalize()
	if p.Page != 1 || p.Limit != DefaultLimit {
		t.Fatalf("Normalize() = %+v", p)
	}
	if got := (Page{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Errorf("Offset() = %d", got)
	}
	if got := p.TotalPages(21); got != 3 {
		t.Errorf("TotalPages(21) = %d", got)
	}
	if got := p.TotalPages(0); got != 0 {
		t.Errorf("TotalPages(0) = %d", got)
	}
}

func TestCaseSortColumns(t *testing.T) {
	tests := []struct {
		sort Sort
		want string
	}{
		{Sort{Field: "archiveDate", Desc: true}, `ORDER BY "archive_date" DESC, "id" DESC`},
		{Sort{Field: "caseNumber"}, `ORDER BY "case_number" ASC, "id" ASC`},
		{Sort{Field: "password", Desc: true}, `ORDER BY "created_at" DESC, "id" DESC`},
	}
	for _, tt := range tests {
		t.Run(tt.sort.Field, func(t *testing.T) {
			sel := builder().Select("id").From(sql.Table(casesTable))
			tt.sort.apply(sel, caseSortColumns)
			if q, _ := sel.Query(); !strings.HasSuffix(q, tt.want) {
				t.Errorf("query %q does not end with %q", q, tt.want)
			}
		})
	}
}
