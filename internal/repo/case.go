package repo

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type CaseStatus string

const (
	StatusPending    CaseStatus = "Pending"
	StatusAccepted   CaseStatus = "Accepted"
	StatusRejected   CaseStatus = "Rejected"
	StatusInProgress CaseStatus = "In Progress"
	StatusCompleted  CaseStatus = "Completed"
	StatusArchived   CaseStatus = "Archived"
	StatusCancelled  CaseStatus = "Cancelled"
	StatusOnHold     CaseStatus = "On Hold"
)

var AllStatuses = []CaseStatus{
	StatusPending, StatusAccepted, StatusRejected, StatusInProgress,
	StatusCompleted, StatusArchived, StatusCancelled, StatusOnHold,
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalAccepted ApprovalStatus = "Accepted"
	ApprovalRejected ApprovalStatus = "Rejected"
)

type Tier string

const (
	TierStandard Tier = "Standard"
	TierPremium  Tier = "Premium"
)

type CaseType string

const (
	CaseTypeNew          CaseType = "New"
	CaseTypeContinuation CaseType = "Continuation"
	CaseTypeRemake       CaseType = "Remake"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

type AdminApproval struct {
	Status          ApprovalStatus `json:"status"`
	ApprovedBy      *uuid.UUID     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
}

type LabAssignment struct {
	AssignedBy *uuid.UUID `json:"assignedBy,omitempty"`
	AssignedAt *time.Time `json:"assignedAt,omitempty"`
}

type CaseNote struct {
	Text       string         `json:"text"`
	AuthorID   uuid.UUID      `json:"authorId"`
	AuthorRole constants.Role `json:"authorRole"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type Case struct {
	ID           uuid.UUID `json:"id"`
	CaseNumber   string    `json:"caseNumber,omitempty"`
	PatientID    string    `json:"patientID,omitempty"`
	CaseType     CaseType  `json:"caseType,omitempty"`
	Gender       Gender    `json:"gender"`
	Age          int       `json:"age"`
	ScanNumber   string    `json:"scanNumber,omitempty"`
	SelectedTier Tier      `json:"selectedTier,omitempty"`

	Standard *StandardTier `json:"standard,omitempty"`
	Premium  *PremiumTier  `json:"premium,omitempty"`

	Description       string       `json:"description,omitempty"`
	GlobalAttachments []Attachment `json:"globalAttachments"`
	Notes             []CaseNote   `json:"notes"`

	ClinicID           *uuid.UUID     `json:"clinicId,omitempty"`
	ProductID          *uuid.UUID     `json:"product,omitempty"`
	CreatedBy          *uuid.UUID     `json:"createdBy,omitempty"`
	CreatedByRole      constants.Role `json:"createdByRole,omitempty"`
	AssignedTechnician *uuid.UUID     `json:"assignedTechnician,omitempty"`

	Status        CaseStatus    `json:"status"`
	AdminApproval AdminApproval `json:"adminApproval"`
	LabAssignment LabAssignment `json:"labManagerAssignment"`
	IsInProgress  bool          `json:"isInProgress"`
	IsCompleted   bool          `json:"isCompleted"`
	IsArchived    bool          `json:"isArchived"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
	ArchiveDate   *time.Time    `json:"archiveDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const casesTable = "cases"

var caseColumns = []string{
	"id", "case_number", "patient_id", "case_type", "gender", "age", "scan_number",
	"selected_tier", "standard", "premium", "description", "global_attachments", "notes",
	"clinic_id", "product_id", "created_by", "created_by_role", "assigned_technician",
	"status", "approval_status", "approved_by", "approved_at", "rejection_reason",
	"lab_assigned_by", "lab_assigned_at",
	"is_in_progress", "is_completed", "is_archived", "completed_at", "archive_date",
	"created_at", "updated_at",
}

// caseSortColumns maps API sort keys to columns.
var caseSortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"archiveDate": "archive_date",
	"caseNumber":  "case_number",
	"patientID":   "patient_id",
	"status":      "status",
	"age":         "age",
}

type CaseStore struct {
	drv dialect.Driver
}

func (s *CaseStore) values(c *Case) ([]any, error) {
	standard, err := jsonb(c.Standard)
	if err != nil {
		return nil, err
	}
	premium, err := jsonb(c.Premium)
	if err != nil {
		return nil, err
	}
	if c.GlobalAttachments == nil {
		c.GlobalAttachments = []Attachment{}
	}
	if c.Notes == nil {
		c.Notes = []CaseNote{}
	}
	return []any{
		c.ID, c.CaseNumber, nullString(c.PatientID), string(c.CaseType), string(c.Gender), c.Age, c.ScanNumber,
		string(c.SelectedTier), standard, premium, c.Description, mustJSONB(c.GlobalAttachments), mustJSONB(c.Notes),
		nullUUID(c.ClinicID), nullUUID(c.ProductID), nullUUID(c.CreatedBy), string(c.CreatedByRole), nullUUID(c.AssignedTechnician),
		string(c.Status), string(c.AdminApproval.Status), nullUUID(c.AdminApproval.ApprovedBy), nullTime(c.AdminApproval.ApprovedAt), c.AdminApproval.RejectionReason,
		nullUUID(c.LabAssignment.AssignedBy), nullTime(c.LabAssignment.AssignedAt),
		c.IsInProgress, c.IsCompleted, c.IsArchived, nullTime(c.CompletedAt), nullTime(c.ArchiveDate),
		c.CreatedAt, c.UpdatedAt,
	}, nil
}

func scanCase(rows *sql.Rows) (*Case, error) {
	var (
		c                                               Case
		patientID                                       stdsql.NullString
		caseType, gender, tier, role, status, approval  string
		standard, premium, attachments, notes           []byte
		clinicID, productID, createdBy, technician      uuid.NullUUID
		approvedBy, labAssignedBy                       uuid.NullUUID
		approvedAt, labAssignedAt, completedAt, archive stdsql.NullTime
	)
	err := rows.Scan(
		&c.ID, &c.CaseNumber, &patientID, &caseType, &gender, &c.Age, &c.ScanNumber,
		&tier, &standard, &premium, &c.Description, &attachments, &notes,
		&clinicID, &productID, &createdBy, &role, &technician,
		&status, &approval, &approvedBy, &approvedAt, &c.AdminApproval.RejectionReason,
		&labAssignedBy, &labAssignedAt,
		&c.IsInProgress, &c.IsCompleted, &c.IsArchived, &completedAt, &archive,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}

	c.PatientID = patientID.String
	c.CaseType = CaseType(caseType)
	c.Gender = Gender(gender)
	c.SelectedTier = Tier(tier)
	c.CreatedByRole = constants.Role(role)
	c.Status = CaseStatus(status)
	c.AdminApproval.Status = ApprovalStatus(approval)
	c.ClinicID = uuidPtr(clinicID)
	c.ProductID = uuidPtr(productID)
	c.CreatedBy = uuidPtr(createdBy)
	c.AssignedTechnician = uuidPtr(technician)
	c.AdminApproval.ApprovedBy = uuidPtr(approvedBy)
	c.AdminApproval.ApprovedAt = timePtr(approvedAt)
	c.LabAssignment.AssignedBy = uuidPtr(labAssignedBy)
	c.LabAssignment.AssignedAt = timePtr(labAssignedAt)
	c.CompletedAt = timePtr(completedAt)
	c.ArchiveDate = timePtr(archive)

	if len(standard) > 0 && string(standard) != "null" {
		c.Standard = &StandardTier{}
		if err := fromJSONB(standard, c.Standard); err != nil {
			return nil, err
		}
	}
	if len(premium) > 0 && string(premium) != "null" {
		c.Premium = &PremiumTier{}
		if err := fromJSONB(premium, c.Premium); err != nil {
			return nil, err
		}
	}
	if err := fromJSONB(attachments, &c.GlobalAttachments); err != nil {
		return nil, err
	}
	if err := fromJSONB(notes, &c.Notes); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CaseStore) Create(ctx context.Context, c *Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	vals, err := s.values(c)
	if err != nil {
		return err
	}
	q, args := builder().Insert(casesTable).Columns(caseColumns...).Values(vals...).Query()
	if _, err := exec(ctx, s.drv, q, args); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *CaseStore) Get(ctx context.Context, id uuid.UUID) (*Case, error) {
	q, args := builder().Select(caseColumns...).From(sql.Table(casesTable)).Where(sql.EQ("id", id)).Query()
	var out *Case
	err := queryOne(ctx, s.drv, q, args, func(rows *sql.Rows) (err error) {
		out, err = scanCase(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save overwrites every mutable column and bumps updated_at. Concurrent
// writers are last-write-wins.
func (s *CaseStore) Save(ctx context.Context, c *Case) error {
	c.UpdatedAt = time.Now().UTC()
	vals, err := s.values(c)
	if err != nil {
		return err
	}
	upd := builder().Update(casesTable)
	// skip id (0) and created_at
	for i, col := range caseColumns {
		if col == "id" || col == "created_at" {
			continue
		}
		upd.Set(col, vals[i])
	}
	q, args := upd.Where(sql.EQ("id", c.ID)).Query()
	if err := execOne(ctx, s.drv, q, args); err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	return nil
}

func (s *CaseStore) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := builder().Delete(casesTable).Where(sql.EQ("id", id)).Query()
	return execOne(ctx, s.drv, q, args)
}

// List returns one page of cases matching f and the total match count.
func (s *CaseStore) List(ctx context.Context, f CaseFilter, sort Sort, page Page) ([]*Case, int, error) {
	page = page.Normalize()
	p := f.Predicate()

	total, err := count(ctx, s.drv, casesTable, p)
	if err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}

	sel := builder().Select(caseColumns...).From(sql.Table(casesTable))
	if p != nil {
		sel.Where(p)
	}
	sort.apply(sel, caseSortColumns)
	q, args := sel.Limit(page.Limit).Offset(page.Offset()).Query()

	out := make([]*Case, 0, page.Limit)
	err = queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		c, err := scanCase(rows)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}
	return out, total, nil
}

// CountByStatus groups the cases matching f by status.
func (s *CaseStore) CountByStatus(ctx context.Context, f CaseFilter) (map[CaseStatus]int, error) {
	sel := builder().Select("status", sql.Count("*")).From(sql.Table(casesTable))
	if p := f.Predicate(); p != nil {
		sel.Where(p)
	}
	q, args := sel.GroupBy("status").Query()

	out := make(map[CaseStatus]int)
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		var (
			st string
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return err
		}
		out[CaseStatus(st)] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count cases by status: %w", err)
	}
	return out, nil
}

// ArchiveWhere flips every case matching rule at now to Archived in one
// conditional UPDATE. Rows already archived never match.
func (s *CaseStore) ArchiveWhere(ctx context.Context, rule ArchiveRule, now time.Time) (int64, error) {
	q, args := builder().Update(casesTable).
		Set("status", string(StatusArchived)).
		Set("is_archived", true).
		Set("is_in_progress", false).
		Set("is_completed", false).
		Set("archive_date", now).
		Set("updated_at", now).
		Where(rule.Predicate(now)).
		Query()
	n, err := exec(ctx, s.drv, q, args)
	if err != nil {
		return 0, fmt.Errorf("archive %s: %w", rule.Name, err)
	}
	return n, nil
}
