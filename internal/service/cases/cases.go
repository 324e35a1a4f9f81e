package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/Alijeyrad/dentlab_backend/config"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

type Store interface {
	Archiver
	Create(ctx context.Context, c *repo.Case) error
	Get(ctx context.Context, id uuid.UUID) (*repo.Case, error)
	Save(ctx context.Context, c *repo.Case) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f repo.CaseFilter, sort repo.Sort, page repo.Page) ([]*repo.Case, int, error)
	CountByStatus(ctx context.Context, f repo.CaseFilter) (map[repo.CaseStatus]int, error)
}

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
}

type Notifier interface {
	Notify(ctx context.Context, n *repo.Notification) error
}

// Realtime pushes an event to every socket of one user.
type Realtime interface {
	EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload any) error
}

type Mailer interface {
	SendCaseRejected(ctx context.Context, to, name, caseRef, reason string) error
}

type Texter interface {
	SendCaseAssigned(ctx context.Context, phone, caseRef string) error
}

// Effects bundles the best-effort collaborators. Nil members are skipped.
type Effects struct {
	Notifier Notifier
	Realtime Realtime
	Mailer   Mailer
	Texter   Texter
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type PaginatedResult[T any] struct {
	Data       []T
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

type CreateRequest struct {
	CaseType          repo.CaseType
	Gender            repo.Gender
	Age               int
	CaseNumber        string
	PatientID         string
	ScanNumber        string
	SelectedTier      repo.Tier
	Standard          *repo.StandardTier
	Premium           *repo.PremiumTier
	Description       string
	ClinicID          *uuid.UUID
	ProductID         *uuid.UUID
	GlobalAttachments []repo.Attachment
}

// UpdateRequest edits descriptive fields only; lifecycle fields change
// through the transition methods.
type UpdateRequest struct {
	CaseType     *repo.CaseType
	Gender       *repo.Gender
	Age          *int
	CaseNumber   *string
	PatientID    *string
	ScanNumber   *string
	SelectedTier *repo.Tier
	Standard     *repo.StandardTier
	Premium      *repo.PremiumTier
	Description  *string
	ProductID    *uuid.UUID
	// appended to globalAttachments
	Attachments []repo.Attachment
}

type ListRequest struct {
	Query
	Sort repo.Sort
	Page repo.Page
}

type ReviewRequest struct {
	Action          ReviewAction
	RejectionReason string
}

type Stats struct {
	Total    int                     `json:"total"`
	ByStatus map[repo.CaseStatus]int `json:"byStatus"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, actor *Actor, req CreateRequest) (*Outcome, error)
	Get(ctx context.Context, actor *Actor, id uuid.UUID) (*repo.Case, error)
	List(ctx context.Context, actor *Actor, req ListRequest) (*PaginatedResult[*repo.Case], error)
	ListArchived(ctx context.Context, actor *Actor, req ListRequest) (*PaginatedResult[*repo.Case], error)
	Search(ctx context.Context, actor *Actor, term string) ([]*repo.Case, error)
	Stats(ctx context.Context, actor *Actor, q Query) (*Stats, error)

	Update(ctx context.Context, actor *Actor, id uuid.UUID, req UpdateRequest) (*repo.Case, error)
	AddNote(ctx context.Context, actor *Actor, id uuid.UUID, text string) (*repo.Case, error)
	Delete(ctx context.Context, actor *Actor, id uuid.UUID) error

	Review(ctx context.Context, actor *Actor, id uuid.UUID, req ReviewRequest) (*Outcome, error)
	AssignTechnician(ctx context.Context, actor *Actor, id, technicianID uuid.UUID) (*Outcome, error)
	Complete(ctx context.Context, actor *Actor, id uuid.UUID) (*Outcome, error)
	UpdateStatus(ctx context.Context, actor *Actor, id uuid.UUID, status string) (*Outcome, error)
	Remake(ctx context.Context, actor *Actor, id uuid.UUID) (*Outcome, error)

	Sweep(ctx context.Context) (SweepResult, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type caseService struct {
	store   Store
	users   Users
	sweeper *Sweeper
	fx      Effects
	effects effects
	cfg     config.CasesConfig
	now     func() time.Time
}

func New(store Store, users Users, sweeper *Sweeper, fx Effects, cfg config.CasesConfig) Service {
	failures, err := otel.Meter("dentlab/cases").Int64Counter("dentlab_side_effect_failures_total",
		metric.WithDescription("Best-effort case side effects that failed"))
	if err != nil {
		slog.Warn("cases: counter init failed", "err", err)
	}
	return &caseService{
		store:   store,
		users:   users,
		sweeper: sweeper,
		fx:      fx,
		effects: effects{failures: failures},
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *caseService) clock() time.Time { return s.now().UTC() }

// load fetches a case and applies the single-record visibility check.
func (s *caseService) load(ctx context.Context, actor *Actor, id uuid.UUID) (*repo.Case, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("get case: %w", err)
	}
	if !CanView(actor, c) {
		return nil, ErrForbidden
	}
	return c, nil
}

func (s *caseService) save(ctx context.Context, c *repo.Case) error {
	if err := s.store.Save(ctx, c); err != nil {
		if repo.IsNotFound(err) {
			return ErrCaseNotFound
		}
		if repo.IsDuplicate(err) {
			return ErrPatientIDExists
		}
		return fmt.Errorf("save case: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (s *caseService) Get(ctx context.Context, actor *Actor, id uuid.UUID) (*repo.Case, error) {
	return s.load(ctx, actor, id)
}

func (s *caseService) List(ctx context.Context, actor *Actor, req ListRequest) (*PaginatedResult[*repo.Case], error) {
	if actor == nil && !s.cfg.PublicSearch {
		return nil, ErrForbidden
	}
	page := req.Page.Normalize()
	f := Scope(actor, req.Query)
	if f.None {
		return &PaginatedResult[*repo.Case]{Data: []*repo.Case{}, Page: page.Page, PerPage: page.Limit}, nil
	}

	items, total, err := s.store.List(ctx, f, req.Sort, page)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return &PaginatedResult[*repo.Case]{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.Limit,
		TotalPages: page.TotalPages(total),
	}, nil
}

// ListArchived brings the archive up to date before reading it. Without an
// explicit sort the most recently archived cases come first.
func (s *caseService) ListArchived(ctx context.Context, actor *Actor, req ListRequest) (*PaginatedResult[*repo.Case], error) {
	if s.cfg.SweepOnArchiveRead && s.sweeper != nil {
		if _, err := s.sweeper.Run(ctx); err != nil {
			slog.WarnContext(ctx, "cases: sweep before archive read failed", "err", err)
		}
	}
	archived := true
	req.Archived = &archived
	if req.Sort.Field == "" {
		req.Sort = repo.Sort{Field: "archiveDate", Desc: true}
	}
	return s.List(ctx, actor, req)
}

func (s *caseService) Search(ctx context.Context, actor *Actor, term string) ([]*repo.Case, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrSearchRequired
	}
	res, err := s.List(ctx, actor, ListRequest{
		Query: Query{Search: term},
		Sort:  repo.Sort{Field: "createdAt", Desc: true},
		Page:  repo.Page{Page: 1, Limit: 20},
	})
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (s *caseService) Stats(ctx context.Context, actor *Actor, q Query) (*Stats, error) {
	out := &Stats{ByStatus: make(map[repo.CaseStatus]int, len(repo.AllStatuses))}
	for _, st := range repo.AllStatuses {
		out.ByStatus[st] = 0
	}
	f := Scope(actor, q)
	if f.None {
		return out, nil
	}
	counts, err := s.store.CountByStatus(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("case stats: %w", err)
	}
	for st, n := range counts {
		out.ByStatus[st] = n
		out.Total += n
	}
	return out, nil
}

func (s *caseService) Sweep(ctx context.Context) (SweepResult, error) {
	if s.sweeper == nil {
		return SweepResult{Archived: map[string]int64{}}, nil
	}
	return s.sweeper.Run(ctx)
}

// ---------------------------------------------------------------------------
// Create / update
// ---------------------------------------------------------------------------

func validateCore(c *repo.Case) error {
	switch c.Gender {
	case repo.GenderMale, repo.GenderFemale:
	default:
		return ErrInvalidGender
	}
	if c.Age < 1 || c.Age > 130 {
		return ErrInvalidAge
	}
	switch c.CaseType {
	case repo.CaseTypeNew:
	case repo.CaseTypeContinuation, repo.CaseTypeRemake:
		if strings.TrimSpace(c.CaseNumber) == "" {
			return ErrCaseNumberNeeded
		}
	default:
		return ErrInvalidCaseType
	}
	switch c.SelectedTier {
	case "", repo.TierStandard, repo.TierPremium:
	default:
		return ErrInvalidTier
	}
	if err := ValidateStandard(c.Standard); err != nil {
		return err
	}
	return ValidatePremium(c.Premium)
}

// dropOtherTier keeps only the tree that matches the selected tier.
func dropOtherTier(c *repo.Case) {
	switch c.SelectedTier {
	case repo.TierStandard:
		c.Premium = nil
	case repo.TierPremium:
		c.Standard = nil
	}
}

func (s *caseService) Create(ctx context.Context, actor *Actor, req CreateRequest) (*Outcome, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	c := &repo.Case{
		CaseType:          req.CaseType,
		Gender:            req.Gender,
		Age:               req.Age,
		CaseNumber:        strings.TrimSpace(req.CaseNumber),
		PatientID:         strings.TrimSpace(req.PatientID),
		ScanNumber:        strings.TrimSpace(req.ScanNumber),
		SelectedTier:      req.SelectedTier,
		Standard:          req.Standard,
		Premium:           req.Premium,
		Description:       req.Description,
		ClinicID:          req.ClinicID,
		ProductID:         req.ProductID,
		GlobalAttachments: req.GlobalAttachments,
		CreatedByRole:     actor.Role,
	}
	if c.CaseType == "" {
		c.CaseType = repo.CaseTypeNew
	}
	creator := actor.ID
	c.CreatedBy = &creator

	// clinic staff always file under their own clinic
	if !actor.Role.IsAdmin() && actor.Role != constants.RoleLabManager && actor.ClinicID != nil {
		c.ClinicID = actor.ClinicID
	}

	if err := validateCore(c); err != nil {
		return nil, err
	}
	dropOtherTier(c)

	now := s.clock()
	c.CreatedAt = now
	enter(c, now)

	if err := s.store.Create(ctx, c); err != nil {
		if repo.IsDuplicate(err) {
			return nil, ErrPatientIDExists
		}
		return nil, fmt.Errorf("create case: %w", err)
	}

	out := &Outcome{Case: c}
	s.notify(ctx, out, &repo.Notification{
		Type:         "case_created",
		Title:        "New case submitted",
		Message:      fmt.Sprintf("Case %s was submitted and is %s.", caseRef(c), c.Status),
		CreatedBy:    &creator,
		ReceiverRole: constants.RoleAdmin,
	})
	return out, nil
}

func (s *caseService) Update(ctx context.Context, actor *Actor, id uuid.UUID, req UpdateRequest) (*repo.Case, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.IsArchived {
		return nil, ErrArchived
	}

	if req.CaseType != nil {
		c.CaseType = *req.CaseType
	}
	if req.Gender != nil {
		c.Gender = *req.Gender
	}
	if req.Age != nil {
		c.Age = *req.Age
	}
	if req.CaseNumber != nil {
		c.CaseNumber = strings.TrimSpace(*req.CaseNumber)
	}
	if req.PatientID != nil {
		c.PatientID = strings.TrimSpace(*req.PatientID)
	}
	if req.ScanNumber != nil {
		c.ScanNumber = strings.TrimSpace(*req.ScanNumber)
	}
	if req.SelectedTier != nil {
		c.SelectedTier = *req.SelectedTier
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.ProductID != nil {
		c.ProductID = req.ProductID
	}
	c.Standard = MergeStandard(c.Standard, req.Standard)
	c.Premium = MergePremium(c.Premium, req.Premium)
	c.GlobalAttachments = append(c.GlobalAttachments, req.Attachments...)

	if err := validateCore(c); err != nil {
		return nil, err
	}
	dropOtherTier(c)

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *caseService) AddNote(ctx context.Context, actor *Actor, id uuid.UUID, text string) (*repo.Case, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoteRequired
	}
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	c.Notes = append(c.Notes, repo.CaseNote{
		Text:       text,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		CreatedAt:  s.clock(),
	})
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *caseService) Delete(ctx context.Context, actor *Actor, id uuid.UUID) error {
	if actor == nil || !actor.Role.IsAdmin() {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if repo.IsNotFound(err) {
			return ErrCaseNotFound
		}
		return fmt.Errorf("delete case: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Transitions
// ---------------------------------------------------------------------------

func (s *caseService) Review(ctx context.Context, actor *Actor, id uuid.UUID, req ReviewRequest) (*Outcome, error) {
	if actor == nil || !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	action := ReviewAction(strings.ToLower(strings.TrimSpace(string(req.Action))))
	if err := review(c, action, req.RejectionReason, actor.ID, s.clock()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}

	out := &Outcome{Case: c}
	by := actor.ID
	n := &repo.Notification{
		Type:         "case_accepted",
		Title:        "Case accepted",
		Message:      fmt.Sprintf("Case %s was accepted by the lab.", caseRef(c)),
		CreatedBy:    &by,
		ReceiverRole: c.CreatedByRole,
		ReceiverID:   c.CreatedBy,
	}
	if action == ReviewReject {
		n.Type = "case_rejected"
		n.Title = "Case rejected"
		n.Message = fmt.Sprintf("Case %s was rejected: %s", caseRef(c), c.AdminApproval.RejectionReason)
	}
	s.notify(ctx, out, n)
	s.emit(ctx, out, c.CreatedBy, "case_response", map[string]any{
		"caseId":  c.ID,
		"action":  action,
		"status":  c.Status,
		"message": n.Message,
	})
	if action == ReviewReject {
		s.mailRejection(ctx, out)
	}
	return out, nil
}

func (s *caseService) AssignTechnician(ctx context.Context, actor *Actor, id, technicianID uuid.UUID) (*Outcome, error) {
	if actor == nil || (!actor.Role.IsAdmin() && actor.Role != constants.RoleLabManager) {
		return nil, ErrForbidden
	}
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.AdminApproval.Status != repo.ApprovalAccepted {
		return nil, ErrNotApproved
	}

	tech, err := s.users.Get(ctx, technicianID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrInvalidTechnician
		}
		return nil, fmt.Errorf("get technician: %w", err)
	}
	if tech.Role != constants.RoleLabTechnician {
		return nil, ErrInvalidTechnician
	}

	if err := assign(c, tech.ID, actor.ID, s.clock()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}

	out := &Outcome{Case: c}
	by := actor.ID
	s.notify(ctx, out, &repo.Notification{
		Type:         "case_assigned",
		Title:        "Case assigned",
		Message:      fmt.Sprintf("Case %s was assigned to you.", caseRef(c)),
		CreatedBy:    &by,
		ReceiverRole: constants.RoleLabTechnician,
		ReceiverID:   &tech.ID,
	})
	if s.cfg.NotifyTechnicianBySMS && s.fx.Texter != nil && tech.Phone != "" {
		s.effects.run(ctx, out, EffectSMS, func() error {
			return s.fx.Texter.SendCaseAssigned(ctx, tech.Phone, caseRef(c))
		})
	}
	return out, nil
}

// assignedOrUnrestricted reports whether actor may move c's work forward.
// Technicians only act on cases assigned to them.
func assignedOrUnrestricted(actor *Actor, c *repo.Case) bool {
	if actor.Role != constants.RoleLabTechnician {
		return true
	}
	return c.AssignedTechnician != nil && *c.AssignedTechnician == actor.ID
}

func (s *caseService) Complete(ctx context.Context, actor *Actor, id uuid.UUID) (*Outcome, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != constants.RoleLabTechnician && !actor.Role.IsAdmin() && actor.Role != constants.RoleLabManager {
		return nil, ErrForbidden
	}
	if !assignedOrUnrestricted(actor, c) {
		return nil, ErrNotAssignee
	}

	if err := complete(c, s.clock()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}

	out := &Outcome{Case: c}
	by := actor.ID
	s.notify(ctx, out, &repo.Notification{
		Type:         "case_completed",
		Title:        "Case completed",
		Message:      fmt.Sprintf("Case %s is completed.", caseRef(c)),
		CreatedBy:    &by,
		ReceiverRole: c.CreatedByRole,
		ReceiverID:   c.CreatedBy,
	})
	return out, nil
}

func (s *caseService) UpdateStatus(ctx context.Context, actor *Actor, id uuid.UUID, status string) (*Outcome, error) {
	target, ok := ParseStatus(status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.IsArchived {
		return nil, ErrArchived
	}
	if !assignedOrUnrestricted(actor, c) {
		return nil, ErrNotAssignee
	}
	prev := c.Status
	if err := override(c, target, s.clock()); err != nil {
		return nil, err
	}
	out := &Outcome{Case: c}
	if prev == c.Status {
		return out, nil
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}

	by := actor.ID
	s.notify(ctx, out, &repo.Notification{
		Type:         "case_status_updated",
		Title:        "Case status updated",
		Message:      fmt.Sprintf("Case %s moved from %s to %s.", caseRef(c), prev, c.Status),
		CreatedBy:    &by,
		ReceiverRole: c.CreatedByRole,
		ReceiverID:   c.CreatedBy,
	})
	return out, nil
}

func (s *caseService) Remake(ctx context.Context, actor *Actor, id uuid.UUID) (*Outcome, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := remake(c, s.clock()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}

	out := &Outcome{Case: c}
	by := actor.ID
	s.notify(ctx, out, &repo.Notification{
		Type:         "case_remake",
		Title:        "Remake requested",
		Message:      fmt.Sprintf("Case %s was sent back for a remake.", caseRef(c)),
		CreatedBy:    &by,
		ReceiverRole: constants.RoleAdmin,
	})
	return out, nil
}

// ---------------------------------------------------------------------------
// Side effects
// ---------------------------------------------------------------------------

func caseRef(c *repo.Case) string {
	switch {
	case c.CaseNumber != "":
		return c.CaseNumber
	case c.PatientID != "":
		return c.PatientID
	}
	return c.ID.String()[:8]
}

func (s *caseService) notify(ctx context.Context, out *Outcome, n *repo.Notification) {
	if s.fx.Notifier == nil {
		return
	}
	caseID := out.Case.ID
	n.CaseID = &caseID
	s.effects.run(ctx, out, EffectNotify, func() error {
		return s.fx.Notifier.Notify(ctx, n)
	})
}

func (s *caseService) emit(ctx context.Context, out *Outcome, to *uuid.UUID, event string, payload any) {
	if s.fx.Realtime == nil || to == nil {
		return
	}
	s.effects.run(ctx, out, EffectRealtime, func() error {
		return s.fx.Realtime.EmitToUser(ctx, *to, event, payload)
	})
}

func (s *caseService) mailRejection(ctx context.Context, out *Outcome) {
	c := out.Case
	if s.fx.Mailer == nil || c.CreatedBy == nil || c.CreatedByRole.IsAdmin() {
		return
	}
	s.effects.run(ctx, out, EffectEmail, func() error {
		u, err := s.users.Get(ctx, *c.CreatedBy)
		if err != nil {
			return fmt.Errorf("lookup case creator: %w", err)
		}
		if u.Email == "" {
			return errors.New("case creator has no email")
		}
		return s.fx.Mailer.SendCaseRejected(ctx, u.Email, u.Name, caseRef(c), c.AdminApproval.RejectionReason)
	})
}
