package cases

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

// This file is the single state machine for a case. Every status change
// goes through setStatus so the boolean flags always follow status.

// ReviewAction is an admin decision on a submitted case.
type ReviewAction string

const (
	ReviewAccept ReviewAction = "accept"
	ReviewReject ReviewAction = "reject"
)

// overridable are the statuses a manual status update may request.
var overridable = []repo.CaseStatus{
	repo.StatusPending,
	repo.StatusInProgress,
	repo.StatusCompleted,
	repo.StatusCancelled,
	repo.StatusOnHold,
}

// overrideEdges is the transition graph for manual status updates.
var overrideEdges = map[repo.CaseStatus][]repo.CaseStatus{
	repo.StatusPending:    {repo.StatusCancelled, repo.StatusOnHold},
	repo.StatusAccepted:   {repo.StatusInProgress, repo.StatusCancelled, repo.StatusOnHold},
	repo.StatusInProgress: {repo.StatusCompleted, repo.StatusOnHold, repo.StatusCancelled},
	repo.StatusOnHold:     {repo.StatusPending, repo.StatusInProgress, repo.StatusCancelled},
	repo.StatusCompleted:  {repo.StatusInProgress},
	repo.StatusRejected:   {repo.StatusPending},
	repo.StatusCancelled:  {repo.StatusPending},
}

// ParseStatus maps user input onto a known status, ignoring case.
func ParseStatus(s string) (repo.CaseStatus, bool) {
	for _, st := range repo.AllStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

func setStatus(c *repo.Case, st repo.CaseStatus, now time.Time) {
	c.Status = st
	c.IsInProgress = st == repo.StatusInProgress
	c.IsCompleted = st == repo.StatusCompleted
	c.IsArchived = st == repo.StatusArchived

	switch st {
	case repo.StatusCompleted:
		c.CompletedAt = &now
	case repo.StatusArchived:
		c.ArchiveDate = &now
	default:
		c.CompletedAt = nil
		c.ArchiveDate = nil
	}
}

// enter puts a new or remade case into its first state. A scan number means
// the case waits for admin review; without one it is accepted immediately.
func enter(c *repo.Case, now time.Time) {
	c.AdminApproval = repo.AdminApproval{Status: repo.ApprovalPending}
	c.AssignedTechnician = nil
	c.LabAssignment = repo.LabAssignment{}

	if strings.TrimSpace(c.ScanNumber) != "" {
		setStatus(c, repo.StatusPending, now)
		return
	}
	c.AdminApproval.Status = repo.ApprovalAccepted
	c.AdminApproval.ApprovedAt = &now
	setStatus(c, repo.StatusAccepted, now)
}

func review(c *repo.Case, action ReviewAction, reason string, approver uuid.UUID, now time.Time) error {
	if c.IsArchived {
		return ErrArchived
	}
	if c.AdminApproval.Status != repo.ApprovalPending {
		return ErrAlreadyReviewed
	}

	switch action {
	case ReviewAccept:
		c.AdminApproval = repo.AdminApproval{
			Status:     repo.ApprovalAccepted,
			ApprovedBy: &approver,
			ApprovedAt: &now,
		}
		setStatus(c, repo.StatusAccepted, now)
	case ReviewReject:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return ErrReasonRequired
		}
		c.AdminApproval = repo.AdminApproval{
			Status:          repo.ApprovalRejected,
			ApprovedBy:      &approver,
			ApprovedAt:      &now,
			RejectionReason: reason,
		}
		setStatus(c, repo.StatusRejected, now)
	default:
		return ErrInvalidAction
	}
	return nil
}

// assign hands an approved case to a technician; that starts the work.
func assign(c *repo.Case, technician, by uuid.UUID, now time.Time) error {
	if c.AdminApproval.Status != repo.ApprovalAccepted {
		return ErrNotApproved
	}
	switch c.Status {
	case repo.StatusAccepted, repo.StatusInProgress, repo.StatusOnHold:
	default:
		return fmt.Errorf("%w: cannot assign a case that is %s", ErrInvalidTransition, c.Status)
	}

	c.AssignedTechnician = &technician
	c.LabAssignment = repo.LabAssignment{AssignedBy: &by, AssignedAt: &now}
	setStatus(c, repo.StatusInProgress, now)
	return nil
}

func complete(c *repo.Case, now time.Time) error {
	if c.Status != repo.StatusInProgress {
		return fmt.Errorf("%w: only cases in progress can be completed", ErrInvalidTransition)
	}
	setStatus(c, repo.StatusCompleted, now)
	return nil
}

// override applies a manual status change. The target must be in the
// whitelist and reachable from the current status.
func override(c *repo.Case, target repo.CaseStatus, now time.Time) error {
	if !slices.Contains(overridable, target) {
		return ErrInvalidStatus
	}
	if c.Status == target {
		return nil
	}
	if !slices.Contains(overrideEdges[c.Status], target) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, c.Status, target)
	}

	switch target {
	case repo.StatusInProgress:
		if c.AdminApproval.Status != repo.ApprovalAccepted {
			return ErrNotApproved
		}
		if c.AssignedTechnician == nil {
			return ErrNoTechnician
		}
	case repo.StatusPending:
		// back to review
		c.AdminApproval = repo.AdminApproval{Status: repo.ApprovalPending}
	}
	setStatus(c, target, now)
	return nil
}

// remake reopens a case as a Remake and runs it through entry again.
func remake(c *repo.Case, now time.Time) error {
	if c.IsArchived {
		return ErrArchived
	}
	c.CaseType = repo.CaseTypeRemake
	enter(c, now)
	return nil
}
