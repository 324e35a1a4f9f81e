package cases

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func caseIn(status repo.CaseStatus, approval repo.ApprovalStatus) *repo.Case {
	c := &repo.Case{ID: uuid.New(), AdminApproval: repo.AdminApproval{Status: approval}}
	setStatus(c, status, t0)
	return c
}

func TestEnter(t *testing.T) {
	tests := []struct {
		name         string
		scan         string
		wantStatus   repo.CaseStatus
		wantApproval repo.ApprovalStatus
		wantApproved bool
	}{
		{"with scan number waits for review", "SCN-1", repo.StatusPending, repo.ApprovalPending, false},
		{"without scan number is accepted", "", repo.StatusAccepted, repo.ApprovalAccepted, true},
		{"blank scan number counts as missing", "   ", repo.StatusAccepted, repo.ApprovalAccepted, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &repo.Case{ScanNumber: tt.scan}
			enter(c, t0)
			if c.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", c.Status, tt.wantStatus)
			}
			if c.AdminApproval.Status != tt.wantApproval {
				t.Errorf("approval = %q, want %q", c.AdminApproval.Status, tt.wantApproval)
			}
			if got := c.AdminApproval.ApprovedAt != nil; got != tt.wantApproved {
				t.Errorf("approvedAt set = %v, want %v", got, tt.wantApproved)
			}
		})
	}
}

func TestReview(t *testing.T) {
	admin := uuid.New()

	t.Run("accept", func(t *testing.T) {
		c := caseIn(repo.StatusPending, repo.ApprovalPending)
		if err := review(c, ReviewAccept, "", admin, t0); err != nil {
			t.Fatalf("review() error = %v", err)
		}
		if c.Status != repo.StatusAccepted || c.AdminApproval.Status != repo.ApprovalAccepted {
			t.Errorf("got %q/%q, want Accepted/Accepted", c.Status, c.AdminApproval.Status)
		}
		if c.AdminApproval.ApprovedBy == nil || *c.AdminApproval.ApprovedBy != admin {
			t.Errorf("approvedBy not recorded")
		}
	})

	t.Run("reject needs a reason", func(t *testing.T) {
		c := caseIn(repo.StatusPending, repo.ApprovalPending)
		if err := review(c, ReviewReject, "  ", admin, t0); !errors.Is(err, ErrReasonRequired) {
			t.Fatalf("review() error = %v, want ErrReasonRequired", err)
		}
		if c.Status != repo.StatusPending {
			t.Errorf("status changed on failed review: %q", c.Status)
		}
	})

	t.Run("reject", func(t *testing.T) {
		c := caseIn(repo.StatusPending, repo.ApprovalPending)
		if err := review(c, ReviewReject, "scan unreadable", admin, t0); err != nil {
			t.Fatalf("review() error = %v", err)
		}
		if c.Status != repo.StatusRejected || c.AdminApproval.RejectionReason != "scan unreadable" {
			t.Errorf("got %q reason %q", c.Status, c.AdminApproval.RejectionReason)
		}
	})

	t.Run("second review", func(t *testing.T) {
		c := caseIn(repo.StatusAccepted, repo.ApprovalAccepted)
		if err := review(c, ReviewReject, "late", admin, t0); !errors.Is(err, ErrAlreadyReviewed) {
			t.Errorf("review() error = %v, want ErrAlreadyReviewed", err)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		c := caseIn(repo.StatusPending, repo.ApprovalPending)
		if err := review(c, "maybe", "", admin, t0); !errors.Is(err, ErrInvalidAction) {
			t.Errorf("review() error = %v, want ErrInvalidAction", err)
		}
	})
}

func TestAssignRequiresApproval(t *testing.T) {
	for _, st := range repo.AllStatuses {
		for _, ap := range []repo.ApprovalStatus{repo.ApprovalPending, repo.ApprovalRejected} {
			t.Run(string(st)+"/"+string(ap), func(t *testing.T) {
				c := caseIn(st, ap)
				err := assign(c, uuid.New(), uuid.New(), t0)
				if !errors.Is(err, ErrNotApproved) {
					t.Fatalf("assign() error = %v, want ErrNotApproved", err)
				}
				if err.Error() != "Case must be accepted by admin first" {
					t.Errorf("message = %q", err.Error())
				}
				if c.AssignedTechnician != nil {
					t.Errorf("technician recorded on failed assignment")
				}
			})
		}
	}
}

func TestAssignStartsWork(t *testing.T) {
	tech, manager := uuid.New(), uuid.New()
	c := caseIn(repo.StatusAccepted, repo.ApprovalAccepted)

	if err := assign(c, tech, manager, t0); err != nil {
		t.Fatalf("assign() error = %v", err)
	}
	if c.Status != repo.StatusInProgress || !c.IsInProgress || c.IsCompleted {
		t.Errorf("got status %q inProgress=%v completed=%v", c.Status, c.IsInProgress, c.IsCompleted)
	}
	if *c.AssignedTechnician != tech || *c.LabAssignment.AssignedBy != manager {
		t.Errorf("assignment not recorded")
	}

	if err := complete(c, t0.Add(time.Hour)); err != nil {
		t.Fatalf("complete() error = %v", err)
	}
	if !c.IsCompleted || c.IsInProgress || c.CompletedAt == nil {
		t.Errorf("completion flags wrong: %+v", c)
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	c := caseIn(repo.StatusAccepted, repo.ApprovalAccepted)
	if err := complete(c, t0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("complete() error = %v, want ErrInvalidTransition", err)
	}
}

func TestOverride(t *testing.T) {
	tech := uuid.New()
	tests := []struct {
		name    string
		from    repo.CaseStatus
		appr    repo.ApprovalStatus
		tech    bool
		to      repo.CaseStatus
		wantErr error
	}{
		{"not in whitelist", repo.StatusPending, repo.ApprovalPending, false, repo.StatusArchived, ErrInvalidStatus},
		{"accepted is not a manual target", repo.StatusPending, repo.ApprovalPending, false, repo.StatusAccepted, ErrInvalidStatus},
		{"pending to completed skips the graph", repo.StatusPending, repo.ApprovalPending, false, repo.StatusCompleted, ErrInvalidTransition},
		{"pending to on hold", repo.StatusPending, repo.ApprovalPending, false, repo.StatusOnHold, nil},
		{"on hold to in progress without approval", repo.StatusOnHold, repo.ApprovalPending, true, repo.StatusInProgress, ErrNotApproved},
		{"accepted to in progress without technician", repo.StatusAccepted, repo.ApprovalAccepted, false, repo.StatusInProgress, ErrNoTechnician},
		{"accepted to in progress", repo.StatusAccepted, repo.ApprovalAccepted, true, repo.StatusInProgress, nil},
		{"in progress to completed", repo.StatusInProgress, repo.ApprovalAccepted, true, repo.StatusCompleted, nil},
		{"archived is final", repo.StatusArchived, repo.ApprovalAccepted, true, repo.StatusPending, ErrInvalidTransition},
		{"same status is a no-op", repo.StatusOnHold, repo.ApprovalAccepted, false, repo.StatusOnHold, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := caseIn(tt.from, tt.appr)
			if tt.tech {
				c.AssignedTechnician = &tech
			}
			err := override(c, tt.to, t0)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("override() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				if c.Status != tt.from {
					t.Errorf("status changed on error: %q", c.Status)
				}
				return
			}
			if c.Status != tt.to {
				t.Errorf("status = %q, want %q", c.Status, tt.to)
			}
			if c.IsInProgress != (c.Status == repo.StatusInProgress) ||
				c.IsCompleted != (c.Status == repo.StatusCompleted) ||
				c.IsArchived != (c.Status == repo.StatusArchived) {
				t.Errorf("flags disagree with status %q: %+v", c.Status, c)
			}
		})
	}
}

func TestOverrideBackToPendingReopensReview(t *testing.T) {
	c := caseIn(repo.StatusRejected, repo.ApprovalRejected)
	c.AdminApproval.RejectionReason = "blurry"
	if err := override(c, repo.StatusPending, t0); err != nil {
		t.Fatalf("override() error = %v", err)
	}
	if c.AdminApproval.Status != repo.ApprovalPending || c.AdminApproval.RejectionReason != "" {
		t.Errorf("approval = %+v, want fresh pending review", c.AdminApproval)
	}
}

func TestRemake(t *testing.T) {
	tech := uuid.New()
	c := caseIn(repo.StatusCompleted, repo.ApprovalAccepted)
	c.ScanNumber = "SCN-9"
	c.AssignedTechnician = &tech

	if err := remake(c, t0); err != nil {
		t.Fatalf("remake() error = %v", err)
	}
	if c.CaseType != repo.CaseTypeRemake {
		t.Errorf("caseType = %q", c.CaseType)
	}
	if c.Status != repo.StatusPending || c.AdminApproval.Status != repo.ApprovalPending {
		t.Errorf("got %q/%q, want Pending/Pending", c.Status, c.AdminApproval.Status)
	}
	if c.AssignedTechnician != nil || c.IsCompleted || c.CompletedAt != nil {
		t.Errorf("previous work not cleared: %+v", c)
	}

	archived := caseIn(repo.StatusArchived, repo.ApprovalAccepted)
	if err := remake(archived, t0); !errors.Is(err, ErrArchived) {
		t.Errorf("remake(archived) error = %v, want ErrArchived", err)
	}
}

func TestParseStatus(t *testing.T) {
	if st, ok := ParseStatus("in progress"); !ok || st != repo.StatusInProgress {
		t.Errorf("ParseStatus(in progress) = %q, %v", st, ok)
	}
	if _, ok := ParseStatus("done"); ok {
		t.Errorf("ParseStatus(done) accepted")
	}
}
