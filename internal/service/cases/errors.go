package cases

import "errors"

var (
	ErrCaseNotFound      = errors.New("case not found")
	ErrForbidden         = errors.New("you do not have access to this case")
	ErrNotApproved       = errors.New("Case must be accepted by admin first")
	ErrAlreadyReviewed   = errors.New("case has already been reviewed")
	ErrReasonRequired    = errors.New("rejection reason is required")
	ErrInvalidAction     = errors.New("action must be accept or reject")
	ErrInvalidStatus     = errors.New("invalid status. Must be one of: Pending, In Progress, Completed, Cancelled, On Hold")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrNoTechnician      = errors.New("case has no assigned technician")
	ErrInvalidTechnician = errors.New("assignee must be an existing lab technician")
	ErrNotAssignee       = errors.New("only the assigned technician can work on this case")
	ErrArchived          = errors.New("archived cases are read-only")
	ErrPatientIDExists   = errors.New("a case with this patient ID already exists")
	ErrCaseNumberNeeded  = errors.New("caseNumber is required for Continuation and Remake cases")
	ErrInvalidGender     = errors.New("gender must be Male or Female")
	ErrInvalidAge        = errors.New("age must be between 1 and 130")
	ErrInvalidCaseType   = errors.New("caseType must be New, Continuation or Remake")
	ErrInvalidTier       = errors.New("selectedTier must be Standard or Premium")
	ErrNoteRequired      = errors.New("note text is required")
	ErrSearchRequired    = errors.New("Search query required")
)

// ValidationError reports a bad field inside a tier configuration.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }
