package cases

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/config"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type fixture struct {
	svc      Service
	store    *memStore
	users    memUsers
	notifier *recordingNotifier
	mailer   *recordingMailer
}

func newFixture(t *testing.T, cfg config.CasesConfig) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		users:    memUsers{},
		notifier: &recordingNotifier{},
		mailer:   &recordingMailer{},
	}
	sw := NewSweeper(f.store, Rules(cfg))
	f.svc = New(f.store, f.users, sw, Effects{Notifier: f.notifier, Mailer: f.mailer}, cfg)
	return f
}

func (f *fixture) addUser(role constants.Role, clinic *uuid.UUID) *Actor {
	u := &repo.User{ID: uuid.New(), Name: string(role), Email: string(role) + "@lab.test", Role: role, ClinicID: clinic}
	f.users[u.ID] = u
	return &Actor{ID: u.ID, Kind: constants.KindUser, Role: role, ClinicID: clinic}
}

func basicCase(scan string) CreateRequest {
	return CreateRequest{Gender: repo.GenderFemale, Age: 42, ScanNumber: scan, SelectedTier: repo.TierStandard}
}

func TestCreateBranches(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	clinic := uuid.New()
	dentist := f.addUser(constants.RoleDentist, &clinic)

	withScan, err := f.svc.Create(context.Background(), dentist, basicCase("SCN-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if withScan.Case.Status != repo.StatusPending || withScan.Case.AdminApproval.Status != repo.ApprovalPending {
		t.Errorf("with scan: %q/%q", withScan.Case.Status, withScan.Case.AdminApproval.Status)
	}
	if withScan.Case.CaseType != repo.CaseTypeNew {
		t.Errorf("caseType default = %q", withScan.Case.CaseType)
	}
	if withScan.Case.ClinicID == nil || *withScan.Case.ClinicID != clinic {
		t.Errorf("clinic not taken from the dentist")
	}

	noScan, err := f.svc.Create(context.Background(), dentist, basicCase(""))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if noScan.Case.Status != repo.StatusAccepted || noScan.Case.AdminApproval.ApprovedAt == nil {
		t.Errorf("without scan: %+v", noScan.Case.AdminApproval)
	}
	if got := f.notifier.types(); !slices.Equal(got, []string{"case_created", "case_created"}) {
		t.Errorf("notifications = %v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	dentist := f.addUser(constants.RoleDentist, nil)

	tests := []struct {
		name    string
		mut     func(r *CreateRequest)
		wantErr error
	}{
		{"gender", func(r *CreateRequest) { r.Gender = "x" }, ErrInvalidGender},
		{"age", func(r *CreateRequest) { r.Age = 0 }, ErrInvalidAge},
		{"remake needs case number", func(r *CreateRequest) { r.CaseType = repo.CaseTypeRemake }, ErrCaseNumberNeeded},
		{"tier", func(r *CreateRequest) { r.SelectedTier = "Gold" }, ErrInvalidTier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := basicCase("")
			tt.mut(&req)
			if _, err := f.svc.Create(context.Background(), dentist, req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	req := basicCase("")
	req.PatientID = "P-7"
	if _, err := f.svc.Create(context.Background(), dentist, req); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Create(context.Background(), dentist, req); !errors.Is(err, ErrPatientIDExists) {
		t.Errorf("duplicate patient id error = %v", err)
	}
}

func TestAssignBeforeApproval(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	dentist := f.addUser(constants.RoleDentist, nil)
	manager := f.addUser(constants.RoleLabManager, nil)
	tech := f.addUser(constants.RoleLabTechnician, nil)

	created, err := f.svc.Create(context.Background(), dentist, basicCase("SCN-2"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.AssignTechnician(context.Background(), manager, created.Case.ID, tech.ID)
	if !errors.Is(err, ErrNotApproved) || err.Error() != "Case must be accepted by admin first" {
		t.Fatalf("AssignTechnician() error = %v", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	ctx := context.Background()
	dentist := f.addUser(constants.RoleDentist, nil)
	manager := f.addUser(constants.RoleLabManager, nil)
	tech := f.addUser(constants.RoleLabTechnician, nil)
	otherTech := f.addUser(constants.RoleLabTechnician, nil)
	admin := &Actor{ID: uuid.New(), Kind: constants.KindAdmin, Role: constants.RoleAdmin}

	created, err := f.svc.Create(ctx, dentist, basicCase("SCN-3"))
	if err != nil {
		t.Fatal(err)
	}
	id := created.Case.ID

	if _, err := f.svc.Review(ctx, dentist, id, ReviewRequest{Action: ReviewAccept}); !errors.Is(err, ErrForbidden) {
		t.Errorf("dentist review error = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Review(ctx, admin, id, ReviewRequest{Action: "Accept"}); err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if _, err := f.svc.AssignTechnician(ctx, manager, id, dentist.ID); !errors.Is(err, ErrInvalidTechnician) {
		t.Errorf("assign to dentist error = %v", err)
	}
	out, err := f.svc.AssignTechnician(ctx, manager, id, tech.ID)
	if err != nil {
		t.Fatalf("AssignTechnician() error = %v", err)
	}
	if out.Case.Status != repo.StatusInProgress {
		t.Errorf("status after assign = %q", out.Case.Status)
	}
	if _, err := f.svc.Complete(ctx, otherTech, id); !errors.Is(err, ErrNotAssignee) {
		t.Errorf("Complete() by other tech error = %v", err)
	}
	out, err = f.svc.Complete(ctx, tech, id)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !out.Case.IsCompleted || out.Degraded() {
		t.Errorf("complete outcome = %+v", out)
	}

	want := []string{"case_created", "case_accepted", "case_assigned", "case_completed"}
	if got := f.notifier.types(); !slices.Equal(got, want) {
		t.Errorf("notifications = %v, want %v", got, want)
	}
}

func TestUpdateStatusRestrictedToAssignee(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	ctx := context.Background()
	dentist := f.addUser(constants.RoleDentist, nil)
	manager := f.addUser(constants.RoleLabManager, nil)
	tech := f.addUser(constants.RoleLabTechnician, nil)
	otherTech := f.addUser(constants.RoleLabTechnician, nil)

	created, err := f.svc.Create(ctx, dentist, basicCase(""))
	if err != nil {
		t.Fatal(err)
	}
	id := created.Case.ID
	if _, err := f.svc.AssignTechnician(ctx, manager, id, tech.ID); err != nil {
		t.Fatalf("AssignTechnician() error = %v", err)
	}

	for _, status := range []string{"Completed", "On Hold", "Cancelled"} {
		if _, err := f.svc.UpdateStatus(ctx, otherTech, id, status); !errors.Is(err, ErrNotAssignee) {
			t.Errorf("UpdateStatus(%q) by other tech error = %v, want ErrNotAssignee", status, err)
		}
	}
	got, err := f.svc.Get(ctx, manager, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != repo.StatusInProgress {
		t.Errorf("status changed to %q by a foreign technician", got.Status)
	}

	out, err := f.svc.UpdateStatus(ctx, tech, id, "Completed")
	if err != nil {
		t.Fatalf("UpdateStatus() by assignee error = %v", err)
	}
	if out.Case.Status != repo.StatusCompleted {
		t.Errorf("status = %q, want Completed", out.Case.Status)
	}
}

func TestRejectMailsCreator(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	dentist := f.addUser(constants.RoleDentist, nil)
	admin := &Actor{ID: uuid.New(), Role: constants.RoleSuperAdmin}

	created, err := f.svc.Create(context.Background(), dentist, basicCase("SCN-4"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.svc.Review(context.Background(), admin, created.Case.ID, ReviewRequest{Action: ReviewReject, RejectionReason: "margins unclear"})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if out.Case.Status != repo.StatusRejected {
		t.Errorf("status = %q", out.Case.Status)
	}
	if f.mailer.to != "dentist@lab.test" || f.mailer.reason != "margins unclear" {
		t.Errorf("mail = %+v", f.mailer)
	}
}

func TestSideEffectFailureDegrades(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	f.notifier.fail = true
	dentist := f.addUser(constants.RoleDentist, nil)

	out, err := f.svc.Create(context.Background(), dentist, basicCase(""))
	if err != nil {
		t.Fatalf("Create() error = %v, side effects must not fail the write", err)
	}
	if !out.Degraded() || !slices.Equal(out.FailedEffects(), []string{"notification"}) {
		t.Errorf("outcome = %+v, want degraded by notification", out)
	}
	if _, err := f.store.Get(context.Background(), out.Case.ID); err != nil {
		t.Errorf("case not persisted: %v", err)
	}
}

func TestListVisibility(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	ctx := context.Background()
	clinic := uuid.New()
	alice := f.addUser(constants.RoleDentist, &clinic)
	bob := f.addUser(constants.RoleDentist, &clinic)
	nurse := f.addUser(constants.RolePracticeNurse, &clinic)
	homeless := f.addUser(constants.RolePracticeManager, nil)

	for range 3 {
		if _, err := f.svc.Create(ctx, alice, basicCase("")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.Create(ctx, bob, basicCase("")); err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.List(ctx, alice, ListRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 {
		t.Errorf("alice total = %d, want 3", res.Total)
	}
	for _, c := range res.Data {
		if *c.CreatedBy != alice.ID {
			t.Errorf("alice received case created by %v", c.CreatedBy)
		}
	}

	res, err = f.svc.List(ctx, nurse, ListRequest{})
	if err != nil || res.Total != 4 {
		t.Errorf("nurse total = %v, %v; want 4", res, err)
	}

	res, err = f.svc.List(ctx, homeless, ListRequest{})
	if err != nil {
		t.Fatalf("List() without clinic error = %v", err)
	}
	if res.Total != 0 || len(res.Data) != 0 || res.Data == nil {
		t.Errorf("no-clinic result = %+v, want empty page", res)
	}

	stats, err := f.svc.Stats(ctx, homeless, Query{})
	if err != nil || stats.Total != 0 {
		t.Errorf("no-clinic stats = %+v, %v", stats, err)
	}

	if _, err := f.svc.List(ctx, nil, ListRequest{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("anonymous list error = %v, want ErrForbidden", err)
	}

	bobCase, err := f.svc.List(ctx, bob, ListRequest{})
	if err != nil || len(bobCase.Data) != 1 {
		t.Fatalf("bob list = %v, %v", bobCase, err)
	}
	if _, err := f.svc.Get(ctx, alice, bobCase.Data[0].ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Get() of colleague case error = %v, want ErrForbidden", err)
	}
}

func TestArchivedListSweepsFirst(t *testing.T) {
	f := newFixture(t, config.CasesConfig{CompletedArchiveDays: 10, ApprovedArchiveDays: 14, SweepOnArchiveRead: true})
	admin := &Actor{ID: uuid.New(), Role: constants.RoleAdmin}

	old := caseIn(repo.StatusCompleted, repo.ApprovalAccepted)
	done := time.Now().Add(-15 * 24 * time.Hour)
	old.CompletedAt = &done
	f.store.cases[old.ID] = old

	res, err := f.svc.ListArchived(context.Background(), admin, ListRequest{})
	if err != nil {
		t.Fatalf("ListArchived() error = %v", err)
	}
	if res.Total != 1 || res.Data[0].Status != repo.StatusArchived {
		t.Errorf("ListArchived() = %+v, want the swept case", res)
	}
}

func TestArchivedListNewestArchiveFirst(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	admin := &Actor{ID: uuid.New(), Role: constants.RoleAdmin}
	now := time.Now()

	early := caseIn(repo.StatusArchived, repo.ApprovalAccepted)
	early.IsArchived = true
	early.CreatedAt = now.Add(-48 * time.Hour)
	early.ArchiveDate = ptr(now)
	late := caseIn(repo.StatusArchived, repo.ApprovalAccepted)
	late.IsArchived = true
	late.CreatedAt = now.Add(-time.Hour)
	late.ArchiveDate = ptr(now.Add(-24 * time.Hour))
	f.store.cases[early.ID] = early
	f.store.cases[late.ID] = late

	res, err := f.svc.ListArchived(context.Background(), admin, ListRequest{})
	if err != nil {
		t.Fatalf("ListArchived() error = %v", err)
	}
	if len(res.Data) != 2 || res.Data[0].ID != early.ID {
		t.Errorf("ListArchived() first = %v, want the most recently archived case", res.Data)
	}

	res, err = f.svc.ListArchived(context.Background(), admin, ListRequest{Sort: repo.Sort{Field: "createdAt", Desc: true}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 2 || res.Data[0].ID != late.ID {
		t.Errorf("explicit sort ignored: first = %v", res.Data)
	}
}

func TestQueuePresets(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	ctx := context.Background()
	dentist := f.addUser(constants.RoleDentist, nil)
	manager := f.addUser(constants.RoleLabManager, nil)
	tech := f.addUser(constants.RoleLabTechnician, nil)

	pending, err := f.svc.Create(ctx, dentist, basicCase("SCN-1"))
	if err != nil {
		t.Fatal(err)
	}
	accepted, err := f.svc.Create(ctx, dentist, basicCase(""))
	if err != nil {
		t.Fatal(err)
	}
	started, err := f.svc.Create(ctx, dentist, basicCase(""))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AssignTechnician(ctx, manager, started.Case.ID, tech.ID); err != nil {
		t.Fatalf("AssignTechnician() error = %v", err)
	}

	tests := []struct {
		name   string
		actor  *Actor
		preset func(*Query)
		want   []uuid.UUID
	}{
		{"pending review", manager, PendingReview, []uuid.UUID{pending.Case.ID}},
		{"awaiting assignment skips started work", manager, AwaitingAssignment, []uuid.UUID{accepted.Case.ID}},
		{"assigned work for the technician", tech, AssignedWork, []uuid.UUID{started.Case.ID}},
		{"assigned work for a manager is their own", manager, AssignedWork, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Query
			tt.preset(&q)
			res, err := f.svc.List(ctx, tt.actor, ListRequest{Query: q})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != len(tt.want) {
				t.Fatalf("total = %d, want %d", res.Total, len(tt.want))
			}
			for i, id := range tt.want {
				if res.Data[i].ID != id {
					t.Errorf("Data[%d] = %v, want %v", i, res.Data[i].ID, id)
				}
			}
		})
	}
}

func TestListByExactPatient(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	ctx := context.Background()
	dentist := f.addUser(constants.RoleDentist, nil)
	admin := f.addUser(constants.RoleAdmin, nil)

	ids := map[string]uuid.UUID{}
	for _, patient := range []string{"P1", "P10", "XP1Y"} {
		req := basicCase("")
		req.PatientID = patient
		out, err := f.svc.Create(ctx, dentist, req)
		if err != nil {
			t.Fatal(err)
		}
		ids[patient] = out.Case.ID
	}

	res, err := f.svc.List(ctx, admin, ListRequest{Query: Query{PatientIDExact: "P1"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Data[0].ID != ids["P1"] {
		t.Errorf("exact patient P1 = %d cases, want only P1", res.Total)
	}

	res, err = f.svc.List(ctx, admin, ListRequest{Query: Query{PatientID: "P1"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 {
		t.Errorf("patient substring P1 total = %d, want 3", res.Total)
	}
}

func TestUpdateMergesTier(t *testing.T) {
	f := newFixture(t, config.CasesConfig{})
	dentist := f.addUser(constants.RoleDentist, nil)

	req := basicCase("")
	req.Standard = &repo.StandardTier{Dentures: &repo.Dentures{CategoryType: "Denture Other"}}
	created, err := f.svc.Create(context.Background(), dentist, req)
	if err != nil {
		t.Fatal(err)
	}

	desc := "upper arch only"
	updated, err := f.svc.Update(context.Background(), dentist, created.Case.ID, UpdateRequest{
		Description: &desc,
		Standard:    &repo.StandardTier{Misc: ptr(true)},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Description != desc || updated.Standard.Dentures.CategoryType != "Denture Other" || !*updated.Standard.Misc {
		t.Errorf("Update() = %+v", updated.Standard)
	}
	if updated.Status != created.Case.Status {
		t.Errorf("update changed lifecycle status")
	}
}
