package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	pasetotoken "github.com/Alijeyrad/dentlab_backend/pkg/paseto"
	"github.com/Alijeyrad/dentlab_backend/pkg/util/password"
)

type memStore struct {
	byID map[uuid.UUID]*repo.User
}

func (m *memStore) Create(_ context.Context, u *repo.User) error {
	for _, x := range m.byID {
		if x.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*repo.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) Save(_ context.Context, u *repo.User) error {
	if _, ok := m.byID[u.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memStore) List(_ context.Context, f repo.UserFilter, _ repo.Sort, _ repo.Page) ([]*repo.User, int, error) {
	var out []*repo.User
	for _, u := range m.byID {
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memStore) CountByRole(context.Context) (map[constants.Role]int, error) {
	out := map[constants.Role]int{}
	for _, u := range m.byID {
		out[u.Role]++
	}
	return out, nil
}

func (m *memStore) CreatedPerMonth(_ context.Context, year int, loc *time.Location) ([12]int, error) {
	var out [12]int
	for _, u := range m.byID {
		if t := u.CreatedAt.In(loc); t.Year() == year {
			out[t.Month()-1]++
		}
	}
	return out, nil
}

type memOrgs map[uuid.UUID]bool

func (m memOrgs) Get(_ context.Context, id uuid.UUID) (*repo.Organization, error) {
	if !m[id] {
		return nil, repo.ErrNotFound
	}
	return &repo.Organization{ID: id}, nil
}

type memMailer struct {
	to, password string
	err          error
}

func (m *memMailer) SendCredentials(_ context.Context, to, _, pw string) error {
	m.to, m.password = to, pw
	return m.err
}

type fixture struct {
	svc    *UserService
	store  *memStore
	mailer *memMailer
	hasher *password.Hasher
	clinic uuid.UUID
	lab    uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store:  &memStore{byID: map[uuid.UUID]*repo.User{}},
		mailer: &memMailer{},
		hasher: password.NewHasher(password.Config{MemoryKiB: 1024, Iterations: 1, Parallelism: 1}),
		clinic: uuid.New(),
		lab:    uuid.New(),
	}
	f.svc = New(f.store, memOrgs{f.clinic: true}, memOrgs{f.lab: true}, f.mailer, f.hasher, nil, Options{PhoneRegion: "US"})
	return f
}

var superAdmin = &cases.Actor{ID: uuid.New(), Kind: constants.KindAdmin, Role: constants.RoleSuperAdmin}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	missing := uuid.New()

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"missing phone", CreateRequest{Name: "Dr A", Email: "a@clinic.test"}, ErrFieldsRequired},
		{"bad email", CreateRequest{Name: "Dr A", Email: "nope", Phone: "+1 650-253-0000"}, ErrInvalidEmail},
		{"bad role", CreateRequest{Name: "Dr A", Email: "a@clinic.test", Phone: "+1 650-253-0000", Role: constants.RoleAdmin}, ErrInvalidRole},
		{"bad phone", CreateRequest{Name: "Dr A", Email: "a@clinic.test", Phone: "12", ClinicID: &f.clinic}, ErrInvalidPhone},
		{"clinic required", CreateRequest{Name: "Dr A", Email: "a@clinic.test", Phone: "+1 650-253-0000"}, ErrClinicRequired},
		{"unknown clinic", CreateRequest{Name: "Dr A", Email: "a@clinic.test", Phone: "+1 650-253-0000", ClinicID: &missing}, ErrClinicNotFound},
		{"lab required", CreateRequest{Name: "Tech", Email: "t@lab.test", Phone: "+1 650-253-0000", Role: constants.RoleLabTechnician}, ErrLabRequired},
		{"ok", CreateRequest{Name: "Dr A", Email: "A@clinic.test", Phone: "+1 650-253-0000", ClinicID: &f.clinic}, nil},
		{"duplicate", CreateRequest{Name: "Dr B", Email: "a@clinic.test", Phone: "+1 650-253-0000", ClinicID: &f.clinic}, ErrEmailAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Create(ctx, superAdmin, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if err != nil {
				return
			}
			u := got.User
			if u.Role != constants.RoleDentist || u.Status != constants.StatusActive {
				t.Errorf("defaults = %q/%q", u.Role, u.Status)
			}
			if u.Phone != "+16502530000" {
				t.Errorf("phone = %q, want E.164", u.Phone)
			}
			if u.CreatedBy == nil || *u.CreatedBy != superAdmin.ID {
				t.Errorf("createdBy = %v", u.CreatedBy)
			}
			if f.mailer.to != "a@clinic.test" || f.mailer.password == "" {
				t.Fatalf("credentials mail = %+v", f.mailer)
			}
			if err := f.hasher.Verify(u.PasswordHash, f.mailer.password); err != nil {
				t.Errorf("mailed password does not match hash: %v", err)
			}
		})
	}
}

func TestCreateMailFailureIsReported(t *testing.T) {
	f := newFixture()
	f.mailer.err = errors.New("smtp down")
	got, err := f.svc.Create(context.Background(), superAdmin, CreateRequest{
		Name: "Dr A", Email: "a@clinic.test", Phone: "+1 650-253-0000", ClinicID: &f.clinic,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !got.MailFailed {
		t.Error("MailFailed not set")
	}
	if _, ok := f.store.byID[got.User.ID]; !ok {
		t.Error("user not stored")
	}
}

func TestCreateTechnicianForcesRoleAndLab(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	manager := &cases.Actor{ID: uuid.New(), Kind: constants.KindUser, Role: constants.RoleLabManager, LabID: &f.lab}

	got, err := f.svc.CreateTechnician(ctx, manager, CreateRequest{
		Name: "Tech", Email: "tech@lab.test", Phone: "+1 650-253-0000", Password: "secret1",
		Role: constants.RoleDentist, ClinicID: &f.clinic,
	})
	if err != nil {
		t.Fatalf("CreateTechnician: %v", err)
	}
	u := got.User
	if u.Role != constants.RoleLabTechnician || u.LabID == nil || *u.LabID != f.lab || u.ClinicID != nil {
		t.Errorf("user = role %q lab %v clinic %v", u.Role, u.LabID, u.ClinicID)
	}
	if f.mailer.to != "" {
		t.Error("supplied password should not be mailed")
	}

	nurse := &cases.Actor{ID: uuid.New(), Role: constants.RolePracticeNurse}
	if _, err := f.svc.CreateTechnician(ctx, nurse, CreateRequest{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("nurse err = %v", err)
	}
}

func TestManagePermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	otherLab := uuid.New()

	tech, err := f.svc.Create(ctx, superAdmin, CreateRequest{Name: "Tech", Email: "t@lab.test", Phone: "+1 650-253-0000", Password: "secret1", Role: constants.RoleLabTechnician, LabID: &f.lab})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := tech.User.ID

	tests := []struct {
		name string
		by   *cases.Actor
		want error
	}{
		{"own lab manager", &cases.Actor{ID: uuid.New(), Role: constants.RoleLabManager, LabID: &f.lab}, nil},
		{"other lab manager", &cases.Actor{ID: uuid.New(), Role: constants.RoleLabManager, LabID: &otherLab}, ErrForbidden},
		{"dentist", &cases.Actor{ID: uuid.New(), Role: constants.RoleDentist, ClinicID: &f.clinic}, ErrForbidden},
		{"admin", &cases.Actor{ID: uuid.New(), Kind: constants.KindAdmin, Role: constants.RoleAdmin}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ChangeStatus(ctx, tt.by, id, "Inactive")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := f.svc.ChangeStatus(ctx, superAdmin, id, "blocked"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("bad status err = %v", err)
	}
	self := &cases.Actor{ID: id, Role: constants.RoleLabTechnician, LabID: &f.lab}
	if _, err := f.svc.ChangeStatus(ctx, self, id, "active"); !errors.Is(err, ErrForbidden) {
		t.Errorf("self status change err = %v", err)
	}
	role := constants.RoleLabManager
	if _, err := f.svc.Update(ctx, self, id, UpdateRequest{Role: &role}); !errors.Is(err, ErrForbidden) {
		t.Errorf("self promotion err = %v", err)
	}

	blocked, err := f.svc.List(ctx, ListRequest{Filter: repo.UserFilter{Status: constants.StatusInactive}})
	if err != nil || blocked.Total != 1 {
		t.Errorf("blocked list = %+v, %v", blocked, err)
	}
}

func TestActor(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c, err := f.svc.Create(ctx, superAdmin, CreateRequest{Name: "Dr", Email: "d@clinic.test", Phone: "+1 650-253-0000", Password: "secret1", ClinicID: &f.clinic})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	a, err := f.svc.Actor(ctx, pasetotoken.Subject{UserID: c.User.ID, Kind: constants.KindUser, Role: constants.RoleLabManager})
	if err != nil {
		t.Fatalf("Actor: %v", err)
	}
	if a.Role != constants.RoleDentist || a.ClinicID == nil || *a.ClinicID != f.clinic {
		t.Errorf("actor = %+v, want stored role and clinic", a)
	}

	if _, err := f.svc.ChangeStatus(ctx, superAdmin, c.User.ID, constants.StatusInactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := f.svc.Actor(ctx, pasetotoken.Subject{UserID: c.User.ID, Kind: constants.KindUser}); !errors.Is(err, ErrAccountInactive) {
		t.Errorf("inactive actor err = %v", err)
	}

	admin, err := f.svc.Actor(ctx, pasetotoken.Subject{UserID: uuid.New(), Kind: constants.KindAdmin, Role: constants.RoleAdmin})
	if err != nil || admin.Role != constants.RoleAdmin {
		t.Errorf("admin actor = %+v, %v", admin, err)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	for i, role := range []constants.Role{constants.RoleDentist, constants.RoleDentist, constants.RoleLabManager} {
		u := &repo.User{Email: string(rune('a'+i)) + "@x.test", Role: role}
		_ = f.store.Create(ctx, u)
		f.store.byID[u.ID].CreatedAt = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	}

	counts, err := f.svc.CountByRole(ctx)
	if err != nil {
		t.Fatalf("CountByRole: %v", err)
	}
	if counts[constants.RoleDentist] != 2 || counts[constants.RoleLabManager] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := counts[constants.RolePracticeNurse]; !ok {
		t.Error("empty roles must be reported as zero")
	}

	months, err := f.svc.RatioByMonth(ctx, 2025)
	if err != nil {
		t.Fatalf("RatioByMonth: %v", err)
	}
	if len(months) != 12 || months[2].Month != "Mar" || months[2].Count != 3 {
		t.Errorf("months[2] = %+v", months[2])
	}
	if _, err := f.svc.RatioByMonth(ctx, 12); !errors.Is(err, ErrInvalidYear) {
		t.Errorf("bad year err = %v", err)
	}
}
