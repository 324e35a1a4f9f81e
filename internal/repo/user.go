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

// Permissions are the per-account feature toggles of a staff user.
type Permissions struct {
	CaseListAccess         bool `json:"caseListAccess"`
	ArchivesAccess         bool `json:"archivesAccess"`
	SendMessagesToDoctors  bool `json:"sendMessagesToDoctors"`
	QualityCheckPermission bool `json:"qualityCheckPermission"`
}

// User is a staff account (dentist, lab and practice roles).
type User struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	PasswordHash string         `json:"-"`
	Role         constants.Role `json:"role"`
	Status       string         `json:"userStatus"`
	Images       []string       `json:"image"`
	ClinicID     *uuid.UUID     `json:"clinic,omitempty"`
	LabID        *uuid.UUID     `json:"lab,omitempty"`
	Country      string         `json:"country,omitempty"`
	DateOfBirth  *time.Time     `json:"dateOfBirth,omitempty"`
	Permissions
	CreatedBy *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type UserFilter struct {
	Role     constants.Role
	Status   string
	ClinicID *uuid.UUID
	LabID    *uuid.UUID
	Search   string // name, email, phone or role
}

func (f UserFilter) predicate() *sql.Predicate {
	var ps []*sql.Predicate
	if f.Role != "" {
		ps = append(ps, sql.EQ("role", string(f.Role)))
	}
	if f.Status != "" {
		ps = append(ps, sql.EQ("status", f.Status))
	}
	if f.ClinicID != nil {
		ps = append(ps, sql.EQ("clinic_id", *f.ClinicID))
	}
	if f.LabID != nil {
		ps = append(ps, sql.EQ("lab_id", *f.LabID))
	}
	if f.Search != "" {
		ps = append(ps, anyFold(f.Search, "name", "email", "phone", "role"))
	}
	return andAll(ps)
}

const usersTable = "users"

var userColumns = []string{
	"id", "name", "email", "phone", "password_hash", "role", "status", "images",
	"clinic_id", "lab_id", "country", "date_of_birth",
	"case_list_access", "archives_access", "send_messages_to_doctors", "quality_check_permission",
	"created_by", "created_at", "updated_at",
}

type UserStore struct {
	drv dialect.Driver
}

func scanUser(rows *sql.Rows) (*User, error) {
	var (
		u                        User
		role                     string
		images                   []byte
		clinicID, labID, creator uuid.NullUUID
		dob                      stdsql.NullTime
	)
	err := rows.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &role, &u.Status, &images,
		&clinicID, &labID, &u.Country, &dob,
		&u.CaseListAccess, &u.ArchivesAccess, &u.SendMessagesToDoctors, &u.QualityCheckPermission,
		&creator, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = constants.Role(role)
	u.ClinicID = uuidPtr(clinicID)
	u.LabID = uuidPtr(labID)
	u.CreatedBy = uuidPtr(creator)
	u.DateOfBirth = timePtr(dob)
	if err := fromJSONB(images, &u.Images); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	if u.Images == nil {
		u.Images = []string{}
	}
	q, args := builder().Insert(usersTable).Columns(userColumns...).Values(
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, string(u.Role), u.Status, mustJSONB(u.Images),
		nullUUID(u.ClinicID), nullUUID(u.LabID), u.Country, nullTime(u.DateOfBirth),
		u.CaseListAccess, u.ArchivesAccess, u.SendMessagesToDoctors, u.QualityCheckPermission,
		nullUUID(u.CreatedBy), u.CreatedAt, u.UpdatedAt,
	).Query()
	if _, err := exec(ctx, s.drv, q, args); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) getBy(ctx context.Context, p *sql.Predicate) (*User, error) {
	q, args := builder().Select(userColumns...).From(sql.Table(usersTable)).Where(p).Query()
	var out *User
	err := queryOne(ctx, s.drv, q, args, func(rows *sql.Rows) (err error) {
		out, err = scanUser(rows)
		return err
	})
	return out, err
}

func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.getBy(ctx, sql.EQ("id", id))
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getBy(ctx, sql.EQ("email", email))
}

// Save writes profile fields; the password hash has its own setter.
func (s *UserStore) Save(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	if u.Images == nil {
		u.Images = []string{}
	}
	q, args := builder().Update(usersTable).
		Set("name", u.Name).
		Set("email", u.Email).
		Set("phone", u.Phone).
		Set("role", string(u.Role)).
		Set("status", u.Status).
		Set("images", mustJSONB(u.Images)).
		Set("clinic_id", nullUUID(u.ClinicID)).
		Set("lab_id", nullUUID(u.LabID)).
		Set("country", u.Country).
		Set("date_of_birth", nullTime(u.DateOfBirth)).
		Set("case_list_access", u.CaseListAccess).
		Set("archives_access", u.ArchivesAccess).
		Set("send_messages_to_doctors", u.SendMessagesToDoctors).
		Set("quality_check_permission", u.QualityCheckPermission).
		Set("updated_at", u.UpdatedAt).
		Where(sql.EQ("id", u.ID)).
		Query()
	if err := execOne(ctx, s.drv, q, args); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *UserStore) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	q, args := builder().Update(usersTable).
		Set("password_hash", hash).
		Set("updated_at", time.Now().UTC()).
		Where(sql.EQ("id", id)).
		Query()
	return execOne(ctx, s.drv, q, args)
}

func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := builder().Delete(usersTable).Where(sql.EQ("id", id)).Query()
	return execOne(ctx, s.drv, q, args)
}

func (s *UserStore) List(ctx context.Context, f UserFilter, sort Sort, page Page) ([]*User, int, error) {
	page = page.Normalize()
	p := f.predicate()
	total, err := count(ctx, s.drv, usersTable, p)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	sel := builder().Select(userColumns...).From(sql.Table(usersTable))
	if p != nil {
		sel.Where(p)
	}
	sort.apply(sel, map[string]string{"createdAt": "created_at", "name": "name", "email": "email", "role": "role"})
	q, args := sel.Limit(page.Limit).Offset(page.Offset()).Query()
	out, err := s.collect(ctx, q, args)
	return out, total, err
}

func (s *UserStore) Search(ctx context.Context, term string, limit int) ([]*User, error) {
	q, args := builder().Select(userColumns...).From(sql.Table(usersTable)).
		Where(UserFilter{Search: term}.predicate()).
		OrderBy(sql.Desc("created_at")).
		Limit(limit).
		Query()
	return s.collect(ctx, q, args)
}

// GetMany loads the users with the given ids; missing ids are skipped.
func (s *UserStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	vs := make([]any, len(ids))
	for i, id := range ids {
		vs[i] = id
	}
	q, args := builder().Select(userColumns...).From(sql.Table(usersTable)).Where(sql.In("id", vs...)).Query()
	return s.collect(ctx, q, args)
}

func (s *UserStore) collect(ctx context.Context, q string, args []any) ([]*User, error) {
	var out []*User
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	return out, err
}

func (s *UserStore) CountByRole(ctx context.Context) (map[constants.Role]int, error) {
	q, args := builder().Select("role", sql.Count("*")).From(sql.Table(usersTable)).GroupBy("role").Query()
	out := make(map[constants.Role]int)
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		var (
			role string
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return err
		}
		out[constants.Role(role)] = n
		return nil
	})
	return out, err
}

// CreatedPerMonth counts users created in each month of year (index 0 is January).
func (s *UserStore) CreatedPerMonth(ctx context.Context, year int, loc *time.Location) ([12]int, error) {
	var out [12]int
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(1, 0, 0)
	q, args := builder().Select("created_at").From(sql.Table(usersTable)).
		Where(sql.And(sql.GTE("created_at", start), sql.LT("created_at", end))).
		Query()
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return err
		}
		out[t.In(loc).Month()-1]++
		return nil
	})
	return out, err
}
