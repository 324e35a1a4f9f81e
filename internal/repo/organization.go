package repo

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// Organization is the shape shared by clinics and labs.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Details   string    `json:"details"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type (
	Clinic = Organization
	Lab    = Organization
)

type OrgFilter struct {
	Status string
	Search string // name or email
}

func (f OrgFilter) predicate() *sql.Predicate {
	var ps []*sql.Predicate
	if f.Status != "" {
		ps = append(ps, sql.EQ("status", f.Status))
	}
	if f.Search != "" {
		ps = append(ps, anyFold(f.Search, "name", "email"))
	}
	return andAll(ps)
}

const (
	clinicsTable = "clinics"
	labsTable    = "labs"
)

var orgColumns = []string{"id", "name", "email", "phone", "address", "details", "status", "created_at", "updated_at"}

type orgStore struct {
	drv   dialect.Driver
	table string
}

func scanOrg(rows *sql.Rows) (*Organization, error) {
	var o Organization
	if err := rows.Scan(&o.ID, &o.Name, &o.Email, &o.Phone, &o.Address, &o.Details, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	return &o, nil
}

func (s orgStore) create(ctx context.Context, o *Organization) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	q, args := builder().Insert(s.table).Columns(orgColumns...).
		Values(o.ID, o.Name, o.Email, o.Phone, o.Address, o.Details, o.Status, o.CreatedAt, o.UpdatedAt).
		Query()
	_, err := exec(ctx, s.drv, q, args)
	return err
}

func (s orgStore) get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	q, args := builder().Select(orgColumns...).From(sql.Table(s.table)).Where(sql.EQ("id", id)).Query()
	var out *Organization
	err := queryOne(ctx, s.drv, q, args, func(rows *sql.Rows) (err error) {
		out, err = scanOrg(rows)
		return err
	})
	return out, err
}

func (s orgStore) save(ctx context.Context, o *Organization) error {
	o.UpdatedAt = time.Now().UTC()
	q, args := builder().Update(s.table).
		Set("name", o.Name).
		Set("email", o.Email).
		Set("phone", o.Phone).
		Set("address", o.Address).
		Set("details", o.Details).
		Set("status", o.Status).
		Set("updated_at", o.UpdatedAt).
		Where(sql.EQ("id", o.ID)).
		Query()
	return execOne(ctx, s.drv, q, args)
}

func (s orgStore) delete(ctx context.Context, id uuid.UUID) error {
	q, args := builder().Delete(s.table).Where(sql.EQ("id", id)).Query()
	return execOne(ctx, s.drv, q, args)
}

func (s orgStore) list(ctx context.Context, f OrgFilter, page Page) ([]*Organization, int, error) {
	page = page.Normalize()
	p := f.predicate()
	total, err := count(ctx, s.drv, s.table, p)
	if err != nil {
		return nil, 0, err
	}
	sel := builder().Select(orgColumns...).From(sql.Table(s.table))
	if p != nil {
		sel.Where(p)
	}
	q, args := sel.OrderBy(sql.Desc("created_at")).Limit(page.Limit).Offset(page.Offset()).Query()
	out, err := s.collect(ctx, q, args)
	return out, total, err
}

func (s orgStore) collect(ctx context.Context, q string, args []any) ([]*Organization, error) {
	var out []*Organization
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		o, err := scanOrg(rows)
		if err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	return out, err
}

func (s orgStore) search(ctx context.Context, term string, limit int) ([]*Organization, error) {
	q, args := builder().Select(orgColumns...).From(sql.Table(s.table)).
		Where(OrgFilter{Search: term}.predicate()).
		OrderBy(sql.Desc("created_at")).
		Limit(limit).
		Query()
	return s.collect(ctx, q, args)
}

type ClinicStore struct{ org orgStore }

func (s *ClinicStore) Create(ctx context.Context, c *Clinic) error {
	if err := s.org.create(ctx, c); err != nil {
		return fmt.Errorf("insert clinic: %w", err)
	}
	return nil
}
func (s *ClinicStore) Get(ctx context.Context, id uuid.UUID) (*Clinic, error) { return s.org.get(ctx, id) }
func (s *ClinicStore) Save(ctx context.Context, c *Clinic) error              { return s.org.save(ctx, c) }
func (s *ClinicStore) Delete(ctx context.Context, id uuid.UUID) error         { return s.org.delete(ctx, id) }
func (s *ClinicStore) List(ctx context.Context, f OrgFilter, p Page) ([]*Clinic, int, error) {
	return s.org.list(ctx, f, p)
}
func (s *ClinicStore) Search(ctx context.Context, term string, limit int) ([]*Clinic, error) {
	return s.org.search(ctx, term, limit)
}

type LabStore struct{ org orgStore }

func (s *LabStore) Create(ctx context.Context, l *Lab) error {
	if err := s.org.create(ctx, l); err != nil {
		return fmt.Errorf("insert lab: %w", err)
	}
	return nil
}
func (s *LabStore) Get(ctx context.Context, id uuid.UUID) (*Lab, error) { return s.org.get(ctx, id) }
func (s *LabStore) Save(ctx context.Context, l *Lab) error              { return s.org.save(ctx, l) }
func (s *LabStore) Delete(ctx context.Context, id uuid.UUID) error      { return s.org.delete(ctx, id) }
func (s *LabStore) List(ctx context.Context, f OrgFilter, p Page) ([]*Lab, int, error) {
	return s.org.list(ctx, f, p)
}
func (s *LabStore) Search(ctx context.Context, term string, limit int) ([]*Lab, error) {
	return s.org.search(ctx, term, limit)
}
