package repo

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type Admin struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	PasswordHash string         `json:"-"`
	Role         constants.Role `json:"role"`
	Images       []string       `json:"image"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

const adminsTable = "admins"

var adminColumns = []string{"id", "name", "email", "phone", "password_hash", "role", "images", "created_at", "updated_at"}

type AdminStore struct {
	drv dialect.Driver
}

func scanAdmin(rows *sql.Rows) (*Admin, error) {
	var (
		a      Admin
		role   string
		images []byte
	)
	if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.PasswordHash, &role, &images, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan admin: %w", err)
	}
	a.Role = constants.Role(role)
	if err := fromJSONB(images, &a.Images); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AdminStore) Create(ctx context.Context, a *Admin) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	if a.Images == nil {
		a.Images = []string{}
	}
	q, args := builder().Insert(adminsTable).Columns(adminColumns...).
		Values(a.ID, a.Name, a.Email, a.Phone, a.PasswordHash, string(a.Role), mustJSONB(a.Images), a.CreatedAt, a.UpdatedAt).
		Query()
	if _, err := exec(ctx, s.drv, q, args); err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (s *AdminStore) getBy(ctx context.Context, p *sql.Predicate) (*Admin, error) {
	q, args := builder().Select(adminColumns...).From(sql.Table(adminsTable)).Where(p).Query()
	var out *Admin
	err := queryOne(ctx, s.drv, q, args, func(rows *sql.Rows) (err error) {
		out, err = scanAdmin(rows)
		return err
	})
	return out, err
}

func (s *AdminStore) Get(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return s.getBy(ctx, sql.EQ("id", id))
}

func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	return s.getBy(ctx, sql.EQ("email", email))
}

func (s *AdminStore) Save(ctx context.Context, a *Admin) error {
	a.UpdatedAt = time.Now().UTC()
	if a.Images == nil {
		a.Images = []string{}
	}
	q, args := builder().Update(adminsTable).
		Set("name", a.Name).
		Set("email", a.Email).
		Set("phone", a.Phone).
		Set("role", string(a.Role)).
		Set("images", mustJSONB(a.Images)).
		Set("updated_at", a.UpdatedAt).
		Where(sql.EQ("id", a.ID)).
		Query()
	return execOne(ctx, s.drv, q, args)
}

func (s *AdminStore) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	q, args := builder().Update(adminsTable).
		Set("password_hash", hash).
		Set("updated_at", time.Now().UTC()).
		Where(sql.EQ("id", id)).
		Query()
	return execOne(ctx, s.drv, q, args)
}

func (s *AdminStore) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := builder().Delete(adminsTable).Where(sql.EQ("id", id)).Query()
	return execOne(ctx, s.drv, q, args)
}

func (s *AdminStore) List(ctx context.Context, search string, page Page) ([]*Admin, int, error) {
	page = page.Normalize()
	var p *sql.Predicate
	if search != "" {
		p = anyFold(search, "name", "email")
	}
	total, err := count(ctx, s.drv, adminsTable, p)
	if err != nil {
		return nil, 0, err
	}
	sel := builder().Select(adminColumns...).From(sql.Table(adminsTable))
	if p != nil {
		sel.Where(p)
	}
	q, args := sel.OrderBy(sql.Desc("created_at")).Limit(page.Limit).Offset(page.Offset()).Query()
	var out []*Admin
	err = queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		a, err := scanAdmin(rows)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, total, err
}

// GetMany loads admins by id; missing ids are skipped.
func (s *AdminStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]*Admin, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	vs := make([]any, len(ids))
	for i, id := range ids {
		vs[i] = id
	}
	q, args := builder().Select(adminColumns...).From(sql.Table(adminsTable)).Where(sql.In("id", vs...)).Query()
	var out []*Admin
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		a, err := scanAdmin(rows)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}
