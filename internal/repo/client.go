// Package repo is the Postgres storage layer. Queries are built with ent's
// SQL builder and run through a dialect.Driver.
package repo

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }

// Client groups the per-entity stores sharing one driver.
type Client struct {
	drv dialect.Driver

	Case         *CaseStore
	Clinic       *ClinicStore
	Lab          *LabStore
	Product      *ProductStore
	User         *UserStore
	Admin        *AdminStore
	Notification *NotificationStore
	Conversation *ConversationStore
	Setting      *SettingStore
}

func NewClient(drv dialect.Driver) *Client {
	c := &Client{drv: drv}
	c.Case = &CaseStore{drv: drv}
	c.Clinic = &ClinicStore{org: orgStore{drv: drv, table: clinicsTable}}
	c.Lab = &LabStore{org: orgStore{drv: drv, table: labsTable}}
	c.Product = &ProductStore{drv: drv}
	c.User = &UserStore{drv: drv}
	c.Admin = &AdminStore{drv: drv}
	c.Notification = &NotificationStore{drv: drv}
	c.Conversation = &ConversationStore{drv: drv}
	c.Setting = &SettingStore{drv: drv}
	return c
}

func (c *Client) Close() error { return c.drv.Close() }

// Ping runs a trivial query; used by readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return queryRows(ctx, c.drv, "SELECT 1", nil, func(rows *sql.Rows) error {
		var one int
		return rows.Scan(&one)
	})
}

func builder() *sql.DialectBuilder { return sql.Dialect(dialect.Postgres) }

// queryRows runs q and calls scan once per row.
func queryRows(ctx context.Context, drv dialect.Driver, q string, args []any, scan func(*sql.Rows) error) error {
	if args == nil {
		args = []any{}
	}
	rows := &sql.Rows{}
	if err := drv.Query(ctx, q, args, rows); err != nil {
		return translate(err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// queryOne is queryRows expecting exactly one row.
func queryOne(ctx context.Context, drv dialect.Driver, q string, args []any, scan func(*sql.Rows) error) error {
	found := false
	err := queryRows(ctx, drv, q, args, func(rows *sql.Rows) error {
		found = true
		return scan(rows)
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func exec(ctx context.Context, drv dialect.Driver, q string, args []any) (int64, error) {
	var res stdsql.Result
	if err := drv.Exec(ctx, q, args, &res); err != nil {
		return 0, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// execOne is exec expecting a single affected row.
func execOne(ctx context.Context, drv dialect.Driver, q string, args []any) error {
	n, err := exec(ctx, drv, q, args)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func count(ctx context.Context, drv dialect.Driver, table string, p *sql.Predicate) (int, error) {
	sel := builder().Select(sql.Count("*")).From(sql.Table(table))
	if p != nil {
		sel.Where(p)
	}
	q, args := sel.Query()
	var n int
	err := queryOne(ctx, drv, q, args, func(rows *sql.Rows) error { return rows.Scan(&n) })
	return n, err
}

const pqUniqueViolation = "23505"

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, stdsql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}
