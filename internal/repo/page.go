package repo

import (
	"strings"

	"entgo.io/ent/dialect/sql"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a 1-indexed page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// TotalPages rounds up; zero items is zero pages.
func (p Page) TotalPages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Sort is a column ordering. Unknown columns fall back to created_at.
type Sort struct {
	Field string
	Desc  bool
}

func (s Sort) apply(sel *sql.Selector, allowed map[string]string) {
	col, ok := allowed[s.Field]
	if !ok {
		col = "created_at"
	}
	if s.Desc {
		sel.OrderBy(sql.Desc(col), sql.Desc("id"))
	} else {
		sel.OrderBy(sql.Asc(col), sql.Asc("id"))
	}
}

// ParseSort reads sortBy/sortOrder query values; the default is newest first.
func ParseSort(field, order string) Sort {
	if field == "" {
		field = "createdAt"
	}
	return Sort{Field: field, Desc: !strings.EqualFold(order, "asc")}
}

// anyFold matches term case-insensitively against any of cols.
func anyFold(term string, cols ...string) *sql.Predicate {
	ps := make([]*sql.Predicate, 0, len(cols))
	for _, c := range cols {
		ps = append(ps, sql.ContainsFold(c, term))
	}
	return sql.Or(ps...)
}

func andAll(ps []*sql.Predicate) *sql.Predicate {
	switch len(ps) {
	case 0:
		return nil
	case 1:
		return ps[0]
	default:
		return sql.And(ps...)
	}
}
