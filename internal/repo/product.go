package repo

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Price       float64      `json:"price"`
	Description string       `json:"description,omitempty"`
	Stock       int          `json:"stock"`
	Category    string       `json:"category,omitempty"`
	ProductType string       `json:"productType,omitempty"`
	ProductTier Tier         `json:"productTier,omitempty"`
	Images      []Attachment `json:"images"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type ProductFilter struct {
	Type     string
	Tier     Tier
	Category string
	Search   string // name, type or tier
}

func (f ProductFilter) predicate() *sql.Predicate {
	var ps []*sql.Predicate
	if f.Type != "" {
		ps = append(ps, sql.EQ("product_type", f.Type))
	}
	if f.Tier != "" {
		ps = append(ps, sql.EQ("product_tier", string(f.Tier)))
	}
	if f.Category != "" {
		ps = append(ps, sql.EQ("category", f.Category))
	}
	if f.Search != "" {
		ps = append(ps, anyFold(f.Search, "name", "product_type", "product_tier"))
	}
	return andAll(ps)
}

const productsTable = "products"

var productColumns = []string{
	"id", "name", "price", "description", "stock", "category", "product_type", "product_tier", "images", "created_at", "updated_at",
}

type ProductStore struct {
	drv dialect.Driver
}

func scanProduct(rows *sql.Rows) (*Product, error) {
	var (
		p      Product
		tier   string
		images []byte
	)
	if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Stock, &p.Category, &p.ProductType, &tier, &images, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.ProductTier = Tier(tier)
	if err := fromJSONB(images, &p.Images); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProductStore) Create(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	if p.Images == nil {
		p.Images = []Attachment{}
	}
	q, args := builder().Insert(productsTable).Columns(productColumns...).Values(
		p.ID, p.Name, p.Price, p.Description, p.Stock, p.Category, p.ProductType, string(p.ProductTier),
		mustJSONB(p.Images), p.CreatedAt, p.UpdatedAt,
	).Query()
	if _, err := exec(ctx, s.drv, q, args); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *ProductStore) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	q, args := builder().Select(productColumns...).From(sql.Table(productsTable)).Where(sql.EQ("id", id)).Query()
	var out *Product
	err := queryOne(ctx, s.drv, q, args, func(rows *sql.Rows) (err error) {
		out, err = scanProduct(rows)
		return err
	})
	return out, err
}

func (s *ProductStore) Save(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()
	if p.Images == nil {
		p.Images = []Attachment{}
	}
	q, args := builder().Update(productsTable).
		Set("name", p.Name).
		Set("price", p.Price).
		Set("description", p.Description).
		Set("stock", p.Stock).
		Set("category", p.Category).
		Set("product_type", p.ProductType).
		Set("product_tier", string(p.ProductTier)).
		Set("images", mustJSONB(p.Images)).
		Set("updated_at", p.UpdatedAt).
		Where(sql.EQ("id", p.ID)).
		Query()
	return execOne(ctx, s.drv, q, args)
}

func (s *ProductStore) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := builder().Delete(productsTable).Where(sql.EQ("id", id)).Query()
	return execOne(ctx, s.drv, q, args)
}

func (s *ProductStore) List(ctx context.Context, f ProductFilter, page Page) ([]*Product, int, error) {
	page = page.Normalize()
	p := f.predicate()
	total, err := count(ctx, s.drv, productsTable, p)
	if err != nil {
		return nil, 0, err
	}
	sel := builder().Select(productColumns...).From(sql.Table(productsTable))
	if p != nil {
		sel.Where(p)
	}
	q, args := sel.OrderBy(sql.Desc("created_at")).Limit(page.Limit).Offset(page.Offset()).Query()
	out, err := s.collect(ctx, q, args)
	return out, total, err
}

func (s *ProductStore) Search(ctx context.Context, term string, limit int) ([]*Product, error) {
	q, args := builder().Select(productColumns...).From(sql.Table(productsTable)).
		Where(ProductFilter{Search: term}.predicate()).
		OrderBy(sql.Desc("created_at")).
		Limit(limit).
		Query()
	return s.collect(ctx, q, args)
}

func (s *ProductStore) collect(ctx context.Context, q string, args []any) ([]*Product, error) {
	var out []*Product
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		p, err := scanProduct(rows)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}
