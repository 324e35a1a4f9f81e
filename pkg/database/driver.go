package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/Alijeyrad/dentlab_backend/config"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

// NewRepoClient opens Postgres and returns the store client on top of it.
func NewRepoClient(cfg config.DatabaseConfig) (*repo.Client, error) {
	o := optionsFrom(cfg)
	db, err := open(context.Background(), o)
	if err != nil {
		return nil, err
	}

	var drv dialect.Driver = entsql.OpenDB(dialect.Postgres, db)
	if o.SlowQuery > 0 {
		drv = &slowQueryDriver{Driver: drv, threshold: o.SlowQuery}
	}
	return repo.NewClient(drv), nil
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, client *repo.Client) error {
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// slowQueryDriver logs statements slower than threshold.
type slowQueryDriver struct {
	dialect.Driver
	threshold time.Duration
}

func (d *slowQueryDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.observe(ctx, query, start, err)
	return err
}

func (d *slowQueryDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.observe(ctx, query, start, err)
	return err
}

func (d *slowQueryDriver) observe(ctx context.Context, query string, start time.Time, err error) {
	elapsed := time.Since(start)
	if elapsed < d.threshold && err == nil {
		return
	}
	slog.WarnContext(ctx, "database: slow or failed query",
		"query", query,
		"duration_ms", elapsed.Milliseconds(),
		"error", err,
	)
}
