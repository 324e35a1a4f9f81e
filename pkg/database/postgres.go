package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Alijeyrad/dentlab_backend/config"
)

// Options is the resolved connection setup for one Postgres database.
type Options struct {
	Host, User, Password, Name, SSLMode string
	Port                                int

	MaxOpen, MaxIdle int
	MaxLifetime      time.Duration

	// SlowQuery > 0 wraps the driver to log statements at or above it.
	SlowQuery time.Duration
}

func optionsFrom(c config.DatabaseConfig) Options {
	o := Options{
		Host:        c.Host,
		Port:        c.Port,
		User:        c.User,
		Password:    c.Password,
		Name:        c.DBName,
		SSLMode:     c.SSLMode,
		MaxOpen:     c.Pool.MaxOpenConns,
		MaxIdle:     c.Pool.MaxIdleConns,
		MaxLifetime: time.Duration(c.Pool.ConnMaxLifetimeMin) * time.Minute,
	}
	if o.Port == 0 {
		o.Port = 5432
	}
	if o.SSLMode == "" {
		o.SSLMode = "disable"
	}
	if o.MaxLifetime <= 0 {
		o.MaxLifetime = 5 * time.Minute
	}
	if c.Logging.Enabled {
		o.SlowQuery = time.Duration(c.Logging.SlowQueryThresholdMs) * time.Millisecond
		if o.SlowQuery <= 0 {
			o.SlowQuery = 200 * time.Millisecond
		}
	}
	return o
}

// DSN renders a libpq keyword/value string. Values are single-quoted so
// passwords with spaces survive.
func (o Options) DSN() string {
	quote := func(v string) string {
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quote(o.Host), o.Port, quote(o.User), quote(o.Password), quote(o.Name), quote(o.SSLMode))
}

// NewDSN is the DSN for a configured database, used by the casbin adapter
// and watcher which open their own connections.
func NewDSN(c config.DatabaseConfig) string {
	return optionsFrom(c).DSN()
}

func open(ctx context.Context, o Options) (*sql.DB, error) {
	connector, err := pq.NewConnector(o.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres %s: %w", o.Name, err)
	}
	db := sql.OpenDB(connector)
	if o.MaxOpen > 0 {
		db.SetMaxOpenConns(o.MaxOpen)
	}
	if o.MaxIdle > 0 {
		db.SetMaxIdleConns(o.MaxIdle)
	}
	db.SetConnMaxLifetime(o.MaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres %s: ping: %w", o.Name, err)
	}
	return db, nil
}
