package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Alijeyrad/dentlab_backend/config"
)

// InitializeDatabases creates every name in server.databases that does not
// exist yet, connecting through the maintenance database.
func InitializeDatabases(cfg *config.Config) error {
	if len(cfg.Server.Databases) == 0 {
		return errors.New("server.databases is empty")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	o := optionsFrom(cfg.Database)
	o.Name = "postgres"
	db, err := open(ctx, o)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, name := range cfg.Server.Databases {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("look up database %q: %w", name, err)
		}
		if exists {
			slog.Debug("database exists", "name", name)
			continue
		}
		if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
			return fmt.Errorf("create database %q: %w", name, err)
		}
		slog.Info("database created", "name", name)
	}
	return nil
}
