// Package repomanager opens the configured storage backend, applies its
// schema and hands out the repositories built on top of it.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/quota"
	"github.com/pressly/goose/v3"
)

// Supported values for the database driver setting.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Quota() quota.Repository
	Credentials() credentials.Repository
	Close() error
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Open connects to the backend named by driver.
func Open(ctx context.Context, driver, dsn string) (RepositoryManager, error) {
	var (
		m   RepositoryManager
		err error
	)

	switch driver {
	case DriverPostgres:
		m, err = NewPostgresRepositoryManager(ctx, dsn)
	case DriverSQLite:
		m, err = NewSQLiteRepositoryManager(ctx, dsn)
	case DriverMemory:
		m = NewInMemoryRepositoryManager()
	default:
		err = fmt.Errorf("unknown database driver %q", driver)
	}

	if err != nil {
		return nil, err
	}
	return m, nil
}
