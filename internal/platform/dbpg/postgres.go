// Package dbpg wraps a primary-only Postgres connection plus golang-migrate
// bootstrap, adapted from the teacher's common/mpostgres/postgres.go (which
// additionally load-balances across a replica; this service has no read/
// write split requirement, so only WithPrimaryDBs is wired).
package dbpg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// Connection is a hub for the Postgres primary pool.
type Connection struct {
	DSN            string
	DatabaseName   string
	MigrationsPath string
	Logger         ctxlog.Logger

	db        *dbresolver.DB
	Connected bool
}

// Connect opens the pool and pings it. It does not run migrations; call
// Migrate explicitly (cmd/barazoctl migrate does; serve does not) so that running the service and running migrations are
// independently controllable operations.
func (c *Connection) Connect(ctx context.Context) error {
	c.logger().Info("connecting to postgres...")

	primary, err := sql.Open("pgx", c.DSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}

	resolved := dbresolver.New(dbresolver.WithPrimaryDBs(primary), dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB))

	if err := resolved.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	c.db = &resolved
	c.Connected = true

	c.logger().Info("connected to postgres")

	return nil
}

// Migrate applies every pending migration under MigrationsPath.
func (c *Connection) Migrate() error {
	primary, err := sql.Open("pgx", c.DSN)
	if err != nil {
		return fmt.Errorf("open postgres for migration: %w", err)
	}
	defer primary.Close()

	driver, err := postgres.WithInstance(primary, &postgres.Config{
		MultiStatementEnabled: true,
		DatabaseName:          c.DatabaseName,
		SchemaName:            "public",
	})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+c.MigrationsPath, c.DatabaseName, driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// DB returns the resolved connection, connecting lazily if necessary.
func (c *Connection) DB(ctx context.Context) (dbresolver.DB, error) {
	if c.db == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return *c.db, nil
}

func (c *Connection) logger() ctxlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return ctxlog.NoneLogger{}
}
