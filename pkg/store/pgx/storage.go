// Package pgx implements the relationship store on PostgreSQL. The
// create-if-not-exists guarantee for edges is enforced by a partial
// unique index over non-rejected rows, so concurrent linkers cannot
// duplicate a triple even across processes.
package pgx

import (
	"context"
	"embed"
	"errors"
	"sync"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStore implements store.Store against PostgreSQL. Organization
// merging reads before writing, so it is serialized with a mutex; edge
// writes rely on the database's own uniqueness guarantees instead.
type GraphDBStore struct {
	conn   pgxIConn
	orgsMu sync.Mutex
}

// NewGraphDBStoreWithConnection creates a store over an existing
// connection or pool.
func NewGraphDBStoreWithConnection(conn pgxIConn) *GraphDBStore {
	return &GraphDBStore{conn: conn}
}

// RunMigrations brings the schema up to date using the embedded
// migration files.
func RunMigrations(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
