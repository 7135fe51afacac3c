package masters

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite3"
)

// InMemoryDSN is a shared in-memory SQLite database.
const InMemoryDSN = "file::memory:?cache=shared"

// driverFor picks the sql driver for dsn and returns the data source to
// hand to it. PostgreSQL URLs go to lib/pq, everything file-like to SQLite.
func driverFor(dsn string) (driver string, source string, err error) {
	dsn = strings.TrimSpace(dsn)

	switch {
	case dsn == "":
		return "", "", errors.New("masters: empty dsn")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return driverPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return driverSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:",
		strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return driverSQLite, dsn, nil
	default:
		return "", "", errors.Errorf("masters: unsupported dsn %q", dsn)
	}
}

func dialectFor(driver string) schema.Dialect {
	if driver == driverPostgres {
		return pgdialect.New()
	}
	return sqlitedialect.New()
}

// OpenDB opens a bun database for dsn and checks the connection.
func OpenDB(ctx context.Context, dsn string) (*bun.DB, error) {
	driver, source, err := driverFor(dsn)
	if err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(driver, source)
	if err != nil {
		return nil, errors.Wrapf(err, "masters: open %s", driver)
	}
	if driver == driverSQLite {
		sqldb.SetMaxOpenConns(1)
	}

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, errors.Wrapf(err, "masters: ping %s", driver)
	}

	return bun.NewDB(sqldb, dialectFor(driver)), nil
}

// CreateSchema creates the master tables when missing.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrapf(err, "masters: create table for %T", model)
		}
	}
	return nil
}
