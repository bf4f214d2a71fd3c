package database

import (
	"database/sql"
	"embed"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mbolis/uss/log"
	"github.com/pkg/errors"
)

//go:embed migrations
var schemaMigrations embed.FS

// migrateLogger routes migrate's progress messages to the debug log.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	log.Debugf("db.migrate: "+strings.TrimSuffix(format, "\n"), v...)
}

func (migrateLogger) Verbose() bool {
	return false
}

// migrateSchema applies every pending migration and returns the resulting
// schema version.
func migrateSchema(db *sql.DB) (version uint, err error) {
	src, err := iofs.New(schemaMigrations, "migrations")
	if err != nil {
		return 0, errors.Wrap(err, "db.migrate.source")
	}

	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, errors.Wrap(err, "db.migrate.target")
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", dst)
	if err != nil {
		return 0, errors.Wrap(err, "db.migrate.init")
	}
	m.Log = migrateLogger{}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, errors.Wrap(err, "db.migrate.up")
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, errors.Wrap(err, "db.migrate.version")
	}
	if dirty {
		return version, errors.Errorf("db.migrate: schema version %d is dirty", version)
	}
	return version, nil
}
