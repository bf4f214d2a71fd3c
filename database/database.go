package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mbolis/uss/log"
	"github.com/pkg/errors"
)

// Open connects to the SQLite3 file at path and brings its schema up to date.
func Open(path string) (store *Store, err error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping")
	}

	version, err := migrateSchema(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.WithFields(log.Fields{"path": path, "schema": version}).Debug("db.open: ready")

	return NewStore(db), nil
}

// foreign keys and busy timeout are per connection, so they go in the DSN
// rather than in a one-off PRAGMA
func dsn(path string) string {
	params := "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}
