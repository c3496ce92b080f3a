package sqlite

import (
	"database/sql"
	"errors"

	// import sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoDatabaseProvided is returned when the database file name is empty
var ErrNoDatabaseProvided = errors.New("no database provided")

// Connect opens the sqlite database file at path
func Connect(path string) (*sql.DB, error) {
	if path == "" {
		return nil, ErrNoDatabaseProvided
	}
	return sql.Open("sqlite3", path)
}
