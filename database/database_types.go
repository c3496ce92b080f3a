package database

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/xnoquant/xno/database/drivers"
)

// Supported database drivers
const (
	DBSQLite3       = "sqlite3"
	DBPostgreSQL    = "postgres"
	DBInvalidDriver = "invalid driver"
)

const (
	// DefaultSQLiteDatabase is the file name used when none is configured
	DefaultSQLiteDatabase = "xno.db"
	// MigrationDir is the default goose migration folder
	MigrationDir = "database/migrations"
)

var (
	// SupportedDrivers lists the drivers Connect understands
	SupportedDrivers = []string{DBSQLite3, DBPostgreSQL}

	// ErrDatabaseNotConnected is returned when a query is made on a closed instance
	ErrDatabaseNotConnected = errors.New("database is not connected")
	// ErrUnsupportedDriver is returned for drivers outside SupportedDrivers
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	errNilInstance = errors.New("database instance is nil")
	errNilConfig   = errors.New("received nil config")
	errNilSQL      = errors.New("database SQL connection is nil")
)

// Config holds all database configurable options including enabled state
// and SQL Connection information
type Config struct {
	Enabled bool   `json:"enabled"`
	Verbose bool   `json:"verbose"`
	Driver  string `json:"driver"`
	drivers.ConnectionDetails
	MigrationDir string `json:"migrationDir,omitempty"`
}

// Instance holds all information for a database instance
type Instance struct {
	SQL       *sql.DB
	DataPath  string
	config    *Config
	connected bool
	m         sync.RWMutex
}
