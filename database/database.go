package database

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/thrasher-corp/goose"
	"github.com/xnoquant/xno/database/drivers/postgres"
	dbsqlite3 "github.com/xnoquant/xno/database/drivers/sqlite3"
	"github.com/xnoquant/xno/log"
)

// SetConfig safely sets the database instance's config with some
// basic locks and checks
func (i *Instance) SetConfig(cfg *Config) error {
	if i == nil {
		return errNilInstance
	}
	if cfg == nil {
		return errNilConfig
	}
	i.m.Lock()
	i.config = cfg
	i.m.Unlock()
	return nil
}

// Connect opens the configured driver and marks the instance connected
func (i *Instance) Connect() error {
	if i == nil {
		return errNilInstance
	}
	cfg := i.GetConfig()
	if cfg == nil {
		return errNilConfig
	}
	switch Dialect(cfg.Driver) {
	case DBSQLite3:
		con, err := dbsqlite3.Connect(i.sqlitePath(cfg.Database))
		if err != nil {
			return err
		}
		i.SetSQLiteConnection(con)
	case DBPostgreSQL:
		con, err := postgres.Connect(&cfg.ConnectionDetails)
		if err != nil {
			return err
		}
		if err := i.SetPostgresConnection(con); err != nil {
			return fmt.Errorf("%w: %s:%d", err, cfg.Host, cfg.Port)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedDriver, cfg.Driver)
	}
	i.SetConnected(true)
	if cfg.Verbose {
		log.Debugf(log.DatabaseMgr, "connected to %s database %s", cfg.Driver, cfg.Database)
	}
	return nil
}

func (i *Instance) sqlitePath(db string) string {
	if db == "" || filepath.IsAbs(db) || i.DataPath == "" {
		return db
	}
	return filepath.Join(i.DataPath, db)
}

// SetSQLiteConnection safely sets the database instance's connection
// to use SQLite
func (i *Instance) SetSQLiteConnection(con *sql.DB) {
	i.m.Lock()
	defer i.m.Unlock()
	i.SQL = con
	i.SQL.SetMaxOpenConns(1)
}

// SetPostgresConnection safely sets the database instance's connection
// to use Postgres
func (i *Instance) SetPostgresConnection(con *sql.DB) error {
	if err := con.Ping(); err != nil {
		return err
	}
	i.m.Lock()
	defer i.m.Unlock()
	i.SQL = con
	i.SQL.SetMaxOpenConns(2)
	i.SQL.SetMaxIdleConns(1)
	i.SQL.SetConnMaxLifetime(time.Hour)
	return nil
}

// SetConnected safely sets the database instance's connected status
func (i *Instance) SetConnected(v bool) {
	i.m.Lock()
	i.connected = v
	i.m.Unlock()
}

// CloseConnection safely disconnects the database instance
func (i *Instance) CloseConnection() error {
	i.m.Lock()
	defer i.m.Unlock()
	if i.SQL == nil {
		return errNilSQL
	}
	i.connected = false
	return i.SQL.Close()
}

// IsConnected safely checks the SQL connection status
func (i *Instance) IsConnected() bool {
	i.m.RLock()
	defer i.m.RUnlock()
	return i.connected
}

// GetConfig safely returns a copy of the config
func (i *Instance) GetConfig() *Config {
	i.m.RLock()
	defer i.m.RUnlock()
	if i.config == nil {
		return nil
	}
	cpy := *i.config
	return &cpy
}

// Ping pings the database
func (i *Instance) Ping() error {
	if i == nil {
		return errNilInstance
	}
	i.m.RLock()
	defer i.m.RUnlock()
	if i.SQL == nil {
		return errNilSQL
	}
	return i.SQL.Ping()
}

// GetSQL returns the connection or nil when the instance is not connected
func (i *Instance) GetSQL() (*sql.DB, error) {
	if i == nil {
		return nil, errNilInstance
	}
	if !i.IsConnected() {
		return nil, ErrDatabaseNotConnected
	}
	i.m.RLock()
	defer i.m.RUnlock()
	return i.SQL, nil
}

// GetDialect returns the goose dialect of the configured driver
func (i *Instance) GetDialect() string {
	cfg := i.GetConfig()
	if cfg == nil {
		return DBInvalidDriver
	}
	return Dialect(cfg.Driver)
}

// Migrate runs a goose command (up, down, status, reset, ...) against the
// migration folder. An empty dir falls back to the configured one, then
// MigrationDir
func (i *Instance) Migrate(command, dir, args string) error {
	db, err := i.GetSQL()
	if err != nil {
		return err
	}
	if dir == "" {
		if cfg := i.GetConfig(); cfg != nil && cfg.MigrationDir != "" {
			dir = cfg.MigrationDir
		} else {
			dir = MigrationDir
		}
	}
	log.Infof(log.DatabaseMgr, "running migration %s from %s", command, dir)
	return goose.Run(command, db, i.GetDialect(), dir, args)
}

// Dialect normalises a driver name to a supported dialect
func Dialect(driver string) string {
	switch strings.ToLower(driver) {
	case "postgresql", "postgres", "psql":
		return DBPostgreSQL
	case "sqlite", "sqlite3":
		return DBSQLite3
	}
	return DBInvalidDriver
}

// IsSupportedDriver returns whether driver maps to a supported dialect
func IsSupportedDriver(driver string) bool {
	return slices.Contains(SupportedDrivers, Dialect(driver))
}
