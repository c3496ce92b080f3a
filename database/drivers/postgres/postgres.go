package postgres

import (
	"database/sql"
	"fmt"

	// import postgres driver
	_ "github.com/lib/pq"
	"github.com/xnoquant/xno/database/drivers"
)

// DSN builds a lib/pq connection string
func DSN(cfg *drivers.ConnectionDetails) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		sslMode)
}

// Connect opens a connection pool to the database
func Connect(cfg *drivers.ConnectionDetails) (*sql.DB, error) {
	return sql.Open("postgres", DSN(cfg))
}
