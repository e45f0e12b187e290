package database

import (
	"database/sql"
	"strconv"
	"strings"
)

// Dialect abstracts the differences between the supported database
// engines so repositories can be written once with ? placeholders.
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// Rewrite converts ? placeholders to the engine's syntax if needed
	Rewrite(query string) string

	// ConfigureConnection applies engine-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the migrations subdirectory name
	MigrationsSubdir() string
}

// DialectConfig holds connection parameters for a dialect
type DialectConfig struct {
	// Path is the database file (SQLite)
	Path string

	// URL is the connection string (PostgreSQL/MySQL)
	URL string
}

// rewriteNumbered converts ? placeholders to $1, $2, ... for engines
// that use numbered parameters. Queries never embed literal question
// marks, so a plain scan is sufficient.
func rewriteNumbered(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
