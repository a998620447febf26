package probe

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type PostgresProber struct {
	timeout time.Duration
}

func NewPostgresProber(timeout time.Duration) *PostgresProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresProber{timeout: timeout}
}

func (p *PostgresProber) Probe(ctx context.Context, target Target) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	server, err := sql.Open("postgres", target.ConnectionString)
	if err != nil {
		return failure("Failed to parse connection string: %v", err)
	}
	defer server.Close()

	if err := server.PingContext(ctx); err != nil {
		return failure("Failed to connect: %v", err)
	}

	var exists bool
	const existsQuery = `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1 AND datistemplate = false)`
	if err := server.QueryRowContext(ctx, existsQuery, target.Database).Scan(&exists); err != nil {
		return failure("Failed to list databases: %v", err)
	}
	if !exists {
		return failure("Database not found: %s", target.Database)
	}

	dsn, err := WithDatabase(target.ConnectionString, target.Database)
	if err != nil {
		return failure("Failed to parse connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return failure("Failed to parse connection string: %v", err)
	}
	defer db.Close()

	const tablesQuery = `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name`

	rows, err := db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return failure("Failed to list tables: %v", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return failure("Failed to read table info: %v", err)
		}
		if schema == "public" {
			tables = append(tables, name)
		} else {
			tables = append(tables, schema+"."+name)
		}
	}
	if err := rows.Err(); err != nil {
		return failure("Failed to list tables: %v", err)
	}

	return success(tables)
}

// WithDatabase points a PostgreSQL URL or key/value DSN at database.
// Key/value DSNs are left untouched apart from a trailing dbname.
func WithDatabase(connectionString, database string) (string, error) {
	trimmed := strings.TrimSpace(connectionString)
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		u, err := url.Parse(trimmed)
		if err != nil {
			return "", err
		}
		u.Path = "/" + database
		u.RawPath = ""
		return u.String(), nil
	}

	if trimmed == "" {
		return "dbname=" + quoteDSNValue(database), nil
	}
	// lib/pq keeps the last value of a repeated key
	return fmt.Sprintf("%s dbname=%s", trimmed, quoteDSNValue(database)), nil
}

func quoteDSNValue(value string) string {
	if value != "" && !strings.ContainsAny(value, " '\\") {
		return value
	}
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}
