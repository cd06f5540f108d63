package db

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	OfficeIDKey contextKey = "office_id"
	DBConnKey   contextKey = "db_conn"
)

const OfficeHeader = "X-Office-ID"

var officeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// SchemaName returns the Postgres schema that holds an office's data.
func SchemaName(officeID string) string {
	return "office_" + officeID
}

// ValidOfficeID reports whether id is safe to splice into a schema name.
func ValidOfficeID(id string) bool {
	return officeIDPattern.MatchString(id)
}

// OfficeMiddleware acquires a connection for the request and points its
// search_path at the caller's office schema. Repositories pick the
// connection up through ConnFromContext.
func OfficeMiddleware(pool *pgxpool.Pool, defaultOffice string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			officeID := extractOfficeID(c, defaultOffice)

			if !ValidOfficeID(officeID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid office identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", SchemaName(officeID)))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "office resolution failed")
			}

			ctx = context.WithValue(ctx, OfficeIDKey, officeID)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("office_id", officeID)

			return next(c)
		}
	}
}

func extractOfficeID(c echo.Context, defaultOffice string) string {
	// JWT claim wins over anything the client sends.
	if oid, ok := c.Get("jwt_office_id").(string); ok && oid != "" {
		return oid
	}
	if oid := c.Request().Header.Get(OfficeHeader); oid != "" {
		return oid
	}
	if oid := c.QueryParam("office_id"); oid != "" {
		return oid
	}
	return defaultOffice
}

// ConnFromContext retrieves the office-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// OfficeFromContext retrieves the office ID from context.
func OfficeFromContext(ctx context.Context) string {
	oid, _ := ctx.Value(OfficeIDKey).(string)
	return oid
}

// CreateOfficeSchema creates the schema for an office and applies every
// migration in migrations to it. A nil migrations skips that step.
func CreateOfficeSchema(ctx context.Context, pool *pgxpool.Pool, officeID string, migrations fs.FS) error {
	if !ValidOfficeID(officeID) {
		return fmt.Errorf("invalid office identifier: %s", officeID)
	}

	schema := SchemaName(officeID)
	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrations != nil {
		if _, err := NewMigrator(pool, migrations).Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}
	return nil
}
