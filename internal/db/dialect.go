package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// CaseInsensitiveEqExpr returns a SQL expression for case-insensitive equality.
func CaseInsensitiveEqExpr(conn *gorm.DB, column string) string {
	if IsSQLite(conn) {
		return fmt.Sprintf("LOWER(%s) = ?", column)
	}
	return fmt.Sprintf("%s ILIKE ?", column)
}

// NormalizeEqValue normalizes an equality bind value for the current dialect.
func NormalizeEqValue(conn *gorm.DB, value string) string {
	if IsSQLite(conn) {
		return strings.ToLower(value)
	}
	return value
}
