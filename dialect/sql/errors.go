package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorKind classifies a backend error.
type ErrorKind int

// Error kinds reported by ClassifyError.
const (
	KindOther ErrorKind = iota
	KindUnique
	KindForeignKey
	KindCheck
	KindNotNull
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnique:
		return "unique"
	case KindForeignKey:
		return "foreign_key"
	case KindCheck:
		return "check"
	case KindNotNull:
		return "not_null"
	default:
		return "other"
	}
}

// MySQL error numbers for constraint violations.
const (
	mysqlBadNull                = 1048
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// ClassifyError reports which constraint, if any, err violated.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	if code, ok := sqlState(err); ok {
		switch code {
		case pgerrcode.UniqueViolation:
			return KindUnique
		case pgerrcode.ForeignKeyViolation:
			return KindForeignKey
		case pgerrcode.CheckViolation:
			return KindCheck
		case pgerrcode.NotNullViolation:
			return KindNotNull
		}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return KindUnique
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return KindForeignKey
		case mysqlCheckConstraintViolate:
			return KindCheck
		case mysqlBadNull:
			return KindNotNull
		}
	}
	// Fallback to string matching for drivers without typed errors.
	msg := err.Error()
	switch {
	case containsAny(msg, "UNIQUE constraint failed", "violates unique constraint", "Error 1062"):
		return KindUnique
	case containsAny(msg, "FOREIGN KEY constraint failed", "violates foreign key constraint", "Error 1451", "Error 1452"):
		return KindForeignKey
	case containsAny(msg, "CHECK constraint failed", "violates check constraint", "Error 3819"):
		return KindCheck
	case containsAny(msg, "NOT NULL constraint failed", "violates not-null constraint", "Error 1048"):
		return KindNotNull
	}
	return KindOther
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return ClassifyError(err) != KindOther
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	return ClassifyError(err) == KindUnique
}

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	return ClassifyError(err) == KindForeignKey
}

// sqlState extracts a PostgreSQL SQLSTATE code from lib/pq or pgx errors.
func sqlState(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
