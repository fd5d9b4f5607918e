package apperr

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// FromDriverError wraps a passthrough database error (spec §7 "Database
// Error") in an *Error carrying the driver's own code, preserved as-is for
// the error body; DatabaseStatus maps that code to an HTTP status.
func FromDriverError(err error) *Error {
	code := driverCode(err)
	return &Error{Kind: KindDatabase, Code: code, Message: err.Error()}
}

// driverCode extracts a SQLSTATE from a lib/pq error, or a MySQL error
// number rendered as plain digits from a go-sql-driver/mysql error,
// walking the error chain the way errors.As always does. Neither driver's
// error type exposes its code as an interface method — pq.Error.Code and
// mysql.MySQLError.Number are plain fields — so the concrete types are
// matched directly instead of via a shared interface.
func driverCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number))
	}
	return ""
}

// DatabaseStatus maps a passthrough database error's Code to the HTTP
// status spec §7 assigns to its family: connection, permission, integrity,
// read-only, syntax, and raise-custom (`PT###` ⇒ `###`). Covers
// PostgreSQL SQLSTATE classes; MySQL's numeric codes and SQLite's string
// codes fall through to the 500 default, since neither dialect's driver
// exposes a SQLSTATE-equivalent class taxonomy as fine-grained as
// PostgreSQL's.
func DatabaseStatus(code string) int {
	switch {
	case code == "":
		return 500
	case strings.HasPrefix(code, "PT"):
		if n, err := strconv.Atoi(code[2:]); err == nil && n >= 100 && n <= 599 {
			return n
		}
		return 500
	case strings.HasPrefix(code, "08"): // connection exception
		return 503
	case code == "28000", code == "28P01", code == "42501": // invalid authorization / insufficient privilege
		return 403
	case strings.HasPrefix(code, "23"): // integrity constraint violation
		return 409
	case code == "25006": // read_only_sql_transaction
		return 405
	case strings.HasPrefix(code, "42"): // syntax error or access rule violation
		return 400
	default:
		return 500
	}
}
