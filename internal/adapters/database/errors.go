package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"

	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// wrapWriteError classifies a failed statement: connectivity problems are
// transient (the operator may retry), everything else is internal.
func wrapWriteError(message string, err error) error {
	if isTransient(err) {
		return apperrors.NewTransientError(message, err)
	}
	return apperrors.NewInternalError(message, err)
}

// wrapReadError is wrapWriteError for queries
func wrapReadError(message string, err error) error {
	return wrapWriteError(message, err)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// class 08: connection exception, class 57: operator intervention, 40001: serialization failure
		code := string(pqErr.Code)
		return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57") || code == "40001"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
