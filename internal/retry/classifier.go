package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes outside the always-transient classes that still warrant a retry.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Classes 08 (connection exception), 53 (insufficient resources) and
// 57 (operator intervention) are retried as a whole.
var transientClasses = []string{"08", "53", "57"}

var transientMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no such host",
	"server closed the connection",
	"the database system is starting up",
	"unexpected eof",
}

// PostgresClassifier recognizes transient failures reported by pgx and the
// network stack.
type PostgresClassifier struct{}

func NewPostgresClassifier() PostgresClassifier {
	return PostgresClassifier{}
}

func (PostgresClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientCode(pgErr.Code)
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func isTransientCode(code string) bool {
	for _, class := range transientClasses {
		if strings.HasPrefix(code, class) {
			return true
		}
	}
	switch code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}
