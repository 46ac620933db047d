package postgres

import (
	"fmt"
	"strings"
)

// describeConnectError turns a raw connection failure into a message that
// names the likely cause. The original error stays wrapped.
func describeConnectError(err error, host string, port uint16, database string) error {
	msg := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	var hint string
	switch {
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "actively refused"):
		hint = fmt.Sprintf("nothing is listening on %s; is PostgreSQL running? (pg_isready -h %s -p %d)", addr, host, port)
	case strings.Contains(msg, "no such host"):
		hint = fmt.Sprintf("host %q cannot be resolved; check the hostname in the destination URL", host)
	case strings.Contains(msg, "password authentication failed"):
		hint = fmt.Sprintf("credentials were rejected for database %q; check the user and password in the URL or $PGPASSWORD", database)
	case strings.Contains(msg, "database") && strings.Contains(msg, "does not exist"):
		hint = fmt.Sprintf("database %q does not exist; create it first (createdb %s)", database, database)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		hint = fmt.Sprintf("connecting to %s timed out; the server may be down or a firewall is dropping packets", addr)
	case strings.Contains(msg, "too many connections"):
		hint = fmt.Sprintf("database %q has no free connection slots", database)
	default:
		return fmt.Errorf("%s/%s: %w", addr, database, err)
	}
	return fmt.Errorf("%s/%s: %s: %w", addr, database, hint, err)
}
