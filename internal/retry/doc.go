// Package retry retries operations that fail with transient errors, waiting
// an exponentially growing delay between attempts.
//
// It is used when opening a PostgreSQL destination, where a server that is
// still starting up or briefly unreachable should not fail the whole run:
//
//	exec := retry.NewExecutor(retry.NewPostgresClassifier(),
//	    retry.NewExponentialBackoff(3, retry.WithInitialDelay(200*time.Millisecond)))
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return conn.Ping(ctx)
//	})
package retry
