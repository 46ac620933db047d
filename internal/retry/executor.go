package retry

import (
	"context"
	"time"
)

// Classifier reports whether an error is worth another attempt.
type Classifier interface {
	IsTransient(err error) bool
}

// Backoff decides how long to wait before each retry.
type Backoff interface {
	// NextDelay returns the wait before retry number attempt (zero-based).
	NextDelay(attempt int) time.Duration

	// MaxAttempts is the number of retries after the first try.
	// Zero disables retries and a negative value retries until ctx ends.
	MaxAttempts() int
}

// RetryFunc is called before each wait.
type RetryFunc func(attempt int, err error, delay time.Duration)

// Executor runs an operation until it succeeds, fails permanently,
// runs out of attempts or the context is done.
type Executor struct {
	classifier Classifier
	backoff    Backoff
	onRetry    RetryFunc
}

// NewExecutor panics if classifier or backoff is nil.
func NewExecutor(classifier Classifier, backoff Backoff) *Executor {
	if classifier == nil {
		panic("retry: nil classifier")
	}
	if backoff == nil {
		panic("retry: nil backoff")
	}
	return &Executor{classifier: classifier, backoff: backoff}
}

// WithOnRetry returns a copy of e that calls fn before every wait.
func (e *Executor) WithOnRetry(fn RetryFunc) *Executor {
	c := *e
	c.onRetry = fn
	return &c
}

// Execute returns nil on the first success. Otherwise it returns the last
// operation error, or the context error if ctx ended while waiting.
func (e *Executor) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	err := op(ctx)
	max := e.backoff.MaxAttempts()

	for attempt := 0; err != nil && e.classifier.IsTransient(err); attempt++ {
		if max >= 0 && attempt >= max {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.backoff.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = op(ctx)
	}
	return err
}
