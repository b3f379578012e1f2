package db

import (
	"context"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// withRetry runs fn once plus once per retry delay while isRetriable accepts
// the error. Waiting stops early when ctx is done.
func withRetry(ctx context.Context, fn func() error, isRetriable func(error) bool) error {
	var err error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isRetriable(err) {
			return err
		}
		if attempt < len(retryDelays) {
			select {
			case <-time.After(retryDelays[attempt]):
			case <-ctx.Done():
				return err
			}
		}
	}
	return err
}

func withPGRetry(ctx context.Context, fn func() error) error {
	return withRetry(ctx, fn, isRetriable)
}

func isRetriable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ConnectionException,
			pgerrcode.ConnectionDoesNotExist,
			pgerrcode.ConnectionFailure,
			pgerrcode.SQLClientUnableToEstablishSQLConnection,
			pgerrcode.AdminShutdown:
			return true
		}
	}
	return false
}
