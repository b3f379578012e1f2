package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func fastRetries(t *testing.T) {
	t.Helper()
	old := retryDelays
	retryDelays = []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}
	t.Cleanup(func() { retryDelays = old })
}

func TestWithRetry(t *testing.T) {
	fastRetries(t)
	retriable := func(err error) bool { return err.Error() != "permanent failure" }

	tests := []struct {
		name          string
		failures      int
		final         error
		expectedErr   bool
		expectedTries int
	}{
		{name: "succeeds_first_time", failures: 0, expectedTries: 1},
		{name: "succeeds_after_some_failures", failures: 2, expectedTries: 3},
		{name: "fails_after_all_retries", failures: 10, expectedErr: true, expectedTries: 4},
		{name: "stops_on_permanent_error", failures: 1, final: errors.New("permanent failure"), expectedErr: true, expectedTries: 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			attempts := 0
			exec := func() error {
				attempts++
				if attempts <= test.failures {
					return errors.New("temporary failure")
				}
				return test.final
			}

			err := withRetry(context.Background(), exec, retriable)
			assert.Equal(t, test.expectedErr, err != nil, "err = %v", err)
			assert.Equal(t, test.expectedTries, attempts)
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	old := retryDelays
	retryDelays = []time.Duration{time.Hour}
	defer func() { retryDelays = old }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := withRetry(ctx, func() error {
		attempts++
		return errors.New("temporary failure")
	}, func(error) bool { return true })

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestIsRetriable(t *testing.T) {
	assert.True(t, isRetriable(&pgconn.PgError{Code: pgerrcode.ConnectionFailure}))
	assert.True(t, isRetriable(pkgerrors.Wrap(&pgconn.PgError{Code: pgerrcode.AdminShutdown}, "insert")))
	assert.False(t, isRetriable(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, isRetriable(errors.New("boom")))
}
