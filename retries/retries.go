package retries

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 100 * time.Millisecond

	HealthAttempts  = 2
	HealthBaseDelay = 50 * time.Millisecond
)

// Retry runs fn up to attempts times with jittered exponential backoff.
// It gives up early when ctx is cancelled or when isRetriable reports the
// error as permanent.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error, isRetriable func(error) bool) error {
	var err error

	for attempt := 0; attempt < attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		if err = fn(); err == nil {
			return nil
		}

		if isRetriable != nil && !isRetriable(err) {
			return err
		}

		if attempt == attempts-1 {
			break
		}

		delay := baseDelay << attempt
		delay += time.Duration(rand.Int63n(int64(baseDelay)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return err
}

// IsRetriableDbError classifies DynamoDB failures. Throttling and transient
// server errors are retried; conditional check failures and missing tables
// are not.
func IsRetriableDbError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		// transport-level failure, worth another try
		return true
	}

	switch apiErr.ErrorCode() {
	case "ProvisionedThroughputExceededException",
		"ThrottlingException",
		"RequestLimitExceeded",
		"InternalServerError",
		"ServiceUnavailable":
		return true
	}

	return false
}
