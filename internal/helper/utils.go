package helper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RetryInitialInterval is the first wait between attempts of Retry.
var RetryInitialInterval = 250 * time.Millisecond

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// pretty print
func PrettyPrint(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Error pretty printing")
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// CreateFolder creates the folder and its parents if missing
func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", path, err)
	}
	return nil
}

// statusRe finds the HTTP status in provider errors, either
// "... status code: 401 ..." or a leading "404 Not Found: ...".
var statusRe = regexp.MustCompile(`(?:status code:? |^)([1-5]\d\d)\b`)

// IsTransient reports whether err may succeed on a later attempt. Client
// errors other than 408, 425 and 429 are final, as are cancellations.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	m := statusRe.FindStringSubmatch(err.Error())
	if m == nil {
		return true
	}
	code, _ := strconv.Atoi(m[1])
	switch {
	case code == 408, code == 425, code == 429:
		return true
	case code >= 400 && code < 500:
		return false
	}
	return true
}

// Retry runs op until it succeeds, returns a non-transient or
// backoff.Permanent error, the context ends, or maxRetries retries have
// been spent.
func Retry[T any](ctx context.Context, maxRetries int, op func() (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = RetryInitialInterval
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := op()
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxRetries)), ctx), func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("Retrying after error")
	})
}
