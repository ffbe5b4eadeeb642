package scheduler

import (
	"time"

	"github.com/queuectl/queuectl/internal/domain"
)

// Backoff computes the exponential retry delay. attempts is the
// post-increment count of failed attempts (max(1, attempts) per the
// formula, so the first failure still yields a non-zero delay).
func Backoff(base, attempts int) time.Duration {
	return domain.Backoff(base, attempts)
}
